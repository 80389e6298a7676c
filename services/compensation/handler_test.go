package compensation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lookbook-compensation/pkg/middleware"
	"lookbook-compensation/services/earning"
	"lookbook-compensation/services/upload"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Error())
	RegisterRoutes(r, f.svc)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleSavePolicy(t *testing.T) {
	f := newFixture(t, &enqueuerMock{})
	r := newRouter(f)
	expiration := time.Now().UTC().AddDate(0, 1, 0).Format(time.RFC3339)

	w := do(r, http.MethodPost, "/v1/compensations",
		`{"created_by":"admin","pay_type":"upload","pay_amount":"2.50","pay_num":1,"expiration":"`+expiration+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p Policy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	require.Equal(t, PayTypeUpload, p.PayType)
	require.Equal(t, "2.50", p.PayAmount.StringFixed(2))

	tests := []struct {
		name string
		body string
	}{
		{"missing created_by", `{"pay_type":"upload","pay_amount":"1","expiration":"` + expiration + `"}`},
		{"missing expiration", `{"created_by":"admin","pay_type":"upload","pay_amount":"1"}`},
		{"unknown pay type", `{"created_by":"admin","pay_type":"bonus","pay_amount":"1","expiration":"` + expiration + `"}`},
		{"zero amount", `{"created_by":"admin","pay_type":"upload","pay_amount":"0","expiration":"` + expiration + `"}`},
		{"malformed", `{"created_by":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/v1/compensations", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Contains(t, w.Body.String(), `"code":"bad_request"`)
		})
	}

	w = do(r, http.MethodGet, "/v1/compensations/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Data []PolicyHistory `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Data, 1)
}

func TestHandleApproveUpload(t *testing.T) {
	f := newFixture(t, &enqueuerMock{})
	f.seedUpload(t, &upload.Upload{ID: "u1"})
	r := newRouter(f)

	w := do(r, http.MethodPost, "/v1/uploads/u1/approve", "")
	require.Equal(t, http.StatusOK, w.Code)
	var u upload.Upload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	require.True(t, u.Approved)

	w = do(r, http.MethodPost, "/v1/uploads/missing/approve", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleRecordOfferEarning(t *testing.T) {
	f := newFixture(t, nil)
	f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true})
	r := newRouter(f)
	body := `{"answer_id":"a1","upload_id":"u1","customer_id":"c1","company_name":"Acme","amount":"1.25"}`

	w := do(r, http.MethodPost, "/v1/offers/earnings", body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"answer_id":"a1","recorded":true}`, w.Body.String())

	w = do(r, http.MethodPost, "/v1/offers/earnings", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"answer_id":"a1","recorded":false}`, w.Body.String())

	var entries []earning.Entry
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1)

	w = do(r, http.MethodPost, "/v1/offers/earnings", `{"answer_id":"a2","upload_id":"u1","amount":"-1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
