package exporters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lookbook-compensation/pkg/config"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSplitScheme(t *testing.T) {
	cases := map[string]struct {
		endpoint string
		secure   bool
	}{
		"collector:4318":          {"collector:4318", false},
		"http://collector:4318":   {"collector:4318", false},
		"https://otel.example.io": {"otel.example.io", true},
	}
	for addr, want := range cases {
		endpoint, secure := splitScheme(addr)
		require.Equal(t, want.endpoint, endpoint, addr)
		require.Equal(t, want.secure, secure, addr)
	}
}

func TestProvideHttpExports(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Otel.Addr = srv.URL
	cfg.Otel.Insecure = true
	cfg.Otel.URLPath = "/otlp/v1/traces"
	cfg.Otel.Headers = map[string]string{"X-Api-Key": "k1"}

	exp, err := ProvideHttp(cfg)
	require.NoError(t, err)
	defer exp.Shutdown(context.Background())

	spans := tracetest.SpanStubs{{Name: "payout.DisburseEarnings"}}.Snapshots()
	require.NoError(t, exp.ExportSpans(context.Background(), spans))
	require.Equal(t, "/otlp/v1/traces", gotPath)
	require.Equal(t, "k1", gotKey)
}
