package compensation

import (
	"net/http"
	"time"

	"lookbook-compensation/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type activePolicyQuery struct {
	PayType  PayType    `form:"pay_type"`
	MemberID string     `form:"member_id"`
	At       *time.Time `form:"at" time_format:"2006-01-02"`
}

func RegisterRoutes(r *gin.Engine, s *Service) {
	v1 := r.Group("/v1")
	v1.POST("/uploads/:id/approve", s.handleApproveUpload)
	v1.POST("/compensations", s.handleSavePolicy)
	v1.GET("/compensations/active", s.handleActivePolicy)
	v1.GET("/compensations/history", s.handlePolicyHistory)
	v1.POST("/compensations/sweep", s.handleSweep)
	v1.POST("/offers/earnings", s.handleRecordOfferEarning)
}

func (s *Service) handleApproveUpload(c *gin.Context) {
	u, err := s.ApproveUpload(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Service) handleSavePolicy(c *gin.Context) {
	var req SavePolicyParams
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	p, err := s.SavePolicy(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Service) handleActivePolicy(c *gin.Context) {
	var q activePolicyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query", err))
		return
	}
	if q.PayType == "" {
		q.PayType = PayTypeUpload
	}
	at := time.Now()
	if q.At != nil {
		at = *q.At
	}

	p, err := s.ActivePolicy(c.Request.Context(), q.PayType, q.MemberID, at)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Service) handlePolicyHistory(c *gin.Context) {
	history, err := s.PolicyHistory(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}

func (s *Service) handleSweep(c *gin.Context) {
	summary, err := s.CompensateAllApproved(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Service) handleRecordOfferEarning(c *gin.Context) {
	var req OfferEarningParams
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	recorded, err := s.RecordOfferEarning(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	status := http.StatusCreated
	if !recorded {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"answer_id": req.AnswerID, "recorded": recorded})
}
