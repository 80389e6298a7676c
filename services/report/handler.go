package report

import (
	"net/http"

	"lookbook-compensation/pkg/db/pagination"
	"lookbook-compensation/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type ledgerQuery struct {
	Month int `form:"month" binding:"required,gte=1,lte=12"`
	Year  int `form:"year" binding:"required,gte=1970"`
}

func RegisterRoutes(r *gin.Engine, s *Service) {
	v1 := r.Group("/v1")
	v1.GET("/ledger", s.handleAdminLedger)
	v1.GET("/members/:id/earnings", s.handleLedgerHistory)
	v1.GET("/members/:id/earnings/totals", s.handleMemberTotals)
	v1.GET("/members/:id/earnings/disbursed", s.handleDisbursedEarnings)
	v1.GET("/members/:id/payouts", s.handlePayoutHistory)
	v1.GET("/members/:id/compensations", s.handleMemberCompensations)
}

func (s *Service) handleAdminLedger(c *gin.Context) {
	var q ledgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(errutil.BadRequest("month and year are required", err))
		return
	}

	rows, err := s.AdminLedger(c.Request.Context(), q.Month, q.Year)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Service) handleLedgerHistory(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination", err))
		return
	}

	entries, info, err := s.LedgerHistory(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "page_info": info})
}

func (s *Service) handleMemberTotals(c *gin.Context) {
	totals, err := s.MemberTotals(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (s *Service) handleDisbursedEarnings(c *gin.Context) {
	entries, err := s.DisbursedEarnings(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Service) handlePayoutHistory(c *gin.Context) {
	batches, err := s.PayoutHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": batches})
}

func (s *Service) handleMemberCompensations(c *gin.Context) {
	comps, err := s.MemberCompensations(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": comps})
}
