package payout

import (
	"errors"
	"net/http"

	"lookbook-compensation/pkg/errutil"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	v1 := r.Group("/v1")
	v1.POST("/payouts", s.handleDisburse)
}

func (s *Service) handleDisburse(c *gin.Context) {
	var req DisburseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	batch, err := s.DisburseEarnings(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrNothingToDisburse):
		c.JSON(http.StatusOK, gin.H{"status": "nothing_to_disburse"})
	case err != nil && batch != nil:
		be := errutil.FromError(err)
		c.JSON(be.Code.HTTPStatus(), gin.H{
			"error": gin.H{"code": be.Code, "message": be.Message},
			"batch": batch,
		})
	case err != nil:
		_ = c.Error(err)
	default:
		c.JSON(http.StatusCreated, batch)
	}
}
