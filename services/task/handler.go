package task

import (
	"net/http"
	"strconv"

	"lookbook-compensation/pkg/errutil"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	v1 := r.Group("/v1/jobs")
	v1.GET("", s.handleListJobs)
	v1.POST("/sweep", s.handleEnqueueSweep)
}

func (s *Service) handleListJobs(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			_ = c.Error(errutil.BadRequest("limit must be between 1 and 100", err))
			return
		}
		limit = n
	}

	jobs, err := s.ListJobs(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": jobs})
}

func (s *Service) handleEnqueueSweep(c *gin.Context) {
	job, err := s.EnqueueSweep(c.Request.Context(), SourceManual)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}
