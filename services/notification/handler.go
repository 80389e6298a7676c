package notification

import (
	"net/http"

	"lookbook-compensation/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type markReadRequest struct {
	Read *bool `json:"read"`
}

func RegisterRoutes(r *gin.Engine, s *Service) {
	v1 := r.Group("/v1")
	v1.GET("/members/:id/notifications", s.handleList)
	v1.PATCH("/notifications/:id", s.handleMarkRead)
}

func (s *Service) handleList(c *gin.Context) {
	items, err := s.ListForMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Service) handleMarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	read := true
	if req.Read != nil {
		read = *req.Read
	}

	n, err := s.MarkRead(c.Request.Context(), c.Param("id"), read)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, n)
}
