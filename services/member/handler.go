package member

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	v1 := r.Group("/v1")
	v1.GET("/members/:id", s.handleGet)
	v1.POST("/members/:id/flag", s.handleToggleFlag)
}

func (s *Service) handleGet(c *gin.Context) {
	m, err := s.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           m.ID,
		"display_name": m.DisplayName,
		"email":        m.Email,
		"has_phone":    m.Phone() != "",
		"flagged":      m.Flagged,
	})
}

func (s *Service) handleToggleFlag(c *gin.Context) {
	id := c.Param("id")
	flagged, err := s.ToggleFlag(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "flagged": flagged})
}
