package earning

import (
	"net/http"

	"lookbook-compensation/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type flagByEntityRequest struct {
	EntityID string `json:"entity_id" binding:"required"`
	Type     Type   `json:"type" binding:"required"`
}

func RegisterRoutes(r *gin.Engine, s *Service) {
	v1 := r.Group("/v1")
	v1.GET("/earnings/:id", s.handleGet)
	v1.POST("/earnings/:id/flag", s.handleFlag)
	v1.POST("/earnings/flag", s.handleFlagByEntity)
}

func (s *Service) handleGet(c *gin.Context) {
	e, err := s.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Service) handleFlag(c *gin.Context) {
	id := c.Param("id")
	flagged, err := s.Flag(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "flagged": flagged})
}

func (s *Service) handleFlagByEntity(c *gin.Context) {
	var req flagByEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	flagged, err := s.FlagByEntity(c.Request.Context(), req.EntityID, req.Type)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity_id": req.EntityID, "type": req.Type, "flagged": flagged})
}
