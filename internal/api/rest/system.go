package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/umthana/SungrowInverter/internal/types"
)

// GET /api/v1/system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	status := s.lm.GetCurrentStatus()
	c.JSON(http.StatusOK, status)
}

// POST /api/v1/system/reload
func (s *Server) reloadCatalog(c *gin.Context) {
	if err := s.lm.Reload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("SYSTEM_500", "Failed to reload catalog", err.Error()))
		return
	}

	c.JSON(http.StatusOK, s.lm.GetCurrentStatus())
}
