package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/types"
)

// GET /api/v1/tables
func (s *Server) listTables(c *gin.Context) {
	tables := s.lm.Catalog().Tables()

	response := make([]gin.H, 0, len(tables))
	for _, t := range tables {
		response = append(response, gin.H{
			"name":    t.Name(),
			"kind":    t.Kind(),
			"entries": len(t.Entries()),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"tables": response,
		"count":  len(response),
	})
}

// GET /api/v1/tables/:name
func (s *Server) getTable(c *gin.Context) {
	t, ok := s.bindTable(c)
	if !ok {
		return
	}

	response := gin.H{
		"name":    t.Name(),
		"kind":    t.Kind(),
		"entries": t.Entries(),
	}
	switch tt := t.(type) {
	case *catalog.LabelTable:
		response["aliases"] = tt.Aliases()
		response["overrides"] = tt.Overrides()
	case *catalog.FlagTable:
		response["width"] = tt.Width()
	}

	c.JSON(http.StatusOK, response)
}

// GET /api/v1/tables/:name/decode?value=N
func (s *Server) decodeCode(c *gin.Context) {
	t, ok := s.bindTable(c)
	if !ok {
		return
	}

	raw, err := strconv.ParseUint(c.Query("value"), 0, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrCodeBadRequest, "Invalid value", err.Error()))
		return
	}
	value := uint32(raw)

	switch tt := t.(type) {
	case *catalog.FlagTable:
		c.JSON(http.StatusOK, gin.H{
			"table":  tt.Name(),
			"value":  value,
			"labels": catalog.DecodeBitfieldLabels(tt, value),
		})
	case *catalog.LabelTable:
		label, err := catalog.DecodeSingleLabel(tt, value)
		if errors.Is(err, catalog.ErrUnknownCode) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrCodeUnknownCode, "Unknown code", gin.H{
				"table": tt.Name(),
				"value": value,
			}))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"table": tt.Name(),
			"value": value,
			"label": label,
		})
	}
}

func (s *Server) bindTable(c *gin.Context) (catalog.CodeTable, bool) {
	t, ok := s.lm.Catalog().Table(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrCodeNotFound, "Code table not found", c.Param("name")))
		return nil, false
	}
	return t, true
}
