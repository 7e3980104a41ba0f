package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/umthana/SungrowInverter/internal/decoder"
	"github.com/umthana/SungrowInverter/internal/types"
)

type decodeRequest struct {
	Class  string          `json:"class" binding:"required"`
	Model  string          `json:"model"`
	Blocks []decoder.Block `json:"blocks" binding:"required"`
}

// POST /api/v1/decode
func (s *Server) decodeBlocks(c *gin.Context) {
	var req decodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrCodeDecodeFailed, "Invalid request body", err.Error()))
		return
	}

	class, err := types.ParseRegisterClass(req.Class)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrCodeDecodeFailed, "Invalid register class", err.Error()))
		return
	}

	filter, err := parseFilter(req.Model, s.lm.DefaultFilter())
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrCodeDecodeFailed, "Invalid model", err.Error()))
		return
	}

	for i, b := range req.Blocks {
		if uint32(b.Start)+uint32(len(b.Words)) > 1<<16 {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrCodeDecodeFailed, "Invalid block",
				fmt.Sprintf("block %d overflows the address space", i)))
			return
		}
	}

	c.JSON(http.StatusOK, s.lm.Decoder().Decode(class, filter, req.Blocks))
}
