package rest

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/profiles"
	"github.com/umthana/SungrowInverter/internal/types"
)

// GET /api/v1/catalog
func (s *Server) getCatalog(c *gin.Context) {
	cat := s.lm.Catalog()

	c.JSON(http.StatusOK, gin.H{
		"profile": cat.Info(),
		"registers": gin.H{
			"read":    cat.Size(types.RegisterClassRead),
			"holding": cat.Size(types.RegisterClassHolding),
		},
		"scan_ranges": gin.H{
			"read":    len(cat.ScanRanges(types.RegisterClassRead)),
			"holding": len(cat.ScanRanges(types.RegisterClassHolding)),
		},
		"tables": len(cat.Tables()),
	})
}

// GET /api/v1/catalog/report
func (s *Server) getCatalogReport(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Validate(s.lm.Catalog()))
}

// GET /api/v1/catalog/profile?format=json|yaml
func (s *Server) getCatalogProfile(c *gin.Context) {
	format, err := profiles.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrCodeBadRequest, "Invalid format", err.Error()))
		return
	}

	p := profiles.Export(s.lm.Catalog())
	if format == profiles.FormatJSON {
		c.JSON(http.StatusOK, p)
		return
	}

	var buf bytes.Buffer
	if err := profiles.Write(&buf, p, format); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("CATALOG_500", "Failed to encode profile", err.Error()))
		return
	}
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", buf.Bytes())
}

// GET /api/v1/registers/:class?model=0x013C|any|unknown
func (s *Server) listRegisters(c *gin.Context) {
	class, ok := s.bindClass(c)
	if !ok {
		return
	}
	filter, ok := s.bindFilter(c)
	if !ok {
		return
	}

	regs := s.lm.Catalog().Registers(class, filter)
	defs := make([]types.RegisterDefinition, 0, len(regs))
	for _, r := range regs {
		defs = append(defs, r.Definition())
	}

	c.JSON(http.StatusOK, gin.H{
		"class":     class,
		"model":     filter.String(),
		"count":     len(defs),
		"registers": defs,
	})
}

// GET /api/v1/registers/:class/*name
func (s *Server) getRegister(c *gin.Context) {
	class, ok := s.bindClass(c)
	if !ok {
		return
	}

	name := strings.TrimPrefix(c.Param("name"), "/")
	r, found := s.lm.Catalog().Lookup(class, name)
	if !found {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrCodeNotFound, "Register not found", name))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"register": r.Definition(),
		"offset":   r.Offset(),
		"words":    r.Words(),
	})
}

// GET /api/v1/scan-ranges/:class
func (s *Server) getScanRanges(c *gin.Context) {
	class, ok := s.bindClass(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"class":  class,
		"ranges": s.lm.Catalog().ScanRanges(class),
	})
}

func (s *Server) bindClass(c *gin.Context) (types.RegisterClass, bool) {
	class, err := types.ParseRegisterClass(c.Param("class"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrCodeBadRequest, "Invalid register class", err.Error()))
		return "", false
	}
	return class, true
}

func (s *Server) bindFilter(c *gin.Context) (catalog.ModelFilter, bool) {
	filter, err := parseFilter(c.Query("model"), s.lm.DefaultFilter())
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrCodeBadRequest, "Invalid model", err.Error()))
		return catalog.ModelFilter{}, false
	}
	return filter, true
}

// parseFilter maps a model query value to a filter. Empty means def.
func parseFilter(model string, def catalog.ModelFilter) (catalog.ModelFilter, error) {
	switch strings.ToLower(strings.TrimSpace(model)) {
	case "":
		return def, nil
	case "any":
		return catalog.AnyModel(), nil
	case "unknown":
		return catalog.UnknownModel(), nil
	}
	id, err := types.ParseModelID(model)
	if err != nil {
		return catalog.ModelFilter{}, err
	}
	return catalog.ForModel(id), nil
}
