package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/umthana/SungrowInverter/internal/auth"
	"github.com/umthana/SungrowInverter/internal/config"
	"github.com/umthana/SungrowInverter/internal/interfaces"
)

type Server struct {
	router *gin.Engine
	lm     interfaces.LifecycleManager
	jwt    *auth.JWTHandler
	logger *zap.Logger
	server *http.Server
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		lm:     lm,
		logger: logger,
	}

	if cfg.Server.JWTSecret != "" {
		// only fails on an empty secret
		s.jwt, _ = auth.NewJWTHandler(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
	} else {
		logger.Warn("server.jwt_secret is empty, catalog reload is unauthenticated")
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
			system.POST("/reload", s.requireScope(auth.ScopeReload), s.reloadCatalog)
		}

		cat := v1.Group("/catalog")
		{
			cat.GET("", s.getCatalog)
			cat.GET("/report", s.getCatalogReport)
			cat.GET("/profile", s.getCatalogProfile)
		}

		registers := v1.Group("/registers")
		{
			registers.GET("/:class", s.listRegisters)
			// names such as fault/alarm_code contain slashes
			registers.GET("/:class/*name", s.getRegister)
		}

		v1.GET("/scan-ranges/:class", s.getScanRanges)

		tables := v1.Group("/tables")
		{
			tables.GET("", s.listTables)
			tables.GET("/:name", s.getTable)
			tables.GET("/:name/decode", s.decodeCode)
		}

		v1.POST("/decode", s.decodeBlocks)
	}
}

func (s *Server) requireScope(scope string) gin.HandlerFunc {
	if s.jwt == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return s.jwt.RequireScope(scope)
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
