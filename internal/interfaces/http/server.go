// Package http is the gin adapter exposing the purchase order services over HTTP.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/garyjia/po-approval/internal/application/service"
	"github.com/garyjia/po-approval/pkg/utils"
)

var (
	bindingRulesOnce sync.Once
	bindingRulesErr  error
)

// registerBindingRules adds the custom tags to gin's shared validator
func registerBindingRules() error {
	bindingRulesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			bindingRulesErr = fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
			return
		}
		bindingRulesErr = utils.RegisterValidations(v)
	})
	return bindingRulesErr
}

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	LoginRatePerSecond float64
	LoginBurst         int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		LoginRatePerSecond: 1,
		LoginBurst:         5,
	}
}

// Services groups the application services the server exposes.
// Ping, when set, backs the health check.
type Services struct {
	Orders    service.OrderService
	Approvals service.ApprovalService
	Auth      service.AuthService
	Ping      func(ctx context.Context) error
}

// Server is the HTTP server adapter
type Server struct {
	config       ServerConfig
	httpServer   *http.Server
	router       *gin.Engine
	services     Services
	metrics      *Metrics
	loginLimiter *RateLimiter
	logger       Logger
}

// NewServer creates a new HTTP server. Metrics are registered on reg.
func NewServer(config ServerConfig, services Services, reg *prometheus.Registry, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if err := registerBindingRules(); err != nil {
		logger.Error("Failed to register binding rules", "error", err)
	}

	server := &Server{
		config:       config,
		router:       gin.New(),
		services:     services,
		metrics:      NewMetrics(reg),
		loginLimiter: NewRateLimiter(config.LoginRatePerSecond, config.LoginBurst),
		logger:       logger,
	}

	server.setupMiddleware()
	server.setupRoutes(reg)

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.metrics.Middleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	h := NewHandlers(s.services, s.metrics, s.logger)

	s.router.GET("/health", h.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(MetricsHandler(reg)))

	s.router.POST("/auth/login", s.loginLimiter.Middleware(), h.Login)

	orders := s.router.Group("/purchase-orders", authMiddleware(s.services.Auth))
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/history", h.History)
		orders.POST("/:id/approve", requireRole(reviewerRole), h.Decide)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
