package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/application/service"
	"github.com/garyjia/po-approval/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	metrics  *Metrics
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, metrics *Metrics, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		metrics:  metrics,
		logger:   logger,
	}
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)

	if h.services.Ping != nil {
		if err := h.services.Ping(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Timestamp: now})
			return
		}
	}

	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Timestamp: now})
}

// Login handles POST /auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Email and password are required"})
		return
	}

	result, err := h.services.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.ObserveLogin(false)
		h.writeError(c, err)
		return
	}

	h.metrics.ObserveLogin(true)
	c.JSON(http.StatusOK, result)
}

// ListOrders handles GET /purchase-orders
func (h *Handlers) ListOrders(c *gin.Context) {
	orders, err := h.services.Orders.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder handles GET /purchase-orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.services.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder handles POST /purchase-orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	var sub entity.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.logger.Info("Rejected purchase order submission", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid purchase order: " + err.Error()})
		return
	}

	order, err := h.services.Orders.Create(c.Request.Context(), sub, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// Decide handles POST /purchase-orders/:id/approve
func (h *Handlers) Decide(c *gin.Context) {
	var decision entity.Decision
	if err := c.ShouldBindJSON(&decision); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Status is required"})
		return
	}

	order, err := h.services.Approvals.Decide(c.Request.Context(), c.Param("id"), decision, currentUser(c))
	if err != nil {
		if errors.Is(err, port.ErrConflict) {
			h.metrics.ObserveDecision("conflict")
		}
		h.writeError(c, err)
		return
	}

	h.metrics.ObserveDecision(order.Status.String())
	c.JSON(http.StatusOK, order)
}

// History handles GET /purchase-orders/:id/history
func (h *Handlers) History(c *gin.Context) {
	entries, err := h.services.Orders.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// writeError replies with the service message and its status, or a generic 500
func (h *Handlers) writeError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(port.StatusForKind(svcErr.Kind), ErrorResponse{Message: svcErr.Message})
		return
	}

	h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
}
