package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// Ingester turns a raw email into a tracked booking
type Ingester interface {
	Ingest(ctx context.Context, msg entity.InboundMessage) (*entity.TrackedBooking, error)
}

// CycleRunner runs one reconciliation cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (entity.ReconciliationReport, error)
}

// Handler serves the HTTP ingestion and reconciliation endpoints
type Handler struct {
	ingester   Ingester
	reconciler CycleRunner
	runRepo    repository.ReconciliationRunRepository
	logger     logger.Logger
}

// NewHandler creates a new handler
func NewHandler(ingester Ingester, reconciler CycleRunner, runRepo repository.ReconciliationRunRepository, logger logger.Logger) *Handler {
	return &Handler{
		ingester:   ingester,
		reconciler: reconciler,
		runRepo:    runRepo,
		logger:     logger,
	}
}

type inboundEmailRequest struct {
	Email         string `json:"email" form:"email"`
	OwnerID       string `json:"owner_id" form:"owner_id"`
	Origin        string `json:"origin" form:"origin"`
	Destination   string `json:"destination" form:"destination"`
	DepartureDate string `json:"departure_date" form:"departure_date"`
}

type inboundEmailResponse struct {
	BookingID        string `json:"booking_id"`
	ConfirmationCode string `json:"confirmation_code"`
	Price            string `json:"price"`
	Status           string `json:"status"`
}

// IngestEmail handles POST /api/v1/inbound/email
func (h *Handler) IngestEmail(c *gin.Context) {
	var req inboundEmailRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email content is missing"})
		return
	}

	booking, err := h.ingester.Ingest(c.Request.Context(), entity.InboundMessage{
		Raw:           []byte(req.Email),
		Source:        entity.SourceHTTP,
		ReceivedAt:    time.Now(),
		OwnerID:       req.OwnerID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrIncompleteData):
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not extract all required flight details"})
		case errors.Is(err, entity.ErrUnreadableInput):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not parse email"})
		default:
			h.logger.Error("Failed to ingest email", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store booking"})
		}
		return
	}

	c.JSON(http.StatusOK, inboundEmailResponse{
		BookingID:        booking.ID,
		ConfirmationCode: booking.ConfirmationCode,
		Price:            booking.BaselinePrice.StringFixed(2),
		Status:           string(booking.Status),
	})
}

// TriggerReconcile handles POST /api/v1/reconcile
func (h *Handler) TriggerReconcile(c *gin.Context) {
	report, err := h.reconciler.RunCycle(c.Request.Context())
	if err != nil {
		if errors.Is(err, entity.ErrCycleInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Manual reconciliation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListRuns handles GET /api/v1/reconcile/runs
func (h *Handler) ListRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.runRepo.FindRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list reconciliation runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "Healthy")
}
