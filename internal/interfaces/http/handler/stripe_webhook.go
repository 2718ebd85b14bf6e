package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	appbilling "github.com/partnerly/backend/internal/application/billing"
	"github.com/partnerly/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// StripeWebhookHandler receives Stripe webhook deliveries. The response
// status is the retry contract with Stripe: 2xx acknowledges the event,
// 5xx asks for a redelivery. Business rejections are acknowledged by
// the service layer because retrying cannot fix them.
type StripeWebhookHandler struct {
	BaseHandler
	webhookService    *appbilling.StripeWebhookService
	maxBodyBytes      int64
	processingTimeout time.Duration
	logger            *zap.Logger
}

// StripeWebhookHandlerConfig holds dependencies for StripeWebhookHandler
type StripeWebhookHandlerConfig struct {
	WebhookService    *appbilling.StripeWebhookService
	MaxBodyBytes      int64
	ProcessingTimeout time.Duration
	Logger            *zap.Logger
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(cfg StripeWebhookHandlerConfig) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		webhookService:    cfg.WebhookService,
		maxBodyBytes:      cfg.MaxBodyBytes,
		processingTimeout: cfg.ProcessingTimeout,
		logger:            cfg.Logger,
	}
}

// RegisterRoutes registers webhook routes
func (h *StripeWebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.HandleWebhook)
}

// HandleWebhook processes a single Stripe webhook delivery
func (h *StripeWebhookHandler) HandleWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Missing Stripe-Signature header")
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	payload, err := io.ReadAll(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.PayloadTooLarge(c, "Webhook payload exceeds size limit")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}

	ctx := c.Request.Context()
	if h.processingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.processingTimeout)
		defer cancel()
	}

	result, err := h.webhookService.ProcessWebhook(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, appbilling.ErrSignatureVerification) {
			h.Unauthorized(c, dto.ErrCodeSignatureInvalid, "Webhook signature verification failed")
			return
		}

		// Transient failure: a non-2xx answer makes Stripe redeliver,
		// and the per-document event ID set makes the retry safe.
		eventID := ""
		if result != nil {
			eventID = result.EventID
		}
		h.logger.Error("webhook processing failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		h.InternalError(c, "Webhook processing failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
