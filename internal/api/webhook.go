package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/service"
	"helpdesk-inbox/backend/pkg/errors"
	"helpdesk-inbox/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Hub-Signature-256"

// BatchProcessor is satisfied by *service.WebhookService.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, batch *models.WebhookBatch) service.BatchResult
}

// WebhookConfig carries the platform secrets used by WebhookHandler.
type WebhookConfig struct {
	VerifyToken string
	// AppSecret enables X-Hub-Signature-256 checks when set.
	AppSecret   string
	MaxBodySize int64
}

// WebhookHandler serves the platform webhook subscription endpoints.
type WebhookHandler struct {
	processor BatchProcessor
	cfg       WebhookConfig
	log       *logger.Logger
}

func NewWebhookHandler(processor BatchProcessor, cfg WebhookConfig, log *logger.Logger) *WebhookHandler {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}
	return &WebhookHandler{processor: processor, cfg: cfg, log: log}
}

// RegisterRoutes registers the webhook routes
func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/fb/webhook", h.Verify)
	r.POST("/api/fb/webhook", h.Receive)
}

// Verify answers the subscription handshake by echoing hub.challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.cfg.VerifyToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.VerifyToken)) == 1 {
		h.log.Info("Webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}

	h.log.Warn("Failed webhook verification", "mode", mode)
	c.AbortWithStatus(http.StatusForbidden)
}

// Receive acknowledges a page batch once every event in it has been handled.
// Per-event failures never change the response.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxBodySize))
	if err != nil {
		_ = c.Error(errors.NewBadRequestError("INVALID_PAYLOAD", "Could not read request body").Wrap(err))
		return
	}

	if h.cfg.AppSecret != "" && !validSignature(body, c.GetHeader(signatureHeader), h.cfg.AppSecret) {
		h.log.Warn("Rejected webhook with bad signature", "remote", c.ClientIP())
		_ = c.Error(errors.NewForbiddenError("INVALID_SIGNATURE", "Invalid webhook signature"))
		return
	}

	var batch models.WebhookBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		_ = c.Error(errors.NewBadRequestError("INVALID_PAYLOAD", "Malformed webhook payload").Wrap(err))
		return
	}

	if batch.Object != models.ObjectPage {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	result := h.processor.ProcessBatch(c.Request.Context(), &batch)
	logger.FromContext(c).Info("Webhook batch handled",
		"events", len(result.Outcomes),
		"processed", result.Count(service.OutcomeProcessed),
		"failed", result.Count(service.OutcomeFailed)+result.Count(service.OutcomeProfileFailed),
	)

	c.String(http.StatusOK, "EVENT_RECEIVED")
}

// validSignature checks header against the hex HMAC-SHA256 of body keyed by secret.
func validSignature(body []byte, header, secret string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
