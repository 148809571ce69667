package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	service "github.com/mamadbah2/flockboard/internal/service/whatsapp"
	client "github.com/mamadbah2/flockboard/pkg/clients/whatsapp"
)

// WebhookHandler exposes the WhatsApp channel over HTTP.
type WebhookHandler struct {
	svc    service.MessagingService
	logger *zap.Logger
}

func NewWebhookHandler(svc service.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

type verifyQuery struct {
	Mode      string `form:"hub.mode"`
	Token     string `form:"hub.verify_token"`
	Challenge string `form:"hub.challenge"`
}

// Verify answers the subscription handshake by echoing the challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	var q verifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	challenge, err := h.svc.VerifyWebhookToken(q.Mode, q.Token, q.Challenge)
	if err != nil {
		h.logger.Warn("webhook verification rejected", zap.String("mode", q.Mode), zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive processes a delivery. Any well-formed delivery is acknowledged with
// 200 so Meta does not redeliver it, even when replying failed.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("webhook delivery not fully processed", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage pushes an operator message to a WhatsApp number.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	err := h.svc.SendOutbound(c.Request.Context(), req)
	var apiErr *client.APIError
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case errors.As(err, &apiErr):
		h.logger.Error("whatsapp api refused message",
			zap.Int("status", apiErr.Status),
			zap.String("fbtrace_id", apiErr.FBTraceID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
	default:
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
	}
}
