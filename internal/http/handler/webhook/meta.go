package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/service"
)

const maxBodyBytes = 1 << 20

// MetaWebhookHandler serves /webhook/:platform for Instagram, Messenger and
// the WhatsApp Cloud API.
type MetaWebhookHandler struct {
	intake service.WebhookIntakeService
}

func NewMetaWebhookHandler(intake service.WebhookIntakeService) *MetaWebhookHandler {
	return &MetaWebhookHandler{intake: intake}
}

func (h *MetaWebhookHandler) Verify(c *gin.Context) {
	ctx := c.Request.Context()

	platform, ok := model.ParsePlatform(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown platform"})
		return
	}

	challenge, ok := h.intake.Verify(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if !ok {
		slog.WarnContext(ctx, "webhook verification rejected", "platform", platform, "mode", c.Query("hub.mode"))
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	slog.InfoContext(ctx, "webhook verified", "platform", platform)
	c.String(http.StatusOK, challenge)
}

// HandleEvent acknowledges first and enqueues after the response is flushed.
// Anything short of a bad signature gets a 200 so the platform does not
// redeliver.
func (h *MetaWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	platform, ok := model.ParsePlatform(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown platform"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		slog.WarnContext(ctx, "failed to read webhook body", "platform", platform, "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if err := h.intake.VerifySignature(body, c.GetHeader("X-Hub-Signature-256")); err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			slog.WarnContext(ctx, "webhook signature mismatch", "platform", platform)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
	c.Writer.Flush()

	// Trace id from the otelgin span, propagated to the worker.
	var traceID *string
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		tid := span.SpanContext().TraceID().String()
		traceID = &tid
	}

	if err := h.intake.Handoff(ctx, platform, body, traceID); err != nil {
		slog.ErrorContext(ctx, "webhook handoff failed", "platform", platform, "error", err)
	}
}
