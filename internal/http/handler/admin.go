package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/husainf4l/baridai-sub000/internal/http/dto"
	"github.com/husainf4l/baridai-sub000/internal/service"
	"github.com/husainf4l/baridai-sub000/internal/store"
)

type AdminHandler struct {
	automations   service.AutomationService
	integrations  service.IntegrationService
	conversations service.ConversationService
}

func NewAdminHandler(automations service.AutomationService, integrations service.IntegrationService, conversations service.ConversationService) *AdminHandler {
	return &AdminHandler{
		automations:   automations,
		integrations:  integrations,
		conversations: conversations,
	}
}

func (h *AdminHandler) ClearConversation(c *gin.Context) {
	ctx := c.Request.Context()

	senderID := c.Param("sender_id")
	if err := h.conversations.Clear(ctx, senderID); err != nil {
		slog.ErrorContext(ctx, "failed to clear conversation", "error", err, "sender_id", senderID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear conversation"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) AutomationStats(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}

	stats, err := h.automations.Stats(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "automation not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load automation stats", "error", err, "automation_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, dto.ToAutomationStatsResponse(stats))
}

func (h *AdminHandler) ToggleAutomation(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.ToggleAutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	automation, err := h.automations.SetActive(ctx, id, *req.Active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "automation not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to toggle automation", "error", err, "automation_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update automation"})
		return
	}

	c.JSON(http.StatusOK, dto.ToAutomationResponse(automation))
}

func (h *AdminHandler) RotateIntegrationToken(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.RotateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "access_token is required"})
		return
	}

	integration, err := h.integrations.RotateToken(ctx, id, req.AccessToken, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "integration not found"})
		case errors.Is(err, service.ErrTokenTooShort):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "access token is too short"})
		default:
			slog.ErrorContext(ctx, "failed to rotate token", "error", err, "integration_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate token"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToIntegrationResponse(integration))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
