package router

import (
	"github.com/gin-gonic/gin"

	"github.com/husainf4l/baridai-sub000/internal/http/handler"
)

func AdminRouter(router *gin.RouterGroup, handler *handler.AdminHandler) {
	router.DELETE("/conversations/:sender_id", handler.ClearConversation)
	router.GET("/automations/:id/stats", handler.AutomationStats)
	router.PATCH("/automations/:id", handler.ToggleAutomation)
	router.PUT("/integrations/:id/token", handler.RotateIntegrationToken)
}
