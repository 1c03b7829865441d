package router

import (
	"github.com/gin-gonic/gin"

	"github.com/husainf4l/baridai-sub000/internal/http/handler/webhook"
)

func WebhookRouter(router *gin.RouterGroup, handler *webhook.MetaWebhookHandler) {
	router.GET("/:platform", handler.Verify)
	router.POST("/:platform", handler.HandleEvent)
}
