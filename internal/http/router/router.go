package router

import (
	"github.com/gin-gonic/gin"

	"github.com/husainf4l/baridai-sub000/internal/http/handler"
	"github.com/husainf4l/baridai-sub000/internal/http/handler/webhook"
	"github.com/husainf4l/baridai-sub000/internal/http/middleware"
	"github.com/husainf4l/baridai-sub000/internal/service"
)

type RouterConfig struct {
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	metaHandler := webhook.NewMetaWebhookHandler(services.WebhookIntake())
	WebhookRouter(router.Group("/webhook"), metaHandler)

	v1 := router.Group("/api/v1")
	{
		adminHandler := handler.NewAdminHandler(services.Automations(), services.Integrations(), services.Conversations())
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdminKey(cfg.AdminAPIKey))
		AdminRouter(admin, adminHandler)
	}
}
