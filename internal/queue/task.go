package queue

import (
	"time"

	"github.com/husainf4l/baridai-sub000/internal/model"
)

type TaskType string

const (
	TaskTypeWebhookDelivery TaskType = "webhook_delivery"
)

// Delivery is a raw webhook body handed off by the gateway.
type Delivery struct {
	Platform   model.Platform
	Payload    []byte
	TraceID    *string
	Attempt    int
	ReceivedAt time.Time
}
