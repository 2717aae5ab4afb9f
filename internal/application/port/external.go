package port

import (
	"context"

	"github.com/garyjia/forcing-workflow/internal/domain/entity"
)

// MessageSender delivers chat messages (Lark IM in production)
type MessageSender interface {
	SendText(ctx context.Context, chatID, text string) error
	SendCard(ctx context.Context, chatID string, card interface{}) error
}

// NotificationRepository records every outbound message and its delivery state
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.Notification, error)
}
