package entity

import (
	"time"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
)

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification is one message sent to a role's chat about a request
type Notification struct {
	ID            int64       `json:"id"`
	RequestID     string      `json:"request_id"`
	EventType     string      `json:"event_type"`
	RecipientRole policy.Role `json:"recipient_role"`
	ChatID        string      `json:"chat_id"`
	Content       string      `json:"content"`
	Status        string      `json:"status"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	SentAt        *time.Time  `json:"sent_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
