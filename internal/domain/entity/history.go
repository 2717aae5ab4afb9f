package entity

import (
	"time"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// StatusHistory is one append-only audit entry of a request's lifecycle
type StatusHistory struct {
	ID         int64           `json:"id"`
	RequestID  string          `json:"request_id"`
	Action     workflow.Action `json:"action"`
	FromStatus workflow.Status `json:"from_status"`
	ToStatus   workflow.Status `json:"to_status"`
	ActorID    string          `json:"actor_id"`
	ActorRole  policy.Role     `json:"actor_role"`
	Comment    string          `json:"comment,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
