package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// ForcingRequest is a client's request to exceed an authorized balance
type ForcingRequest struct {
	ID            string          `json:"id"`
	Reference     string          `json:"reference"`
	ClientID      string          `json:"client_id"`
	AgencyID      string          `json:"agency_id"`
	Amount        decimal.Decimal `json:"amount"`
	ClientRating  policy.Rating   `json:"client_rating"`
	OperationType string          `json:"operation_type"`
	Motive        string          `json:"motive,omitempty"`
	Status        workflow.Status `json:"status"`
	AssignedTo    string          `json:"assigned_to,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	SLABreachedAt *time.Time      `json:"sla_breached_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Due returns the due date, or the zero time when none was given
func (r *ForcingRequest) Due() time.Time {
	if r.DueDate == nil {
		return time.Time{}
	}
	return *r.DueDate
}

// IsOwnedBy reports whether actorID is the requesting client
func (r *ForcingRequest) IsOwnedBy(actorID string) bool {
	return actorID != "" && r.ClientID == actorID
}

// RequestFilter narrows List queries; zero values mean "any"
type RequestFilter struct {
	Status   workflow.Status
	AgencyID string
	ClientID string
	Limit    int
	Offset   int
}
