package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when a request does not exist
	ErrNotFound = errors.New("not found")

	// ErrStaleStatus is returned when a conditional status update finds the
	// request no longer in the expected status
	ErrStaleStatus = errors.New("request status changed concurrently")
)

// RequestRepository defines persistence operations for ForcingRequest
type RequestRepository interface {
	Create(ctx context.Context, req *entity.ForcingRequest) error
	GetByID(ctx context.Context, id string) (*entity.ForcingRequest, error)
	List(ctx context.Context, filter entity.RequestFilter) ([]*entity.ForcingRequest, error)

	// UpdateStatus moves the request to next only if it is still in expected.
	// It returns ErrStaleStatus otherwise.
	UpdateStatus(ctx context.Context, id string, expected, next workflow.Status, assignedTo string) error

	// ListDueBefore returns requests in one of statuses due at or before t
	// that have not been flagged as SLA breaches yet, earliest first
	ListDueBefore(ctx context.Context, t time.Time, statuses []workflow.Status, limit int) ([]*entity.ForcingRequest, error)
	MarkSLABreached(ctx context.Context, id string, at time.Time) error
}

// HistoryRepository is the append-only status history
type HistoryRepository interface {
	Append(ctx context.Context, h *entity.StatusHistory) error
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.StatusHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
