package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append records a transition. Rows are never updated or deleted.
func (r *HistoryRepository) Append(ctx context.Context, h *entity.StatusHistory) error {
	query := `
		INSERT INTO status_history (
			request_id, action, from_status, to_status,
			actor_id, actor_role, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		h.RequestID,
		string(h.Action),
		string(h.FromStatus),
		string(h.ToStatus),
		h.ActorID,
		string(h.ActorRole),
		h.Comment,
		h.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append history record", zap.String("request_id", h.RequestID), zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	h.ID = id
	return nil
}

// GetByRequestID retrieves the history of a request in insertion order
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, request_id, action, from_status, to_status,
			actor_id, actor_role, comment, created_at
		FROM status_history
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get history by request ID", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	records := []*entity.StatusHistory{}
	for rows.Next() {
		var (
			record                 entity.StatusHistory
			action, from, to, role string
		)
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&action,
			&from,
			&to,
			&record.ActorID,
			&role,
			&record.Comment,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		record.Action = workflow.Action(action)
		record.FromStatus = workflow.Status(from)
		record.ToStatus = workflow.Status(to)
		record.ActorRole = policy.Role(role)
		records = append(records, &record)
	}

	return records, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *HistoryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
