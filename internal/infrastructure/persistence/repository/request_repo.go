package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/persistence/sqlite"
)

const requestColumns = `
	id, reference, client_id, agency_id, amount, client_rating,
	operation_type, motive, status, assigned_to, due_date, sla_breached_at,
	created_at, updated_at`

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new forcing request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new forcing request
func (r *RequestRepository) Create(ctx context.Context, req *entity.ForcingRequest) error {
	query := `
		INSERT INTO forcing_requests (
			id, reference, client_id, agency_id, amount, client_rating,
			operation_type, motive, status, assigned_to, due_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.ID,
		req.Reference,
		req.ClientID,
		req.AgencyID,
		req.Amount,
		string(req.ClientRating),
		req.OperationType,
		req.Motive,
		string(req.Status),
		req.AssignedTo,
		nullTime(req.DueDate),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

// GetByID retrieves a request, returning port.ErrNotFound when absent
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.ForcingRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM forcing_requests WHERE id = ?`

	req, err := scanRequest(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return req, nil
}

// List returns requests matching filter, newest first
func (r *RequestRepository) List(ctx context.Context, filter entity.RequestFilter) ([]*entity.ForcingRequest, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.AgencyID != "" {
		where = append(where, "agency_id = ?")
		args = append(args, filter.AgencyID)
	}
	if filter.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, filter.ClientID)
	}

	query := `SELECT ` + requestColumns + ` FROM forcing_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)

	return r.query(ctx, query, args...)
}

// UpdateStatus performs the compare-and-swap status write
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, expected, next workflow.Status, assignedTo string) error {
	query := `
		UPDATE forcing_requests
		SET status = ?,
			assigned_to = CASE WHEN ? = '' THEN assigned_to ELSE ? END,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(next),
		assignedTo, assignedTo,
		time.Now().UTC(),
		id,
		string(expected),
	)
	if err != nil {
		r.logger.Error("Failed to update status",
			zap.String("id", id),
			zap.String("expected", string(expected)),
			zap.String("next", string(next)),
			zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("request %s no longer %s: %w", id, expected, port.ErrStaleStatus)
	}

	return nil
}

// ListDueBefore returns unflagged requests in statuses due at or before t
func (r *RequestRepository) ListDueBefore(ctx context.Context, t time.Time, statuses []workflow.Status, limit int) ([]*entity.ForcingRequest, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]interface{}, 0, len(statuses)+2)
	args = append(args, t.UTC())
	for i, s := range statuses {
		placeholders[i] = "?"
		args = append(args, string(s))
	}
	args = append(args, limit)

	query := `SELECT ` + requestColumns + `
		FROM forcing_requests
		WHERE due_date IS NOT NULL
			AND due_date <= ?
			AND sla_breached_at IS NULL
			AND status IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY due_date ASC
		LIMIT ?`

	return r.query(ctx, query, args...)
}

// MarkSLABreached flags the request so the watcher reports it once
func (r *RequestRepository) MarkSLABreached(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE forcing_requests SET sla_breached_at = ?, updated_at = ? WHERE id = ? AND sla_breached_at IS NULL`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, at.UTC(), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to mark SLA breach", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark sla breach: %w", err)
	}
	return nil
}

func (r *RequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.ForcingRequest, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var out []*entity.ForcingRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		out = append(out, req)
	}

	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.ForcingRequest, error) {
	var (
		req         entity.ForcingRequest
		status      string
		rating      string
		dueDate     sql.NullTime
		slaBreached sql.NullTime
	)

	err := row.Scan(
		&req.ID,
		&req.Reference,
		&req.ClientID,
		&req.AgencyID,
		&req.Amount,
		&rating,
		&req.OperationType,
		&req.Motive,
		&status,
		&req.AssignedTo,
		&dueDate,
		&slaBreached,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Status = workflow.Status(status)
	req.ClientRating = policy.Rating(rating)
	if dueDate.Valid {
		t := dueDate.Time
		req.DueDate = &t
	}
	if slaBreached.Valid {
		t := slaBreached.Time
		req.SLABreachedAt = &t
	}

	return &req, nil
}

// getExecutor returns appropriate executor based on context
func (r *RequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
