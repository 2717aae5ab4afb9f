package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/forcing-workflow/pkg/database"
)

type fixture struct {
	db            *sqlite.DB
	requests      port.RequestRepository
	history       port.HistoryRepository
	notifications port.NotificationRepository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunEmbedded())

	return &fixture{
		db:            sqlite.NewDB(db.DB, logger),
		requests:      NewRequestRepository(db.DB, logger),
		history:       NewHistoryRepository(db.DB, logger),
		notifications: NewNotificationRepository(db.DB, logger),
	}
}

func newRequest(id string, status workflow.Status, due *time.Time) *entity.ForcingRequest {
	return &entity.ForcingRequest{
		ID:            id,
		Reference:     "FRC-" + id,
		ClientID:      "client-" + id,
		AgencyID:      "AG-01",
		Amount:        decimal.RequireFromString("1250000.50"),
		ClientRating:  policy.RatingB,
		OperationType: "overdraft",
		Motive:        "payroll",
		Status:        status,
		DueDate:       due,
	}
}

func TestRequestRepository_CreateAndGet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	due := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, f.requests.Create(ctx, newRequest("r1", workflow.StatusBrouillon, &due)))

	got, err := f.requests.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "FRC-r1", got.Reference)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1250000.50")), "amount = %s", got.Amount)
	assert.Equal(t, policy.RatingB, got.ClientRating)
	assert.Equal(t, workflow.StatusBrouillon, got.Status)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.Nil(t, got.SLABreachedAt)

	_, err = f.requests.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestRequestRepository_UpdateStatusIsConditional(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.requests.Create(ctx, newRequest("r1", workflow.StatusEnAttenteConseiller, nil)))

	err := f.requests.UpdateStatus(ctx, "r1", workflow.StatusEnAttenteConseiller, workflow.StatusEnEtudeConseiller, "conseiller-7")
	require.NoError(t, err)

	// second writer still believes the old status
	err = f.requests.UpdateStatus(ctx, "r1", workflow.StatusEnAttenteConseiller, workflow.StatusAnnulee, "")
	assert.ErrorIs(t, err, port.ErrStaleStatus)

	got, err := f.requests.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusEnEtudeConseiller, got.Status)
	assert.Equal(t, "conseiller-7", got.AssignedTo)

	// empty assignee keeps the current one
	require.NoError(t, f.requests.UpdateStatus(ctx, "r1", workflow.StatusEnEtudeConseiller, workflow.StatusEnAttenteRM, ""))
	got, err = f.requests.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "conseiller-7", got.AssignedTo)
}

func TestRequestRepository_List(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i, s := range []workflow.Status{workflow.StatusBrouillon, workflow.StatusEnAttenteRM, workflow.StatusEnAttenteRM} {
		req := newRequest(string(rune('a'+i)), s, nil)
		req.CreatedAt = time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, f.requests.Create(ctx, req))
	}

	all, err := f.requests.List(ctx, entity.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")

	rm, err := f.requests.List(ctx, entity.RequestFilter{Status: workflow.StatusEnAttenteRM, Limit: 1})
	require.NoError(t, err)
	require.Len(t, rm, 1)
	assert.Equal(t, "c", rm[0].ID)

	page2, err := f.requests.List(ctx, entity.RequestFilter{Status: workflow.StatusEnAttenteRM, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "b", page2[0].ID)
}

func TestRequestRepository_SLA(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	soon := now.Add(12 * time.Hour)
	later := now.Add(10 * 24 * time.Hour)
	require.NoError(t, f.requests.Create(ctx, newRequest("soon", workflow.StatusEnAttenteRM, &soon)))
	require.NoError(t, f.requests.Create(ctx, newRequest("later", workflow.StatusEnAttenteRM, &later)))
	require.NoError(t, f.requests.Create(ctx, newRequest("closed", workflow.StatusRejetee, &soon)))
	require.NoError(t, f.requests.Create(ctx, newRequest("nodate", workflow.StatusEnAttenteRM, nil)))

	open := []workflow.Status{workflow.StatusEnAttenteRM, workflow.StatusEnAttenteDCE}
	due, err := f.requests.ListDueBefore(ctx, now.Add(24*time.Hour), open, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "soon", due[0].ID)

	require.NoError(t, f.requests.MarkSLABreached(ctx, "soon", now))
	due, err = f.requests.ListDueBefore(ctx, now.Add(24*time.Hour), open, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	got, err := f.requests.GetByID(ctx, "soon")
	require.NoError(t, err)
	require.NotNil(t, got.SLABreachedAt)
	assert.True(t, got.SLABreachedAt.Equal(now))
}

func TestHistoryRepository_AppendInTransaction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.requests.Create(ctx, newRequest("r1", workflow.StatusEnAttenteRM, nil)))

	boom := errors.New("boom")
	err := f.db.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.requests.UpdateStatus(txCtx, "r1", workflow.StatusEnAttenteRM, workflow.StatusEnAttenteDCE, ""); err != nil {
			return err
		}
		if err := f.history.Append(txCtx, &entity.StatusHistory{
			RequestID:  "r1",
			Action:     workflow.ActionValider,
			FromStatus: workflow.StatusEnAttenteRM,
			ToStatus:   workflow.StatusEnAttenteDCE,
			ActorID:    "rm-1",
			ActorRole:  policy.RoleRM,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := f.requests.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusEnAttenteRM, got.Status, "rolled back")

	records, err := f.history.GetByRequestID(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, f.db.WithTransaction(ctx, func(txCtx context.Context) error {
		return f.history.Append(txCtx, &entity.StatusHistory{
			RequestID:  "r1",
			Action:     workflow.ActionValider,
			FromStatus: workflow.StatusEnAttenteRM,
			ToStatus:   workflow.StatusEnAttenteDCE,
			ActorID:    "rm-1",
			ActorRole:  policy.RoleRM,
			Comment:    "over my limit",
		})
	}))

	records, err = f.history.GetByRequestID(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, workflow.ActionValider, records[0].Action)
	assert.Equal(t, policy.RoleRM, records[0].ActorRole)
	assert.Equal(t, "over my limit", records[0].Comment)
}

func TestNotificationRepository_Lifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.requests.Create(ctx, newRequest("r1", workflow.StatusEnAttenteDCE, nil)))

	ok := &entity.Notification{RequestID: "r1", EventType: "request.status_changed", RecipientRole: policy.RoleDCE, ChatID: "oc_dce", Content: "hello"}
	ko := &entity.Notification{RequestID: "r1", EventType: "request.status_changed", RecipientRole: policy.RoleDCE, ChatID: "oc_dce", Content: "again"}
	require.NoError(t, f.notifications.Create(ctx, ok))
	require.NoError(t, f.notifications.Create(ctx, ko))
	require.NoError(t, f.notifications.MarkSent(ctx, ok.ID))
	require.NoError(t, f.notifications.MarkFailed(ctx, ko.ID, "chat not found"))

	list, err := f.notifications.GetByRequestID(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entity.NotificationStatusSent, list[0].Status)
	assert.NotNil(t, list[0].SentAt)
	assert.Equal(t, entity.NotificationStatusFailed, list[1].Status)
	assert.Equal(t, "chat not found", list[1].ErrorMessage)
	assert.Equal(t, policy.RoleDCE, list[1].RecipientRole)
}
