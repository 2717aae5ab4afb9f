package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/event"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

type notifierFixture struct {
	requests      *mockRequestRepo
	notifications *mockNotificationRepo
	sender        *mockMessageSender
	svc           NotificationService
}

func newNotifierFixture(chats ChatRouting) *notifierFixture {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	due := now.Add(20 * time.Hour)

	f := &notifierFixture{
		requests:      newMockRequestRepo(),
		notifications: &mockNotificationRepo{},
		sender:        &mockMessageSender{},
	}
	f.requests.requests["r1"] = &entity.ForcingRequest{
		ID:           "r1",
		Reference:    "FRC-20260302-ABCDEF12",
		AgencyID:     "AG-001",
		Amount:       decimal.NewFromInt(3_000_000),
		ClientRating: policy.RatingA,
		Status:       workflow.StatusEnAttenteDCE,
		DueDate:      &due,
	}

	calc := policy.NewCalculator(policy.Default()).WithClock(func() time.Time { return now })
	f.svc = NewNotificationService(f.requests, f.notifications, f.sender, calc, chats, nopLogger{})
	return f
}

func statusChanged(to workflow.Status) *event.Event {
	return event.NewEvent(event.TypeStatusChanged, "r1", "FRC-20260302-ABCDEF12", map[string]interface{}{
		event.KeyFrom:      workflow.StatusEnAttenteRM.String(),
		event.KeyTo:        to.String(),
		event.KeyAction:    workflow.ActionValider.String(),
		event.KeyActorRole: policy.RoleRM.String(),
		event.KeyEscalated: true,
		event.KeyRiskTier:  policy.RiskEleve.String(),
	})
}

func TestNotificationService_Register(t *testing.T) {
	f := newNotifierFixture(ChatRouting{})
	d := &mockDispatcher{}

	f.svc.Register(d)

	assert.ElementsMatch(t, []string{
		"request.status_changed/lark-status-notifier",
		"request.sla_breached/lark-sla-notifier",
	}, d.subscribed)
}

func TestNotificationService_StatusChangedSendsCard(t *testing.T) {
	f := newNotifierFixture(ChatRouting{policy.RoleDCE: "oc_dce"})

	err := f.svc.HandleStatusChanged(context.Background(), statusChanged(workflow.StatusEnAttenteDCE))
	require.NoError(t, err)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, "oc_dce", msg.chatID)

	card, ok := msg.card.(map[string]interface{})
	require.True(t, ok)
	header := card["header"].(map[string]interface{})
	// due in 20h makes the request urgent
	assert.Equal(t, "red", header["template"])

	body := card["elements"].([]interface{})[0].(map[string]interface{})["text"].(map[string]interface{})["content"].(string)
	assert.Contains(t, body, "FRC-20260302-ABCDEF12")
	assert.Contains(t, body, "3000000.00")
	assert.Contains(t, body, "URGENTE")
	assert.Contains(t, body, "ELEVE")

	require.Len(t, f.notifications.notifications, 1)
	n := f.notifications.notifications[0]
	assert.Equal(t, entity.NotificationStatusSent, n.Status)
	assert.Equal(t, policy.RoleDCE, n.RecipientRole)
	assert.Equal(t, "request.status_changed", n.EventType)
}

func TestNotificationService_TerminalGoesToConseiller(t *testing.T) {
	f := newNotifierFixture(ChatRouting{policy.RoleConseiller: "oc_cons"})

	require.NoError(t, f.svc.HandleStatusChanged(context.Background(), statusChanged(workflow.StatusRejetee)))
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "oc_cons", f.sender.sent[0].chatID)
}

func TestNotificationService_NoChatConfigured(t *testing.T) {
	f := newNotifierFixture(ChatRouting{policy.RoleRM: "oc_rm"})

	require.NoError(t, f.svc.HandleStatusChanged(context.Background(), statusChanged(workflow.StatusEnAttenteADG)))
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.notifications.notifications)
}

func TestNotificationService_SendFailureIsRecorded(t *testing.T) {
	f := newNotifierFixture(ChatRouting{policy.RoleDCE: "oc_dce"})
	f.sender.sendErr = errors.New("bot is not in the chat")

	err := f.svc.HandleStatusChanged(context.Background(), statusChanged(workflow.StatusEnAttenteDCE))
	require.Error(t, err)

	require.Len(t, f.notifications.notifications, 1)
	n := f.notifications.notifications[0]
	assert.Equal(t, entity.NotificationStatusFailed, n.Status)
	assert.Equal(t, "bot is not in the chat", n.ErrorMessage)
}

func TestNotificationService_UnknownRequest(t *testing.T) {
	f := newNotifierFixture(ChatRouting{policy.RoleDCE: "oc_dce"})
	evt := statusChanged(workflow.StatusEnAttenteDCE)
	evt.RequestID = "missing"

	assert.Error(t, f.svc.HandleStatusChanged(context.Background(), evt))
	assert.Empty(t, f.sender.sent)
}

func TestNotificationService_SLABreached(t *testing.T) {
	tests := []struct {
		days int64
		want string
	}{
		{1, "échéance dans 1 jour(s)"},
		{0, "échue aujourd'hui"},
		{-2, "en retard de 2 jour(s)"},
	}

	for _, tt := range tests {
		f := newNotifierFixture(ChatRouting{policy.RoleDCE: "oc_dce"})
		evt := event.NewEvent(event.TypeSLABreached, "r1", "FRC-20260302-ABCDEF12", map[string]interface{}{
			event.KeyDaysLeft: tt.days,
		})

		require.NoError(t, f.svc.HandleSLABreached(context.Background(), evt))
		require.Len(t, f.sender.sent, 1)
		assert.Equal(t, "oc_dce", f.sender.sent[0].chatID)
		assert.Contains(t, f.sender.sent[0].text, tt.want)
		assert.Contains(t, f.sender.sent[0].text, "EN_ATTENTE_DCE")
		assert.Equal(t, "request.sla_breached", f.notifications.notifications[0].EventType)
	}
}
