package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/forcing-workflow/internal/application/dispatcher"
	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/event"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockRequestRepo struct {
	mu        sync.Mutex
	requests  map[string]*entity.ForcingRequest
	createErr error
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[string]*entity.ForcingRequest)}
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.ForcingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*entity.ForcingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, port.ErrNotFound)
	}
	cp := *req
	return &cp, nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter entity.RequestFilter) ([]*entity.ForcingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ForcingRequest
	for _, r := range m.requests {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id string, expected, next workflow.Status, assignedTo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return port.ErrNotFound
	}
	if req.Status != expected {
		return port.ErrStaleStatus
	}
	req.Status = next
	if assignedTo != "" {
		req.AssignedTo = assignedTo
	}
	return nil
}

func (m *mockRequestRepo) ListDueBefore(ctx context.Context, t time.Time, statuses []workflow.Status, limit int) ([]*entity.ForcingRequest, error) {
	return nil, nil
}

func (m *mockRequestRepo) MarkSLABreached(ctx context.Context, id string, at time.Time) error {
	return nil
}

type mockHistoryRepo struct {
	mu        sync.Mutex
	histories []*entity.StatusHistory
}

func (m *mockHistoryRepo) Append(ctx context.Context, h *entity.StatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = int64(len(m.histories) + 1)
	m.histories = append(m.histories, h)
	return nil
}

func (m *mockHistoryRepo) GetByRequestID(ctx context.Context, requestID string) ([]*entity.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*entity.StatusHistory{}
	for _, h := range m.histories {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*entity.Notification
	createErr     error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = int64(len(m.notifications) + 1)
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[id-1].Status = entity.NotificationStatusSent
	return nil
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[id-1].Status = entity.NotificationStatusFailed
	m.notifications[id-1].ErrorMessage = errorMsg
	return nil
}

func (m *mockNotificationRepo) GetByRequestID(ctx context.Context, requestID string) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.notifications {
		if n.RequestID == requestID {
			out = append(out, n)
		}
	}
	return out, nil
}

type sentMessage struct {
	chatID string
	text   string
	card   interface{}
}

type mockMessageSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
}

func (m *mockMessageSender) SendText(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *mockMessageSender) SendCard(ctx context.Context, chatID string, card interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, card: card})
	return nil
}

type mockDispatcher struct {
	mu         sync.Mutex
	events     []*event.Event
	subscribed []string
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name, description string, handler dispatcher.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, eventType.String()+"/"+name)
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	_ = m.Dispatch(ctx, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *mockDispatcher) Close() error {
	return nil
}

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
