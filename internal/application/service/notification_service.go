package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/forcing-workflow/internal/application/dispatcher"
	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/event"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// NotificationService tells the role that must act next about a request
type NotificationService interface {
	// Register subscribes the service to the events it reacts to
	Register(d dispatcher.Dispatcher)

	HandleStatusChanged(ctx context.Context, evt *event.Event) error
	HandleSLABreached(ctx context.Context, evt *event.Event) error
}

// ChatRouting maps a role to the Lark group chat its members watch
type ChatRouting map[policy.Role]string

type notificationServiceImpl struct {
	requestRepo      port.RequestRepository
	notificationRepo port.NotificationRepository
	messageSender    port.MessageSender
	calculator       *policy.Calculator
	chats            ChatRouting
	logger           Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	requestRepo port.RequestRepository,
	notificationRepo port.NotificationRepository,
	messageSender port.MessageSender,
	calculator *policy.Calculator,
	chats ChatRouting,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		requestRepo:      requestRepo,
		notificationRepo: notificationRepo,
		messageSender:    messageSender,
		calculator:       calculator,
		chats:            chats,
		logger:           logger,
	}
}

// Register subscribes the service to the events it reacts to
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeStatusChanged, "lark-status-notifier",
		"posts a card to the chat of the role that must act next", s.HandleStatusChanged)
	d.SubscribeNamed(event.TypeSLABreached, "lark-sla-notifier",
		"warns the responsible role that a request is about to miss its due date", s.HandleSLABreached)
}

// HandleStatusChanged posts a card to the chat of the role now responsible
func (s *notificationServiceImpl) HandleStatusChanged(ctx context.Context, evt *event.Event) error {
	req, err := s.requestRepo.GetByID(ctx, evt.RequestID)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "request_id", evt.RequestID)
		return fmt.Errorf("get request: %w", err)
	}

	to := workflow.Status(evt.GetPayloadString(event.KeyTo))
	role := recipientFor(to)
	chatID, ok := s.chats[role]
	if !ok || chatID == "" {
		s.logger.Info("No chat configured for role, skipping", "role", role, "request_id", req.ID)
		return nil
	}

	priority := s.calculator.Priority(req.Due(), req.Amount, req.ClientRating, req.OperationType)
	card := buildStatusCard(req, evt, priority)
	summary := fmt.Sprintf("%s: %s -> %s", req.Reference, evt.GetPayloadString(event.KeyFrom), to)

	return s.deliver(ctx, req.ID, evt.Type, role, chatID, summary, func() error {
		return s.messageSender.SendCard(ctx, chatID, card)
	})
}

// HandleSLABreached sends a text warning to the responsible role
func (s *notificationServiceImpl) HandleSLABreached(ctx context.Context, evt *event.Event) error {
	req, err := s.requestRepo.GetByID(ctx, evt.RequestID)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "request_id", evt.RequestID)
		return fmt.Errorf("get request: %w", err)
	}

	role := recipientFor(req.Status)
	chatID, ok := s.chats[role]
	if !ok || chatID == "" {
		s.logger.Info("No chat configured for role, skipping", "role", role, "request_id", req.ID)
		return nil
	}

	text := buildSLAMessage(req, evt.GetPayloadInt(event.KeyDaysLeft))
	return s.deliver(ctx, req.ID, evt.Type, role, chatID, text, func() error {
		return s.messageSender.SendText(ctx, chatID, text)
	})
}

// deliver records the notification, sends it and stores the outcome
func (s *notificationServiceImpl) deliver(ctx context.Context, requestID string, eventType event.Type, role policy.Role, chatID, content string, send func() error) error {
	n := &entity.Notification{
		RequestID:     requestID,
		EventType:     eventType.String(),
		RecipientRole: role,
		ChatID:        chatID,
		Content:       content,
		Status:        entity.NotificationStatusPending,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to record notification", "error", err, "request_id", requestID)
		return fmt.Errorf("create notification: %w", err)
	}

	if err := send(); err != nil {
		s.logger.Error("Failed to send notification", "error", err, "request_id", requestID, "chat_id", chatID)
		if markErr := s.notificationRepo.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
			s.logger.Error("Failed to mark notification failed", "error", markErr, "notification_id", n.ID)
		}
		return fmt.Errorf("send notification: %w", err)
	}

	if err := s.notificationRepo.MarkSent(ctx, n.ID); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}

	s.logger.Info("Notification sent",
		"request_id", requestID,
		"notification_id", n.ID,
		"role", role,
		"chat_id", chatID,
	)
	return nil
}

// recipientFor returns who hears about a request in status. Closed requests
// go back to the conseiller who followed them.
func recipientFor(status workflow.Status) policy.Role {
	if role, ok := decision.ResponsibleRole(status); ok {
		return role
	}
	return policy.RoleConseiller
}

func priorityTemplate(p policy.Priority) string {
	switch p {
	case policy.PriorityUrgente:
		return "red"
	case policy.PriorityHaute:
		return "orange"
	default:
		return "blue"
	}
}

// buildStatusCard renders a Lark interactive card for a transition
func buildStatusCard(req *entity.ForcingRequest, evt *event.Event, priority policy.Priority) map[string]interface{} {
	lines := []string{
		fmt.Sprintf("**Référence:** %s", req.Reference),
		fmt.Sprintf("**Statut:** %s → %s", evt.GetPayloadString(event.KeyFrom), evt.GetPayloadString(event.KeyTo)),
		fmt.Sprintf("**Action:** %s par %s", evt.GetPayloadString(event.KeyAction), evt.GetPayloadString(event.KeyActorRole)),
		fmt.Sprintf("**Montant:** %s", req.Amount.StringFixed(2)),
		fmt.Sprintf("**Agence:** %s", req.AgencyID),
		fmt.Sprintf("**Priorité:** %s", priority),
	}
	if tier := evt.GetPayloadString(event.KeyRiskTier); tier != "" {
		lines = append(lines, fmt.Sprintf("**Risque:** %s", tier))
	}
	if evt.GetPayloadBool(event.KeyEscalated) {
		lines = append(lines, "Remontée au niveau hiérarchique supérieur")
	}

	return map[string]interface{}{
		"config": map[string]interface{}{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"template": priorityTemplate(priority),
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": fmt.Sprintf("Demande de forçage %s", req.Reference),
			},
		},
		"elements": []interface{}{
			map[string]interface{}{
				"tag": "div",
				"text": map[string]interface{}{
					"tag":     "lark_md",
					"content": strings.Join(lines, "\n"),
				},
			},
		},
	}
}

func buildSLAMessage(req *entity.ForcingRequest, daysLeft int64) string {
	var when string
	switch {
	case daysLeft < 0:
		when = fmt.Sprintf("en retard de %d jour(s)", -daysLeft)
	case daysLeft == 0:
		when = "échue aujourd'hui"
	default:
		when = fmt.Sprintf("échéance dans %d jour(s)", daysLeft)
	}
	return fmt.Sprintf("⚠ Demande %s (%s, %s) en attente au statut %s: %s",
		req.Reference, req.Amount.StringFixed(2), req.AgencyID, req.Status, when)
}
