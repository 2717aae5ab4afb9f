package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/application/port"
)

const (
	receiveIDTypeChat = "chat_id"
	msgTypeText       = "text"
	msgTypeCard       = "interactive"
)

// Messenger implements port.MessageSender on top of the IM message API
type Messenger struct {
	client *Client
	logger *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(client *Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// SendText posts a plain text message to a group chat
func (m *Messenger) SendText(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return errors.New("chatID cannot be empty")
	}
	if text == "" {
		return errors.New("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal text content: %w", err)
	}

	_, err = m.send(ctx, chatID, msgTypeText, string(content))
	return err
}

// SendCard posts an interactive card to a group chat
func (m *Messenger) SendCard(ctx context.Context, chatID string, card interface{}) error {
	if chatID == "" {
		return errors.New("chatID cannot be empty")
	}
	if card == nil {
		return errors.New("card cannot be nil")
	}

	content, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	_, err = m.send(ctx, chatID, msgTypeCard, string(content))
	return err
}

func (m *Messenger) send(ctx context.Context, chatID, msgType, content string) (string, error) {
	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeChat).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.SDK().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("chat_id", chatID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("chat_id", chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent",
		zap.String("message_id", messageID),
		zap.String("chat_id", chatID),
		zap.String("msg_type", msgType))

	return messageID, nil
}

// Verify interface compliance
var _ port.MessageSender = (*Messenger)(nil)
