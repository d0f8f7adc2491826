// Package outbox sends agent replies through the messaging provider and keeps
// the conversation history in step with the outcome.
package outbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/events"
	"hospitality-ops/internal/metrics"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/telegram"
	"hospitality-ops/internal/tracing"
	"hospitality-ops/internal/validation"
)

// TenantStore is the part of the tenant store the dispatcher needs.
type TenantStore interface {
	GetTenantData(tenantID string) *model.TenantData
	Update(ctx context.Context, tenantID string, fn func(d *model.TenantData) error) (*model.TenantData, error)
}

// Sender delivers messages through the provider.
type Sender interface {
	SendMessage(ctx context.Context, token, chatID, text string) error
	SendFile(ctx context.Context, token, chatID string, f telegram.File, caption string) error
}

type SendRequest struct {
	RecipientID string `json:"recipientId" validate:"notblank"`
	Text        string `json:"text" validate:"notblank"`
	Platform    string `json:"platform"`
}

type AttachmentRequest struct {
	RecipientID string `json:"recipientId" validate:"notblank"`
	Platform    string `json:"platform"`
	Caption     string `json:"caption"`
	File        telegram.File
}

type SendResult struct {
	Success bool           `json:"success"`
	Message *model.Message `json:"message,omitempty"`
}

// DeliveryEvent is the payload of message.sent and message.failed.
type DeliveryEvent struct {
	RecipientID string        `json:"recipientId"`
	Message     model.Message `json:"message"`
	Error       string        `json:"error,omitempty"`
}

type Dispatcher struct {
	store  TenantStore
	sender Sender
	sink   events.Sink
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(store TenantStore, sender Sender, sink events.Sink, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		sender: sender,
		sink:   sink,
		log:    log.With(zap.String("component", "outbox")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendMessage records the text as a pending agent message on the matching
// client, sends it and records the outcome. A provider failure is returned as
// ServiceUnavailable after the failed status has been saved.
func (d *Dispatcher) SendMessage(ctx context.Context, tenantID string, req SendRequest) (res SendResult, err error) {
	ctx, end := tracing.Start(ctx, "outbox.send_message", tenantID, attribute.String("recipient.id", req.RecipientID))
	defer func() { end(err) }()

	if err := validation.Validate(req); err != nil {
		return SendResult{}, apperr.InvalidInput("Recipient and text are required")
	}
	token, err := d.token(tenantID, req.Platform)
	if err != nil {
		return SendResult{}, err
	}

	msg := model.Message{
		ID:        "msg-agent-" + uuid.NewString(),
		Text:      req.Text,
		Sender:    model.SenderAgent,
		Timestamp: d.now().UTC(),
		Platform:  model.PlatformTelegram,
		Status:    model.MessageSending,
	}
	return d.dispatch(ctx, tenantID, req.RecipientID, msg, func(chatID string) error {
		return d.sender.SendMessage(ctx, token, chatID, req.Text)
	})
}

// SendAttachment is SendMessage for a file upload.
func (d *Dispatcher) SendAttachment(ctx context.Context, tenantID string, req AttachmentRequest) (res SendResult, err error) {
	ctx, end := tracing.Start(ctx, "outbox.send_attachment", tenantID, attribute.String("recipient.id", req.RecipientID))
	defer func() { end(err) }()

	if err := validation.Validate(req); err != nil || req.File.Name == "" || len(req.File.Data) == 0 {
		return SendResult{}, apperr.InvalidInput("Recipient and file are required")
	}
	token, err := d.token(tenantID, req.Platform)
	if err != nil {
		return SendResult{}, err
	}

	msg := model.Message{
		ID:        "msg-agent-" + uuid.NewString(),
		Text:      "[File] " + req.File.Name,
		Sender:    model.SenderAgent,
		Timestamp: d.now().UTC(),
		Platform:  model.PlatformTelegram,
		Status:    model.MessageSending,
		Attachment: &model.Attachment{
			Name: req.File.Name,
			Type: req.File.ContentType,
			Size: int64(len(req.File.Data)),
		},
	}
	return d.dispatch(ctx, tenantID, req.RecipientID, msg, func(chatID string) error {
		return d.sender.SendFile(ctx, token, chatID, req.File, req.Caption)
	})
}

func (d *Dispatcher) token(tenantID, platform string) (string, error) {
	if platform != model.PlatformTelegram {
		return "", apperr.InvalidInput("Unsupported platform or missing configuration")
	}
	token := d.store.GetTenantData(tenantID).AppSettings.TgBotToken
	if token == "" {
		return "", apperr.InvalidInput("Telegram bot not configured")
	}
	return token, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, tenantID, recipientID string, msg model.Message, send func(chatID string) error) (SendResult, error) {
	chatID := strings.TrimPrefix(recipientID, "tg-")
	matched := false

	_, err := d.store.Update(ctx, tenantID, func(td *model.TenantData) error {
		idx := td.FindClient(func(c *model.Client) bool { return matchesRecipient(c, recipientID) })
		if idx < 0 {
			return nil
		}
		c := &td.Clients[idx]
		if c.PlatformID != "" {
			chatID = c.PlatformID
		}
		c.Messages = append(c.Messages, msg)
		c.LastActive = msg.Timestamp
		matched = true
		return nil
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("record outbound message: %w", err)
	}
	if !matched {
		d.log.Info("No client matches recipient, sending without history",
			zap.String("tenant", tenantID), zap.String("recipient", recipientID))
	}

	sendErr := send(chatID)

	msg.Status = model.MessageSent
	if sendErr != nil {
		msg.Status = model.MessageFailed
	}
	if matched {
		// The outcome is recorded even when the caller has gone away.
		if err := d.setStatus(context.WithoutCancel(ctx), tenantID, msg.ID, msg.Status); err != nil {
			d.log.Error("Failed to record delivery status",
				zap.String("tenant", tenantID), zap.String("message", msg.ID), zap.Error(err))
		}
	}
	metrics.MessagesSent.WithLabelValues(tenantID, msg.Status).Inc()

	if sendErr != nil {
		d.log.Warn("Message send failed",
			zap.String("tenant", tenantID), zap.String("recipient", recipientID), zap.Error(sendErr))
		events.Fire(ctx, d.sink, d.log, tenantID, model.EventMessageFailed,
			DeliveryEvent{RecipientID: recipientID, Message: msg, Error: sendErr.Error()})
		return SendResult{}, apperr.Unavailable(sendErr, map[string]any{
			"success": false,
			"error":   sendErr.Error(),
			"saved":   true,
		})
	}

	events.Fire(ctx, d.sink, d.log, tenantID, model.EventMessageSent, DeliveryEvent{RecipientID: recipientID, Message: msg})
	return SendResult{Success: true, Message: &msg}, nil
}

func (d *Dispatcher) setStatus(ctx context.Context, tenantID, msgID, status string) error {
	_, err := d.store.Update(ctx, tenantID, func(td *model.TenantData) error {
		for i := range td.Clients {
			if td.Clients[i].SetMessageStatus(msgID, status) {
				return nil
			}
		}
		return nil
	})
	return err
}

// matchesRecipient accepts a client's platform id, its phone number or the
// tg-<platform id> form.
func matchesRecipient(c *model.Client, recipientID string) bool {
	if c.PhoneNumber == recipientID {
		return true
	}
	if c.PlatformID == "" {
		return false
	}
	return c.PlatformID == recipientID || "tg-"+c.PlatformID == recipientID
}
