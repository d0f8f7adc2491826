// Package inbox pulls inbound guest messages from the messaging provider into
// tenant conversations.
//
// Delivery is at-least-once: the provider is asked for updates after the
// stored cursor, and messages already present on a client are skipped by id.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"hospitality-ops/internal/events"
	"hospitality-ops/internal/metrics"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/telegram"
	"hospitality-ops/internal/tracing"
)

// TenantStore is the part of the tenant store the synchronizer needs.
type TenantStore interface {
	GetTenantData(tenantID string) *model.TenantData
	Update(ctx context.Context, tenantID string, fn func(d *model.TenantData) error) (*model.TenantData, error)
}

// Provider fetches updates with an id of at least offset.
type Provider interface {
	GetUpdates(ctx context.Context, token string, offset int64) ([]telegram.Update, error)
}

type Result struct {
	Count    int             `json:"count"`
	Messages []model.Message `json:"messages"`
}

// ReceivedEvent is the payload of message.received.
type ReceivedEvent struct {
	ClientPhone string        `json:"clientPhone"`
	ClientName  string        `json:"clientName"`
	Message     model.Message `json:"message"`
}

type Synchronizer struct {
	store    TenantStore
	provider Provider
	sink     events.Sink
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Synchronizer)

func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

func NewSynchronizer(store TenantStore, provider Provider, sink events.Sink, log *zap.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		provider: provider,
		sink:     sink,
		log:      log.With(zap.String("component", "inbox")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emptyResult() Result {
	return Result{Messages: []model.Message{}}
}

// Poll fetches pending updates for the tenant's bot and merges the text
// messages into the matching conversations. Provider failures yield an empty
// result. Only a failure to persist the merged state is returned.
func (s *Synchronizer) Poll(ctx context.Context, tenantID string) (res Result, err error) {
	ctx, end := tracing.Start(ctx, "inbox.poll", tenantID)
	defer func() { end(err) }()

	settings := s.store.GetTenantData(tenantID).AppSettings
	if settings.TgBotToken == "" {
		metrics.PollSkipped.WithLabelValues(tenantID, "no_token").Inc()
		return emptyResult(), nil
	}

	updates, err := s.provider.GetUpdates(ctx, settings.TgBotToken, settings.TgLastUpdateID+1)
	if err != nil {
		s.skip(tenantID, err)
		return emptyResult(), nil
	}
	if len(updates) == 0 {
		return emptyResult(), nil
	}

	res = emptyResult()
	var received []ReceivedEvent
	d, err := s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		res = emptyResult()
		received = nil

		cursor := d.AppSettings.TgLastUpdateID
		admin := d.AppSettings.TgAdminGroupID

		for _, u := range updates {
			if u.UpdateID > cursor {
				cursor = u.UpdateID
			}

			msg := u.Message
			if msg == nil || msg.Text == "" {
				continue
			}
			chatID := strconv.FormatInt(msg.Chat.ID, 10)
			if admin != "" && chatID == admin {
				continue
			}

			idx := d.FindClient(func(c *model.Client) bool {
				return c.Platform == model.PlatformTelegram && c.PlatformID == chatID
			})
			if idx < 0 {
				// A new conversation opens with one unread on top of the per-message increment below.
				d.Clients = append([]model.Client{s.newClient(chatID, msg.From)}, d.Clients...)
				idx = 0
			}
			client := &d.Clients[idx]

			m := model.Message{
				ID:        fmt.Sprintf("msg-%d", msg.MessageID),
				Text:      msg.Text,
				Sender:    model.SenderClient,
				Timestamp: time.Unix(msg.Date, 0).UTC(),
				Platform:  model.PlatformTelegram,
				Status:    model.MessageRead,
			}
			if client.HasMessage(m.ID) {
				continue
			}
			client.Messages = append(client.Messages, m)
			client.LastActive = m.Timestamp
			client.UnreadCount++

			res.Messages = append(res.Messages, m)
			received = append(received, ReceivedEvent{ClientPhone: client.PhoneNumber, ClientName: client.Name, Message: m})
		}

		d.AppSettings.TgLastUpdateID = cursor
		res.Count = len(res.Messages)
		return nil
	})
	if err != nil {
		return emptyResult(), fmt.Errorf("store polled messages: %w", err)
	}

	metrics.PollCursor.WithLabelValues(tenantID).Set(float64(d.AppSettings.TgLastUpdateID))
	metrics.MessagesPolled.WithLabelValues(tenantID).Add(float64(res.Count))
	if res.Count > 0 {
		s.log.Info("Inbound messages admitted",
			zap.String("tenant", tenantID),
			zap.Int("count", res.Count),
			zap.Int64("cursor", d.AppSettings.TgLastUpdateID))
	}
	for _, r := range received {
		events.Fire(ctx, s.sink, s.log, tenantID, model.EventMessageReceived, r)
	}
	return res, nil
}

func (s *Synchronizer) skip(tenantID string, err error) {
	reason := "provider_error"
	switch {
	case errors.Is(err, telegram.ErrUnreachable):
		reason = "unreachable"
	case errors.Is(err, telegram.ErrUnauthorized):
		reason = "unauthorized"
	}
	metrics.PollSkipped.WithLabelValues(tenantID, reason).Inc()

	if reason == "unreachable" {
		s.log.Debug("Provider unreachable, skipping poll", zap.String("tenant", tenantID), zap.Error(err))
		return
	}
	s.log.Warn("Poll failed", zap.String("tenant", tenantID), zap.String("reason", reason), zap.Error(err))
}

func (s *Synchronizer) newClient(chatID string, from *telegram.User) model.Client {
	var name string
	if from != nil {
		name = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}
	avatarName := name
	if avatarName == "" {
		avatarName = "U"
	}
	if name == "" {
		name = "User " + chatID
	}

	now := s.now()
	return model.Client{
		PhoneNumber: "tg-" + chatID,
		Name:        name,
		Avatar:      avatarURL(avatarName),
		Platform:    model.PlatformTelegram,
		PlatformID:  chatID,
		Status:      model.ClientStatusNew,
		UnreadCount: 1,
		Online:      true,
		LastActive:  now,
		CreatedAt:   now,
		Messages:    []model.Message{},
	}
}

func avatarURL(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=0088cc&color=fff",
		strings.ReplaceAll(url.QueryEscape(name), "+", "%20"))
}
