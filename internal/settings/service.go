// Package settings manages the per-tenant integration settings.
package settings

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/telegram"
)

const testNotification = "🔔 *ApartEl Test Notification*\n\nYour bot is successfully connected! You will receive system alerts here."

type TenantStore interface {
	GetTenantData(tenantID string) *model.TenantData
	Update(ctx context.Context, tenantID string, fn func(d *model.TenantData) error) (*model.TenantData, error)
}

// Notifier sends a plain text message through the provider.
type Notifier interface {
	SendMessage(ctx context.Context, token, chatID, text string) error
}

type Service struct {
	store    TenantStore
	notifier Notifier
	log      *zap.Logger
}

func NewService(store TenantStore, notifier Notifier, log *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, log: log.With(zap.String("component", "settings"))}
}

func (s *Service) Get(tenantID string) model.AppSettings {
	return s.store.GetTenantData(tenantID).AppSettings
}

// Update merges the fields present in patch into the settings. The poll
// cursor is owned by the inbox and cannot be changed here.
func (s *Service) Update(ctx context.Context, tenantID string, patch json.RawMessage) (model.AppSettings, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(patch, &probe); err != nil || probe == nil {
		return model.AppSettings{}, apperr.InvalidInput("appSettings must be an object")
	}

	d, err := s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		cursor := d.AppSettings.TgLastUpdateID
		if err := json.Unmarshal(patch, &d.AppSettings); err != nil {
			return apperr.Wrap(err, apperr.CodeInvalidInput, "invalid appSettings")
		}
		d.AppSettings.TgLastUpdateID = cursor
		return nil
	})
	if err != nil {
		return model.AppSettings{}, err
	}
	return d.AppSettings, nil
}

// TestTelegram sends a test notification. Empty token or chatID fall back to
// the stored bot token and admin group.
func (s *Service) TestTelegram(ctx context.Context, tenantID, token, chatID string) error {
	stored := s.Get(tenantID)
	if token == "" {
		token = stored.TgBotToken
	}
	if chatID == "" {
		chatID = stored.TgAdminGroupID
	}
	if token == "" || chatID == "" {
		return apperr.InvalidInput("Missing token or chat ID")
	}

	err := s.notifier.SendMessage(ctx, token, chatID, testNotification)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, telegram.ErrUnreachable):
		return &apperr.Error{Code: apperr.CodeServiceUnavailable, Message: "Network Error: Cannot reach Telegram servers.", Err: err}
	case errors.Is(err, telegram.ErrUnauthorized):
		return apperr.Wrap(err, apperr.CodeInvalidInput, "Invalid bot token")
	default:
		return apperr.Wrap(err, apperr.CodeInvalidInput, err.Error())
	}
}
