package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"hospitality-ops/internal/auth"
	"hospitality-ops/internal/booking"
	"hospitality-ops/internal/channel"
	"hospitality-ops/internal/inbox"
	"hospitality-ops/internal/logger"
	"hospitality-ops/internal/metrics"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/outbox"
	"hospitality-ops/internal/settings"
	"hospitality-ops/internal/store"
)

// EventLog serves the persisted tenant events.
type EventLog interface {
	ListEventsPaginated(ctx context.Context, tenantID, cursor string, limit int) ([]model.Event, string, error)
}

// PipelineScaler rescales the event workers of a tenant.
type PipelineScaler interface {
	SetWorkerCount(tenantID string, n int) error
}

// TenantHook runs after a tenant has been registered.
type TenantHook func(ctx context.Context, tenantID string) error

type Deps struct {
	Store     *store.Store
	Bookings  *booking.Service
	Channels  *channel.Service
	Inbox     *inbox.Synchronizer
	Outbox    *outbox.Dispatcher
	Settings  *settings.Service
	Issuer    *auth.Issuer
	Events    EventLog
	Pipelines PipelineScaler
	OnTenant  TenantHook
	Log       *zap.Logger
}

type API struct {
	Deps
	log *zap.Logger
}

func NewAPI(deps Deps) *API {
	return &API{
		Deps: deps,
		log:  deps.Log.With(zap.String("component", "api")),
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(a.Log))

	// Public
	r.Post("/auth/login", a.Login)
	r.Post("/auth/register", a.Register)
	r.Get("/cal/{tenantId}/{unitFile}", a.ExportCalendar)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Secured
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(a.Issuer, a.Store))

		r.Post("/auth/logout", a.Logout)

		r.Get("/bootstrap", a.Bootstrap)
		r.Post("/bootstrap/reset", a.ResetData)
		r.Post("/bootstrap/clear", a.ClearData)

		r.Get("/tenant", a.GetTenant)
		r.Put("/tenant", a.UpdateTenant)
		r.Put("/tenant/config/concurrency", a.UpdateConcurrency)

		r.Get("/bookings", a.ListBookings)
		r.Post("/bookings", a.CreateBooking)
		r.Put("/bookings/{id}/cleaner", a.AssignCleaner)
		r.Put("/bookings/{id}/status", a.SetBookingStatus)

		r.Get("/channels/mappings", a.GetMappings)
		r.Put("/channels/mappings", a.ReplaceMappings)
		r.Get("/channels/ical", a.GetIcal)
		r.Put("/channels/ical", a.ReplaceIcal)
		r.Get("/channels/ota", a.GetOTA)
		r.Put("/channels/ota", a.MergeOTA)
		r.Post("/channels/sync", a.SyncChannels)
		r.Delete("/portfolio/units/{unitId}", a.RemoveUnit)

		r.Post("/messages/send", a.SendMessage)
		r.Post("/messages/send/attachment", a.SendAttachment)
		r.Post("/messages/poll", a.PollMessages)

		r.Get("/settings", a.GetSettings)
		r.Put("/settings", a.UpdateSettings)
		r.Post("/settings/telegram/test", a.TestTelegram)

		r.Get("/events", a.ListEvents)
	})

	return r
}
