package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/auth"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/validation"
)

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RegisterRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OrgName string `json:"orgName" validate:"notblank"`
}

type SessionResponse struct {
	Success bool              `json:"success"`
	Token   string            `json:"token"`
	User    model.StaffMember `json:"user"`
	Tenant  *model.Tenant     `json:"tenant"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BootstrapResponse is everything the client needs after login.
type BootstrapResponse struct {
	User   model.StaffMember   `json:"user"`
	Tenant model.Tenant        `json:"tenant"`
	Staff  []model.StaffMember `json:"staff"`
	*model.TenantData
}

type EventPage struct {
	Data       []model.Event `json:"data"`
	NextCursor string        `json:"next_cursor"`
}

// @Summary Log in by staff email
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validation.Validate(body); err != nil {
		a.writeError(w, r, err)
		return
	}

	user, err := a.Store.StaffByEmail(body.Email)
	if err != nil {
		a.writeError(w, r, apperr.New(apperr.CodeUnauthorized, "User not found"))
		return
	}
	token, err := a.Issuer.GenerateToken(user.ID, user.TenantID, user.Email)
	if err != nil {
		a.writeError(w, r, fmt.Errorf("sign token: %w", err))
		return
	}
	if updated, err := a.Store.SetStaffPresence(r.Context(), user.ID, true); err == nil {
		user = updated
	} else {
		a.log.Warn("Failed to record login", zap.String("user", user.ID), zap.Error(err))
	}

	resp := SessionResponse{Success: true, Token: token, User: user}
	if tenant, err := a.Store.Tenant(user.TenantID); err == nil {
		resp.Tenant = &tenant
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Register an organisation and its first manager
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Organisation"
// @Success 201 {object} SessionResponse
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validation.Validate(body); err != nil {
		a.writeError(w, r, err)
		return
	}

	tenant := model.Tenant{
		ID:       "t-" + uuid.NewString(),
		Name:     strings.TrimSpace(body.OrgName),
		Plan:     "Free",
		Status:   "Active",
		MaxUnits: 1,
		Features: map[string]bool{"staffBot": false, "multiCalendar": true, "reports": false},
	}
	userID := "u-" + uuid.NewString()
	user := model.StaffMember{
		ID:       userID,
		TenantID: tenant.ID,
		Name:     strings.SplitN(body.Email, "@", 2)[0],
		Role:     "Manager",
		Email:    body.Email,
		Avatar:   fmt.Sprintf("https://picsum.photos/seed/%s/100/100", userID),
		Status:   "Active",
		Online:   true,
	}

	if err := a.Store.RegisterTenant(r.Context(), tenant, user); err != nil {
		a.writeError(w, r, err)
		return
	}
	if a.OnTenant != nil {
		if err := a.OnTenant(r.Context(), tenant.ID); err != nil {
			a.log.Warn("Tenant provisioning failed", zap.String("tenant", tenant.ID), zap.Error(err))
		}
	}

	token, err := a.Issuer.GenerateToken(user.ID, tenant.ID, user.Email)
	if err != nil {
		a.writeError(w, r, fmt.Errorf("sign token: %w", err))
		return
	}

	a.log.Info("Tenant registered", zap.String("tenant", tenant.ID))
	writeJSON(w, http.StatusCreated, SessionResponse{Success: true, Token: token, User: user, Tenant: &tenant})
}

// @Summary Log out
// @Tags Auth
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /auth/logout [post]
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := a.Store.SetStaffPresence(r.Context(), auth.GetUserID(r), false); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// @Summary Load the tenant snapshot
// @Tags Bootstrap
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} BootstrapResponse
// @Router /bootstrap [get]
func (a *API) Bootstrap(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.GetTenantID(r)

	user, err := a.Store.StaffMember(tenantID, auth.GetUserID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	tenant, err := a.Store.Tenant(tenantID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	staff := a.Store.Staff(tenantID)
	if staff == nil {
		staff = []model.StaffMember{}
	}
	writeJSON(w, http.StatusOK, BootstrapResponse{
		User:       user,
		Tenant:     tenant,
		Staff:      staff,
		TenantData: a.Store.GetTenantData(tenantID),
	})
}

// @Summary Reset the tenant data to the demo seed
// @Tags Bootstrap
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /bootstrap/reset [post]
func (a *API) ResetData(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.ResetTenant(r.Context(), auth.GetTenantID(r)); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Data reset to seed values"})
}

// @Summary Clear all tenant data, keeping settings
// @Tags Bootstrap
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /bootstrap/clear [post]
func (a *API) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.ClearTenant(r.Context(), auth.GetTenantID(r)); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "All data cleared"})
}

// @Summary Get the caller's tenant
// @Tags Tenants
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} model.Tenant
// @Router /tenant [get]
func (a *API) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := a.Store.Tenant(auth.GetTenantID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// @Summary Update plan, unit limit and features
// @Tags Tenants
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body model.TenantUpdate true "Changes"
// @Success 200 {object} model.Tenant
// @Router /tenant [put]
func (a *API) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var body model.TenantUpdate
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	tenant, err := a.Store.UpdateTenant(r.Context(), auth.GetTenantID(r), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// @Summary Update the event worker concurrency of the caller's tenant
// @Tags Tenants
// @Security ApiKeyAuth
// @Accept json
// @Param body body ConcurrencyConfig true "Concurrency config"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /tenant/config/concurrency [put]
func (a *API) UpdateConcurrency(w http.ResponseWriter, r *http.Request) {
	if a.Pipelines == nil {
		a.writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, "event pipeline is not enabled"))
		return
	}

	var body ConcurrencyConfig
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validation.Validate(body); err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.Pipelines.SetWorkerCount(auth.GetTenantID(r), body.Workers); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Get integration settings
// @Tags Settings
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} model.AppSettings
// @Router /settings [get]
func (a *API) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Settings.Get(auth.GetTenantID(r)))
}

// @Summary Merge integration settings
// @Tags Settings
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body model.AppSettings true "Fields to change"
// @Success 200 {object} model.AppSettings
// @Router /settings [put]
func (a *API) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		a.writeError(w, r, err)
		return
	}
	out, err := a.Settings.Update(r.Context(), auth.GetTenantID(r), raw)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type ConcurrencyConfig struct {
	Workers int `json:"workers" validate:"min=1,max=64"`
}

type TelegramTestRequest struct {
	Token  string `json:"token"`
	ChatID string `json:"chatId"`
}

// @Summary Send a Telegram test notification
// @Tags Settings
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body TelegramTestRequest false "Token and chat, defaults to the stored settings"
// @Success 200 {object} StatusResponse
// @Failure 503 {object} map[string]string
// @Router /settings/telegram/test [post]
func (a *API) TestTelegram(w http.ResponseWriter, r *http.Request) {
	var body TelegramTestRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	if err := a.Settings.TestTelegram(r.Context(), auth.GetTenantID(r), body.Token, body.ChatID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// @Summary List the tenant's event log
// @Tags Events
// @Security ApiKeyAuth
// @Produce json
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} EventPage
// @Router /events [get]
func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	if a.Events == nil {
		a.writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, "event log is not enabled"))
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			a.writeError(w, r, apperr.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = min(n, 100)
	}

	cursor := r.URL.Query().Get("cursor")
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			a.writeError(w, r, apperr.InvalidInput("invalid cursor"))
			return
		}
	}

	events, next, err := a.Events.ListEventsPaginated(r.Context(), auth.GetTenantID(r), cursor, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, EventPage{Data: events, NextCursor: next})
}

// @Summary Remove a unit with its channel records
// @Tags Portfolio
// @Security ApiKeyAuth
// @Param unitId path string true "Unit id"
// @Success 204
// @Router /portfolio/units/{unitId} [delete]
func (a *API) RemoveUnit(w http.ResponseWriter, r *http.Request) {
	if err := a.Channels.RemoveUnit(r.Context(), auth.GetTenantID(r), chi.URLParam(r, "unitId")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
