package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/auth"
	"hospitality-ops/internal/model"
)

// @Summary Get channel mappings
// @Tags Channels
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} model.ChannelMapping
// @Router /channels/mappings [get]
func (a *API) GetMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Channels.Mappings(auth.GetTenantID(r)))
}

// @Summary Replace channel mappings
// @Tags Channels
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body []model.ChannelMapping true "Mappings"
// @Success 200 {array} model.ChannelMapping
// @Router /channels/mappings [put]
func (a *API) ReplaceMappings(w http.ResponseWriter, r *http.Request) {
	var body []model.ChannelMapping
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, apperr.InvalidInput("mappings must be an array"))
		return
	}
	out, err := a.Channels.ReplaceMappings(r.Context(), auth.GetTenantID(r), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// @Summary Get iCal connections
// @Tags Channels
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} model.IcalConnection
// @Router /channels/ical [get]
func (a *API) GetIcal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Channels.IcalConnections(auth.GetTenantID(r)))
}

// @Summary Replace iCal connections
// @Tags Channels
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body []model.IcalConnection true "Connections"
// @Success 200 {array} model.IcalConnection
// @Router /channels/ical [put]
func (a *API) ReplaceIcal(w http.ResponseWriter, r *http.Request) {
	var body []model.IcalConnection
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, apperr.InvalidInput("icals must be an array"))
		return
	}
	out, err := a.Channels.ReplaceIcal(r.Context(), auth.GetTenantID(r), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// @Summary Get OTA configs
// @Tags Channels
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} map[string]model.OTAConfig
// @Router /channels/ota [get]
func (a *API) GetOTA(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Channels.OTAConfigs(auth.GetTenantID(r)))
}

// @Summary Merge OTA configs
// @Tags Channels
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body map[string]model.OTAConfig true "Configs by channel"
// @Success 200 {object} map[string]model.OTAConfig
// @Router /channels/ota [put]
func (a *API) MergeOTA(w http.ResponseWriter, r *http.Request) {
	var body map[string]model.OTAConfig
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, apperr.InvalidInput("otaConfigs must be an object"))
		return
	}
	out, err := a.Channels.MergeOTA(r.Context(), auth.GetTenantID(r), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// @Summary Rebuild mappings and iCal connections from the portfolio
// @Tags Channels
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} channel.SyncResult
// @Router /channels/sync [post]
func (a *API) SyncChannels(w http.ResponseWriter, r *http.Request) {
	res, err := a.Channels.Sync(r.Context(), auth.GetTenantID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary iCal export feed of a unit
// @Tags Channels
// @Produce text/calendar
// @Param tenantId path string true "Tenant id"
// @Param unitFile path string true "Unit id followed by .ics"
// @Success 200 {string} string
// @Router /cal/{tenantId}/{unitFile} [get]
func (a *API) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	unitID, ok := strings.CutSuffix(chi.URLParam(r, "unitFile"), ".ics")
	if !ok || unitID == "" {
		a.writeError(w, r, apperr.NotFound("calendar not found"))
		return
	}
	tenantID := chi.URLParam(r, "tenantId")
	if _, err := a.Store.Tenant(tenantID); err != nil {
		a.writeError(w, r, apperr.NotFound("calendar not found"))
		return
	}

	feed, err := a.Channels.ExportCalendar(tenantID, unitID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+unitID+`.ics"`)
	_, _ = w.Write(feed)
}
