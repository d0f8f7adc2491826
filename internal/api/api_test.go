package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/auth"
	"hospitality-ops/internal/booking"
	"hospitality-ops/internal/channel"
	"hospitality-ops/internal/events"
	"hospitality-ops/internal/inbox"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/outbox"
	"hospitality-ops/internal/settings"
	"hospitality-ops/internal/storage"
	"hospitality-ops/internal/store"
	"hospitality-ops/internal/telegram"
)

type fakeScaler struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeScaler) SetWorkerCount(tenantID string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.calls[tenantID]; !ok {
		return apperr.NotFound("no event pipeline for tenant " + tenantID)
	}
	f.calls[tenantID] = n
	return nil
}

func (f *fakeScaler) workers(tenantID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tenantID]
}

type testEnv struct {
	server   *httptest.Server
	store    *store.Store
	issuer   *auth.Issuer
	provider *httptest.Server
	fail     atomic.Bool

	mu      sync.Mutex
	tenants []string
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	env := &testEnv{}

	env.provider = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"ok":false,"description":"Bad Gateway"}`)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/getUpdates") {
			_, _ = io.WriteString(w, `{"ok":true,"result":[
				{"update_id":100,"message":{"message_id":1,"from":{"id":555,"first_name":"Ana"},"chat":{"id":555},"date":1704067200,"text":"Hello"}},
				{"update_id":101,"message":{"message_id":2,"from":{"id":555,"first_name":"Ana"},"chat":{"id":555},"date":1704067260,"text":"Anyone?"}}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	t.Cleanup(env.provider.Close)

	log := zap.NewNop()
	fs := storage.NewFileStorage(filepath.Join(t.TempDir(), "data.json"))
	env.store = store.New(fs, log, store.WithPublicBaseURL("http://cal.test"))
	require.NoError(t, env.store.Load(context.Background()))

	tg := telegram.NewClient(env.provider.URL, time.Second)
	sink := events.LogSink{Log: log}
	env.issuer = auth.NewIssuer("test-secret", time.Hour)

	deps := Deps{
		Store:    env.store,
		Bookings: booking.NewService(env.store, sink, log),
		Channels: channel.NewService(env.store, "http://cal.test", log),
		Inbox:    inbox.NewSynchronizer(env.store, tg, sink, log),
		Outbox:   outbox.NewDispatcher(env.store, tg, sink, log),
		Settings: settings.NewService(env.store, tg, log),
		Issuer:   env.issuer,
		OnTenant: func(_ context.Context, tenantID string) error {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.tenants = append(env.tenants, tenantID)
			return nil
		},
		Log: log,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.server = httptest.NewServer(NewAPI(deps).Router())
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) token(t *testing.T, userID, tenantID string) string {
	t.Helper()
	tok, err := e.issuer.GenerateToken(userID, tenantID, "")
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ALICE@demo.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var session SessionResponse
	require.NoError(t, json.Unmarshal(body, &session))
	assert.True(t, session.Success)
	assert.Equal(t, "s1", session.User.ID)
	require.NotNil(t, session.Tenant)
	assert.Equal(t, store.DemoTenantID, session.Tenant.ID)

	claims, err := env.issuer.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, store.DemoTenantID, claims.TenantID)

	resp, _ = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "nobody@demo.com"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/bootstrap", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterThenBootstrap(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "owner@acme.com", "orgName": "Acme"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var session SessionResponse
	require.NoError(t, json.Unmarshal(body, &session))
	require.NotNil(t, session.Tenant)
	env.mu.Lock()
	assert.Equal(t, []string{session.Tenant.ID}, env.tenants)
	env.mu.Unlock()

	resp, body = env.do(t, http.MethodGet, "/bootstrap", session.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var snap map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.JSONEq(t, `[]`, string(snap["bookings"]))
	assert.Contains(t, snap, "appSettings")
	assert.Contains(t, snap, "staff")

	resp, _ = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "owner@acme.com", "orgName": "Again"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBookingEndpoints(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "s1", store.DemoTenantID)

	resp, body := env.do(t, http.MethodPost, "/bookings", tok, map[string]any{"unitId": "u4", "startDate": "2030-01-10", "endDate": "2030-01-15"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodPost, "/bookings", tok, map[string]any{"unitId": "u4", "startDate": "2030-01-14", "endDate": "2030-01-20"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "already booked")

	resp, _ = env.do(t, http.MethodPost, "/bookings", tok, map[string]any{"unitId": "u4", "startDate": "2030-01-20", "endDate": "2030-01-18"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPut, "/bookings/b2/cleaner", tok, map[string]string{"staffId": "s2"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var b model.Booking
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, "s2", b.AssignedCleanerID)

	resp, _ = env.do(t, http.MethodPut, "/bookings/nope/status", tok, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/bookings", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []model.Booking
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 4)
}

func TestChannelSyncAndCalendarExport(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "s1", store.DemoTenantID)

	resp, body := env.do(t, http.MethodPost, "/channels/sync", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res channel.SyncResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Len(t, res.ChannelMappings, 4)

	resp, _ = env.do(t, http.MethodPut, "/channels/mappings", tok, map[string]string{"not": "an array"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/cal/"+store.DemoTenantID+"/u1.ics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar"))
	assert.Contains(t, string(body), "UID:b1@"+store.DemoTenantID)

	resp, _ = env.do(t, http.MethodGet, "/cal/"+store.DemoTenantID+"/u1.txt", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/cal/t-unknown/u1.ics", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPollAndSend(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "s1", store.DemoTenantID)

	resp, body := env.do(t, http.MethodPost, "/messages/poll", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var polled inbox.Result
	require.NoError(t, json.Unmarshal(body, &polled))
	assert.Equal(t, 2, polled.Count)
	assert.Equal(t, int64(101), env.store.GetTenantData(store.DemoTenantID).AppSettings.TgLastUpdateID)

	resp, body = env.do(t, http.MethodPost, "/messages/send", tok, map[string]string{"recipientId": "tg-555", "text": "Hi Ana", "platform": "telegram"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	env.fail.Store(true)
	resp, body = env.do(t, http.MethodPost, "/messages/send", tok, map[string]string{"recipientId": "tg-555", "text": "Again", "platform": "telegram"})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var failure map[string]any
	require.NoError(t, json.Unmarshal(body, &failure))
	assert.Equal(t, false, failure["success"])
	assert.Equal(t, true, failure["saved"])
	assert.Contains(t, failure["error"], "Bad Gateway")

	d := env.store.GetTenantData(store.DemoTenantID)
	c := d.Clients[d.FindClient(func(c *model.Client) bool { return c.PhoneNumber == "tg-555" })]
	require.Len(t, c.Messages, 4)
	assert.Equal(t, model.MessageSent, c.Messages[2].Status)
	assert.Equal(t, model.MessageFailed, c.Messages[3].Status)
}

func TestSendAttachmentMultipart(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "s1", store.DemoTenantID)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("recipientId", "555"))
	require.NoError(t, mw.WriteField("platform", "telegram"))
	fw, err := mw.CreateFormFile("file", "rules.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("No parties after 10pm."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/messages/send/attachment", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var res outbox.SendResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.NotNil(t, res.Message)
	assert.Equal(t, "[File] rules.txt", res.Message.Text)
	assert.Equal(t, "text/plain; charset=utf-8", res.Message.Attachment.Type)
}

func TestSettingsAndTenant(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "s1", store.DemoTenantID)

	resp, body := env.do(t, http.MethodPut, "/settings", tok, map[string]any{"autoDraft": false})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var s model.AppSettings
	require.NoError(t, json.Unmarshal(body, &s))
	assert.False(t, s.AutoDraft)
	assert.Equal(t, "123:ABC...", s.TgBotToken)

	resp, body = env.do(t, http.MethodPost, "/settings/telegram/test", tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodPut, "/tenant", tok, map[string]any{"plan": "Enterprise", "features": map[string]bool{"reports": false}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var tenant model.Tenant
	require.NoError(t, json.Unmarshal(body, &tenant))
	assert.Equal(t, "Enterprise", tenant.Plan)
	assert.False(t, tenant.Features["reports"])
	assert.True(t, tenant.Features["staffBot"])
}

func TestBootstrapResetAndClear(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "s1", store.DemoTenantID)

	resp, _ := env.do(t, http.MethodPost, "/bootstrap/clear", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, env.store.GetTenantData(store.DemoTenantID).Bookings)

	resp, _ = env.do(t, http.MethodPost, "/bootstrap/reset", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, env.store.GetTenantData(store.DemoTenantID).Bookings, 3)
}

func TestEventsWithoutLog(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "s1", store.DemoTenantID)

	resp, _ := env.do(t, http.MethodGet, "/events", tok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUpdateConcurrency(t *testing.T) {
	scaler := &fakeScaler{calls: map[string]int{store.DemoTenantID: 2}}
	env := newTestEnv(t, func(d *Deps) { d.Pipelines = scaler })
	tok := env.token(t, "s1", store.DemoTenantID)

	resp, body := env.do(t, http.MethodPut, "/tenant/config/concurrency", tok, map[string]int{"workers": 5})
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(body))
	assert.Equal(t, 5, scaler.workers(store.DemoTenantID))

	resp, _ = env.do(t, http.MethodPut, "/tenant/config/concurrency", tok, map[string]int{"workers": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 5, scaler.workers(store.DemoTenantID))

	resp, _ = env.do(t, http.MethodPut, "/tenant/config/concurrency", "", map[string]int{"workers": 3})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateConcurrencyWithoutPipeline(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "s1", store.DemoTenantID)

	resp, _ := env.do(t, http.MethodPut, "/tenant/config/concurrency", tok, map[string]int{"workers": 3})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
