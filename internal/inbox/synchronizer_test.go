package inbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospitality-ops/internal/model"
	"hospitality-ops/internal/storage"
	"hospitality-ops/internal/store"
	"hospitality-ops/internal/telegram"
)

var fixedNow = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetUpdates(ctx context.Context, token string, offset int64) ([]telegram.Update, error) {
	args := m.Called(ctx, token, offset)
	updates, _ := args.Get(0).([]telegram.Update)
	return updates, args.Error(1)
}

type recordingSink struct {
	events []model.Event
}

func (r *recordingSink) Emit(_ context.Context, e model.Event) error {
	r.events = append(r.events, e)
	return nil
}

func textUpdate(updateID, messageID, chatID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID: messageID,
			From:      &telegram.User{ID: chatID, FirstName: "Ana", LastName: "Silva"},
			Chat:      telegram.Chat{ID: chatID, Type: "private"},
			Date:      1704067200 + messageID,
			Text:      text,
		},
	}
}

type fixture struct {
	store    *store.Store
	provider *mockProvider
	sink     *recordingSink
	sync     *Synchronizer
}

func newFixture(t *testing.T, settings model.AppSettings) *fixture {
	t.Helper()
	fs := storage.NewFileStorage(filepath.Join(t.TempDir(), "data.json"))
	st := store.New(fs, zap.NewNop(), store.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, st.Load(context.Background()))
	_, err := st.Update(context.Background(), "t1", func(d *model.TenantData) error {
		d.AppSettings = settings
		return nil
	})
	require.NoError(t, err)

	f := &fixture{store: st, provider: &mockProvider{}, sink: &recordingSink{}}
	f.sync = NewSynchronizer(st, f.provider, f.sink, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) settings() model.AppSettings {
	return f.store.GetTenantData("t1").AppSettings
}

func TestPollCreatesClientAndAdvancesCursor(t *testing.T) {
	f := newFixture(t, model.AppSettings{TgBotToken: "TOKEN", TgLastUpdateID: 99})
	f.provider.On("GetUpdates", mock.Anything, "TOKEN", int64(100)).Return([]telegram.Update{
		textUpdate(100, 1, 555, "Hello"),
		textUpdate(101, 2, 555, "Is parking included?"),
	}, nil).Once()

	res, err := f.sync.Poll(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "msg-1", res.Messages[0].ID)
	assert.Equal(t, model.MessageRead, res.Messages[0].Status)
	assert.Equal(t, model.SenderClient, res.Messages[0].Sender)

	assert.Equal(t, int64(101), f.settings().TgLastUpdateID)

	d := f.store.GetTenantData("t1")
	require.Len(t, d.Clients, 1)
	c := d.Clients[0]
	assert.Equal(t, "tg-555", c.PhoneNumber)
	assert.Equal(t, "555", c.PlatformID)
	assert.Equal(t, "Ana Silva", c.Name)
	assert.Equal(t, "https://ui-avatars.com/api/?name=Ana%20Silva&background=0088cc&color=fff", c.Avatar)
	assert.Equal(t, model.ClientStatusNew, c.Status)
	assert.Equal(t, 3, c.UnreadCount)
	assert.Len(t, c.Messages, 2)
	assert.Equal(t, time.Unix(1704067202, 0).UTC(), c.LastActive)

	require.Len(t, f.sink.events, 2)
	assert.Equal(t, model.EventMessageReceived, f.sink.events[0].Name)
	f.provider.AssertExpectations(t)
}

func TestPollSkipsDuplicates(t *testing.T) {
	f := newFixture(t, model.AppSettings{TgBotToken: "TOKEN"})
	f.provider.On("GetUpdates", mock.Anything, "TOKEN", int64(1)).Return([]telegram.Update{
		textUpdate(5, 10, 555, "Hi"),
	}, nil).Once()
	// The provider redelivers the same message under a new update id.
	f.provider.On("GetUpdates", mock.Anything, "TOKEN", int64(6)).Return([]telegram.Update{
		textUpdate(6, 10, 555, "Hi"),
	}, nil).Once()

	res, err := f.sync.Poll(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	res, err = f.sync.Poll(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Empty(t, res.Messages)

	c := f.store.GetTenantData("t1").Clients[0]
	assert.Len(t, c.Messages, 1)
	assert.Equal(t, 2, c.UnreadCount)
	assert.Equal(t, int64(6), f.settings().TgLastUpdateID)
}

func TestPollCursorNeverMovesBackwards(t *testing.T) {
	f := newFixture(t, model.AppSettings{TgBotToken: "TOKEN", TgLastUpdateID: 50})
	f.provider.On("GetUpdates", mock.Anything, "TOKEN", int64(51)).Return([]telegram.Update{
		textUpdate(40, 1, 555, "late"),
	}, nil).Once()

	_, err := f.sync.Poll(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), f.settings().TgLastUpdateID)
}

func TestPollIgnoresAdminGroupAndNonText(t *testing.T) {
	f := newFixture(t, model.AppSettings{TgBotToken: "TOKEN", TgAdminGroupID: "-100123"})
	f.provider.On("GetUpdates", mock.Anything, "TOKEN", int64(1)).Return([]telegram.Update{
		textUpdate(7, 1, -100123, "internal note"),
		{UpdateID: 8},
		{UpdateID: 9, Message: &telegram.Message{MessageID: 3, Chat: telegram.Chat{ID: 777}}},
	}, nil).Once()

	res, err := f.sync.Poll(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Empty(t, f.store.GetTenantData("t1").Clients)
	assert.Equal(t, int64(9), f.settings().TgLastUpdateID)
	assert.Empty(t, f.sink.events)
}

func TestPollAppendsToExistingClient(t *testing.T) {
	f := newFixture(t, model.AppSettings{TgBotToken: "TOKEN"})
	_, err := f.store.Update(context.Background(), "t1", func(d *model.TenantData) error {
		d.Clients = []model.Client{
			{PhoneNumber: "+1555", Name: "Known", Platform: model.PlatformWhatsApp},
			{PhoneNumber: "+1999", Name: "Jane", Platform: model.PlatformTelegram, PlatformID: "555", UnreadCount: 3, Messages: []model.Message{}},
		}
		return nil
	})
	require.NoError(t, err)
	f.provider.On("GetUpdates", mock.Anything, "TOKEN", int64(1)).Return([]telegram.Update{
		textUpdate(1, 4, 555, "Back again"),
	}, nil).Once()

	_, err = f.sync.Poll(context.Background(), "t1")
	require.NoError(t, err)

	d := f.store.GetTenantData("t1")
	require.Len(t, d.Clients, 2)
	assert.Equal(t, "Known", d.Clients[0].Name)
	assert.Equal(t, 4, d.Clients[1].UnreadCount)
	assert.Len(t, d.Clients[1].Messages, 1)
}

func TestPollNewClientIsPrepended(t *testing.T) {
	f := newFixture(t, model.AppSettings{TgBotToken: "TOKEN"})
	_, err := f.store.Update(context.Background(), "t1", func(d *model.TenantData) error {
		d.Clients = []model.Client{{PhoneNumber: "+1555", Name: "Known"}}
		return nil
	})
	require.NoError(t, err)
	u := textUpdate(1, 1, 42, "hey")
	u.Message.From = nil
	f.provider.On("GetUpdates", mock.Anything, "TOKEN", int64(1)).Return([]telegram.Update{u}, nil).Once()

	_, err = f.sync.Poll(context.Background(), "t1")
	require.NoError(t, err)

	d := f.store.GetTenantData("t1")
	require.Len(t, d.Clients, 2)
	assert.Equal(t, "tg-42", d.Clients[0].PhoneNumber)
	assert.Equal(t, "User 42", d.Clients[0].Name)
	assert.Contains(t, d.Clients[0].Avatar, "name=U&")
}

func TestPollWithoutTokenDoesNotCallProvider(t *testing.T) {
	f := newFixture(t, model.AppSettings{})

	res, err := f.sync.Poll(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.NotNil(t, res.Messages)
	f.provider.AssertNotCalled(t, "GetUpdates", mock.Anything, mock.Anything, mock.Anything)
}

func TestPollProviderFailuresYieldEmptyResult(t *testing.T) {
	for _, providerErr := range []error{telegram.ErrUnreachable, telegram.ErrUnauthorized, errors.New("telegram: Bad Gateway")} {
		t.Run(providerErr.Error(), func(t *testing.T) {
			f := newFixture(t, model.AppSettings{TgBotToken: "TOKEN", TgLastUpdateID: 10})
			f.provider.On("GetUpdates", mock.Anything, "TOKEN", int64(11)).Return(nil, providerErr).Once()

			res, err := f.sync.Poll(context.Background(), "t1")
			require.NoError(t, err)
			assert.Zero(t, res.Count)
			assert.Equal(t, int64(10), f.settings().TgLastUpdateID)
		})
	}
}
