package push_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/push"
	"github.com/dmitrymomot/propnotify/pkg/webhook"
)

func sampleNotification() notifications.Notification {
	return notifications.Notification{
		ID:         "n-1",
		SourceType: notifications.SourceMaintenanceRequest,
		Title:      "Leak",
		Body:       "Water under the sink",
		Category:   notifications.CategoryMaintenance,
		Priority:   notifications.PriorityUrgent,
		PropertyID: "p-9",
		Payload:    map[string]any{"unit": "4B"},
		CreatedAt:  time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Send(ctx context.Context, msg push.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestMessageFrom(t *testing.T) {
	t.Parallel()
	n := sampleNotification()
	msg := push.MessageFrom(n)

	assert.Equal(t, "n-1", msg.NotificationID)
	assert.Equal(t, notifications.PriorityUrgent, msg.Priority)
	assert.Equal(t, "p-9", msg.PropertyID)

	msg.Payload["unit"] = "changed"
	assert.Equal(t, "4B", n.Payload["unit"], "payload must be copied")

	assert.ErrorIs(t, push.Message{}.Validate(), push.ErrInvalidMessage)
	assert.NoError(t, msg.Validate())
}

func TestPreferences_Allows(t *testing.T) {
	t.Parallel()
	n := sampleNotification()
	low := n
	low.Priority = notifications.PriorityLow

	tests := []struct {
		name  string
		prefs push.Preferences
		n     notifications.Notification
		want  bool
	}{
		{"defaults", push.DefaultPreferences(), n, true},
		{"globally off", push.Preferences{}, n, false},
		{"category off", push.DefaultPreferences().WithCategory(notifications.CategoryMaintenance, false), n, false},
		{"other category off", push.DefaultPreferences().WithCategory(notifications.CategoryFinance, false), n, true},
		{"below min priority", push.Preferences{Enabled: true, MinPriority: notifications.PriorityHigh}, low, false},
		{"at min priority", push.Preferences{Enabled: true, MinPriority: notifications.PriorityUrgent}, n, true},
		{"invalid min priority ignored", push.Preferences{Enabled: true, MinPriority: "whatever"}, low, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.prefs.Allows(tt.n))
		})
	}
}

func TestConfig_Preferences(t *testing.T) {
	t.Parallel()
	cfg := push.Config{Enabled: true, DisabledCategories: []string{"Finance"}, MinPriority: "medium"}
	p := cfg.Preferences()
	assert.False(t, p.CategoryEnabled("Finance"))
	assert.True(t, p.CategoryEnabled("Maintenance"))
	assert.Equal(t, notifications.PriorityMedium, p.MinPriority)
}

func TestWebhookGateway(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		got    push.Message
		sigErr error
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		sigErr = webhook.VerifyRequest("secret", r.Header, body, time.Minute)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g, err := push.NewWebhookGateway(srv.URL, webhook.NewSender(webhook.WithSecret("secret"), webhook.WithLogger(logger.Discard())))
	require.NoError(t, err)
	require.NoError(t, g.Send(context.Background(), push.MessageFrom(sampleNotification())))

	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, sigErr)
	assert.Equal(t, "Leak", got.Title)
	assert.Equal(t, notifications.CategoryMaintenance, got.Category)

	_, err = push.NewWebhookGateway("not a url", nil)
	assert.ErrorIs(t, err, push.ErrInvalidConfig)
}

func TestWebhookGateway_PermanentFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	g, err := push.NewWebhookGateway(srv.URL, webhook.NewSender(webhook.WithLogger(logger.Discard())))
	require.NoError(t, err)
	err = g.Send(context.Background(), push.MessageFrom(sampleNotification()))
	assert.ErrorIs(t, err, push.ErrSendFailed)
	assert.ErrorIs(t, err, webhook.ErrPermanentFailure)
}

func postmarkConfig(baseURL string) push.PostmarkConfig {
	return push.PostmarkConfig{
		ServerToken:  "server-token",
		AccountToken: "account-token",
		SenderEmail:  "noreply@example.com",
		SupportEmail: "support@example.com",
		Recipient:    "manager@example.com",
		BaseURL:      baseURL,
	}
}

func TestPostmarkGateway(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		body map[string]any
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"To":"manager@example.com","MessageID":"m-1","ErrorCode":0,"Message":"OK"}`))
	}))
	defer srv.Close()

	g, err := push.NewPostmarkGateway(postmarkConfig(srv.URL), srv.Client())
	require.NoError(t, err)
	require.NoError(t, g.Send(context.Background(), push.MessageFrom(sampleNotification())))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasSuffix(path, "/email"), "path %q", path)
	assert.Equal(t, "[Maintenance] Leak", body["Subject"])
	assert.Equal(t, "manager@example.com", body["To"])
	assert.Equal(t, "maintenance", body["Tag"])
	assert.Contains(t, body["HtmlBody"], "Water under the sink")
}

func TestPostmarkGateway_ErrorCode(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":406,"Message":"Inactive recipient"}`))
	}))
	defer srv.Close()

	g, err := push.NewPostmarkGateway(postmarkConfig(srv.URL), srv.Client())
	require.NoError(t, err)
	err = g.Send(context.Background(), push.MessageFrom(sampleNotification()))
	assert.ErrorIs(t, err, push.ErrSendFailed)
}

func TestNewPostmarkGateway_InvalidConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(c *push.PostmarkConfig)
	}{
		{"missing token", func(c *push.PostmarkConfig) { c.ServerToken = "" }},
		{"bad sender", func(c *push.PostmarkConfig) { c.SenderEmail = "nope" }},
		{"missing recipient", func(c *push.PostmarkConfig) { c.Recipient = "" }},
		{"bad support", func(c *push.PostmarkConfig) { c.SupportEmail = "x@" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := postmarkConfig("")
			tt.mutate(&cfg)
			g, err := push.NewPostmarkGateway(cfg, nil)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, push.ErrInvalidConfig)
		})
	}
}

func TestDirGateway(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "outbox")
	g := push.NewDirGateway(dir)
	require.NoError(t, g.Send(context.Background(), push.MessageFrom(sampleNotification())))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_n-1.json"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	var msg push.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "Leak", msg.Title)
}

func TestMultiGateway(t *testing.T) {
	t.Parallel()
	msg := push.MessageFrom(sampleNotification())

	failing := &mockGateway{}
	failing.On("Send", mock.Anything, msg).Return(errors.New("down"))
	ok := &mockGateway{}
	ok.On("Send", mock.Anything, msg).Return(nil)

	m := push.NewMultiGateway(logger.Discard(), failing, nil, ok)
	assert.Equal(t, 2, m.Len())

	err := m.Send(context.Background(), msg)
	assert.EqualError(t, err, "down")
	failing.AssertExpectations(t)
	ok.AssertExpectations(t)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	g, err := push.NewFromConfig(push.Config{}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, push.NoOpGateway{}, g)
	assert.NoError(t, g.Send(context.Background(), push.Message{}))

	g, err = push.NewFromConfig(push.Config{WebhookURL: "https://hooks.example.com/n", Dir: t.TempDir()}, logger.Discard())
	require.NoError(t, err)
	multi, ok := g.(*push.MultiGateway)
	require.True(t, ok)
	assert.Equal(t, 2, multi.Len())

	_, err = push.NewFromConfig(push.Config{WebhookURL: "ftp://x"}, logger.Discard())
	assert.ErrorIs(t, err, push.ErrInvalidConfig)

	_, err = push.NewFromConfig(push.Config{Postmark: push.PostmarkConfig{ServerToken: "t"}}, logger.Discard())
	assert.ErrorIs(t, err, push.ErrInvalidConfig)
}
