package notifier

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/aleister1102/dataspy/internal/notifier/discord"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPost struct {
	url     string
	payload interface{}
	headers map[string]string
}

type fakePoster struct {
	mu    sync.Mutex
	posts []recordedPost
	errs  []error
}

func (p *fakePoster) PostJSON(_ context.Context, url string, payload interface{}, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, recordedPost{url: url, payload: payload, headers: headers})
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

func testTask() models.MonitorTask {
	return models.MonitorTask{
		ID:       "task-1",
		Name:     "Widget price",
		URL:      "https://shop.example.com/widget",
		Strategy: models.PriceStrategy{Selector: ".price"},
	}
}

func testEvent() models.ChangeEvent {
	return models.ChangeEvent{
		ID:          "event-1",
		TaskID:      "task-1",
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ChangeType:  models.ChangePriceDropped,
		OldValue:    "19.99",
		NewValue:    "17.5",
		DiffSummary: "Price dropped from 19.99 to 17.50 (-12.46%)",
	}
}

func TestBuildDiscordPayload(t *testing.T) {
	payload, err := BuildDiscordPayload(testTask(), testEvent(), []string{"42"})
	require.NoError(t, err)

	assert.Equal(t, DiscordUsername, payload.Username)
	assert.Equal(t, "<@&42>", payload.Content)
	require.Len(t, payload.Embeds, 1)

	embed := payload.Embeds[0]
	assert.Equal(t, "Price dropped: Widget price", embed.Title)
	assert.Equal(t, "https://shop.example.com/widget", embed.URL)
	assert.Equal(t, PriceDropColor, embed.Color)
	assert.Equal(t, testEvent().DiffSummary, embed.Description)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "19.99", embed.Fields[1].Value)
	assert.Equal(t, "17.5", embed.Fields[2].Value)
}

func TestBuildDiscordPayload_LongSummary(t *testing.T) {
	event := testEvent()
	event.DiffSummary = strings.Repeat("x", 5000)
	payload, err := BuildDiscordPayload(testTask(), event, nil)
	require.NoError(t, err)
	assert.Len(t, payload.Embeds[0].Description, MaxSummaryLength)
	assert.Empty(t, payload.Content)
}

func TestDiscordNotifier_Notify(t *testing.T) {
	poster := &fakePoster{}
	n := NewDiscordNotifier("https://discord.example/webhook", nil, poster, zerolog.Nop())

	require.NoError(t, n.Notify(context.Background(), testTask(), testEvent()))
	require.Len(t, poster.posts, 1)
	assert.Equal(t, "https://discord.example/webhook", poster.posts[0].url)
	assert.IsType(t, discord.DiscordMessagePayload{}, poster.posts[0].payload)
}

func TestWebhookNotifier_Notify(t *testing.T) {
	poster := &fakePoster{}
	headers := map[string]string{"Authorization": "Bearer token"}
	n := NewWebhookNotifier("https://hooks.example/dataspy", headers, poster, zerolog.Nop())

	require.NoError(t, n.Notify(context.Background(), testTask(), testEvent()))
	require.Len(t, poster.posts, 1)

	payload, ok := poster.posts[0].payload.(WebhookPayload)
	require.True(t, ok)
	assert.Equal(t, "price_dropped", payload.Event.ChangeType)
	assert.Equal(t, "price", payload.Task.CheckType)
	assert.Equal(t, headers, poster.posts[0].headers)
}

func TestEmailNotifier_Notify(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	send := func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: 2525, From: "spy@example.com", To: []string{"ops@example.com"}}
	n := NewEmailNotifier(cfg, send, zerolog.Nop())

	event := testEvent()
	event.DiffSummary = `Price dropped <script>alert(1)</script>`
	require.NoError(t, n.Notify(context.Background(), testTask(), event))

	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: [DataSpy] Price dropped: Widget price\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.Contains(t, gotMsg, "19.99")
	assert.NotContains(t, gotMsg, "<script>")
}

func TestSanitizeHeader(t *testing.T) {
	assert.Equal(t, "subjectBcc: x", sanitizeHeader("subject\r\nBcc: x"))
}

type flakyNotifier struct {
	name  string
	fails int
	calls int
	err   error
}

func (f *flakyNotifier) Name() string { return f.name }

func (f *flakyNotifier) Notify(context.Context, models.MonitorTask, models.ChangeEvent) error {
	f.calls++
	if f.calls <= f.fails {
		return f.err
	}
	return nil
}

func dispatcherConfig() config.NotificationConfig {
	cfg := config.NewDefaultNotificationConfig()
	cfg.RetryAttempts = 3
	cfg.RetryDelayMs = 1
	return cfg
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	flaky := &flakyNotifier{name: "flaky", fails: 2, err: errors.New("connection reset")}
	d := NewDispatcher(dispatcherConfig(), []Notifier{flaky}, zerolog.Nop())

	require.NoError(t, d.Dispatch(context.Background(), testTask(), testEvent()))
	assert.Equal(t, 3, flaky.calls)
}

func TestDispatcher_DoesNotRetryClientErrors(t *testing.T) {
	rejected := &flakyNotifier{name: "rejected", fails: 10, err: common.NewHTTPErrorWithURL(400, "bad payload", "https://x")}
	ok := &flakyNotifier{name: "ok"}
	d := NewDispatcher(dispatcherConfig(), []Notifier{rejected, ok}, zerolog.Nop())

	err := d.Dispatch(context.Background(), testTask(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Equal(t, 1, rejected.calls)
	assert.Equal(t, 1, ok.calls, "one failing notifier must not stop the others")
}

func TestDispatcher_NotifyOnFilter(t *testing.T) {
	n := &flakyNotifier{name: "n"}
	cfg := dispatcherConfig()
	cfg.NotifyOn = []string{"price_rose"}
	d := NewDispatcher(cfg, []Notifier{n}, zerolog.Nop())

	require.NoError(t, d.Dispatch(context.Background(), testTask(), testEvent()))
	assert.Equal(t, 0, n.calls)
	assert.True(t, d.Wants(models.ChangePriceRose))
}

func TestNewDispatcherFromConfig(t *testing.T) {
	cfg := dispatcherConfig()
	assert.False(t, NewDispatcherFromConfig(cfg, &fakePoster{}, zerolog.Nop()).Enabled())

	cfg.DiscordWebhookURL = "https://discord.example/webhook"
	cfg.WebhookURL = "https://hooks.example/dataspy"
	cfg.SMTP = config.SMTPConfig{Host: "smtp.example.com", From: "a@example.com", To: []string{"b@example.com"}}
	d := NewDispatcherFromConfig(cfg, &fakePoster{}, zerolog.Nop())
	require.Len(t, d.notifiers, 3)
	assert.Equal(t, "discord", d.notifiers[0].Name())
	assert.Equal(t, "webhook", d.notifiers[1].Name())
	assert.Equal(t, "email", d.notifiers[2].Name())
}
