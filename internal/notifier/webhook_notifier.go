package notifier

import (
	"context"
	"time"

	"github.com/aleister1102/dataspy/internal/models"
	"github.com/rs/zerolog"
)

// WebhookPayload is the JSON body of a generic webhook notification.
type WebhookPayload struct {
	Event WebhookEvent `json:"event"`
	Task  WebhookTask  `json:"task"`
}

// WebhookEvent is the event part of WebhookPayload.
type WebhookEvent struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ChangeType  string    `json:"change_type"`
	OldValue    string    `json:"old_value,omitempty"`
	NewValue    string    `json:"new_value,omitempty"`
	DiffSummary string    `json:"diff_summary"`
}

// WebhookTask is the task part of WebhookPayload.
type WebhookTask struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	CheckType string `json:"check_type"`
}

// WebhookNotifier posts change events as plain JSON.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	poster  JSONPoster
	logger  zerolog.Logger
}

// NewWebhookNotifier creates a WebhookNotifier. headers are sent with every request.
func NewWebhookNotifier(url string, headers map[string]string, poster JSONPoster, logger zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:     url,
		headers: headers,
		poster:  poster,
		logger:  logger.With().Str("module", "WebhookNotifier").Logger(),
	}
}

// Name implements Notifier.
func (wn *WebhookNotifier) Name() string { return "webhook" }

// Notify implements Notifier.
func (wn *WebhookNotifier) Notify(ctx context.Context, task models.MonitorTask, event models.ChangeEvent) error {
	payload := WebhookPayload{
		Event: WebhookEvent{
			ID:          event.ID,
			Timestamp:   event.Timestamp,
			ChangeType:  string(event.ChangeType),
			OldValue:    event.OldValue,
			NewValue:    event.NewValue,
			DiffSummary: event.DiffSummary,
		},
		Task: WebhookTask{
			ID:        task.ID,
			Name:      task.Name,
			URL:       task.URL,
			CheckType: string(task.CheckType()),
		},
	}
	if err := wn.poster.PostJSON(ctx, wn.url, payload, wn.headers); err != nil {
		return err
	}
	wn.logger.Debug().Str("task_id", task.ID).Msg("Webhook notification sent")
	return nil
}
