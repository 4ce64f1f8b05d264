package notifier

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog"
)

// Dispatcher fans change events out to every configured notifier. Delivery
// is best effort; failures never affect the recorded event.
type Dispatcher struct {
	notifiers []Notifier
	notifyOn  map[models.ChangeType]struct{}
	attempts  uint
	delay     time.Duration
	logger    zerolog.Logger
}

// NewDispatcher creates a Dispatcher over notifiers.
func NewDispatcher(cfg config.NotificationConfig, notifiers []Notifier, logger zerolog.Logger) *Dispatcher {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = config.DefaultNotifyRetryAttempts
	}
	var notifyOn map[models.ChangeType]struct{}
	if len(cfg.NotifyOn) > 0 {
		notifyOn = make(map[models.ChangeType]struct{}, len(cfg.NotifyOn))
		for _, ct := range cfg.NotifyOn {
			notifyOn[models.ChangeType(ct)] = struct{}{}
		}
	}
	return &Dispatcher{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		attempts:  uint(attempts),
		delay:     cfg.RetryDelay(),
		logger:    logger.With().Str("component", "NotificationDispatcher").Logger(),
	}
}

// NewDispatcherFromConfig builds the notifiers enabled in cfg.
func NewDispatcherFromConfig(cfg config.NotificationConfig, poster JSONPoster, logger zerolog.Logger) *Dispatcher {
	var notifiers []Notifier
	if cfg.DiscordWebhookURL != "" {
		notifiers = append(notifiers, NewDiscordNotifier(cfg.DiscordWebhookURL, cfg.MentionRoleIDs, poster, logger))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookHeaders, poster, logger))
	}
	if cfg.SMTP.Enabled() {
		notifiers = append(notifiers, NewEmailNotifier(cfg.SMTP, nil, logger))
	}
	return NewDispatcher(cfg, notifiers, logger)
}

// Enabled reports whether any notifier is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && len(d.notifiers) > 0
}

// Wants reports whether events of type ct are delivered.
func (d *Dispatcher) Wants(ct models.ChangeType) bool {
	if d.notifyOn == nil {
		return true
	}
	_, ok := d.notifyOn[ct]
	return ok
}

// Dispatch sends event through every notifier, retrying each one on its
// own. The returned error joins the failures of all notifiers.
func (d *Dispatcher) Dispatch(ctx context.Context, task models.MonitorTask, event models.ChangeEvent) error {
	if !d.Enabled() || !d.Wants(event.ChangeType) {
		return nil
	}

	var errs common.ErrorCollector
	for _, n := range d.notifiers {
		n := n
		err := retry.Do(
			func() error { return n.Notify(ctx, task, event) },
			retry.Attempts(d.attempts),
			retry.Delay(d.delay),
			retry.MaxDelay(30*time.Second),
			retry.Context(ctx),
			retry.RetryIf(isRetryable),
			retry.OnRetry(func(attempt uint, err error) {
				d.logger.Info().Str("notifier", n.Name()).Uint("attempt", attempt).Err(err).Msg("Retrying notification")
			}),
		)
		if err != nil {
			d.logger.Error().Err(err).Str("notifier", n.Name()).Str("event_id", event.ID).Msg("Notification failed")
			errs.AddWithContext(err, n.Name())
		}
	}
	return errs.Error()
}

// isRetryable rejects client errors other than rate limiting.
func isRetryable(err error) bool {
	var httpErr *common.HTTPError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode
		return code == http.StatusTooManyRequests || code >= 500
	}
	var validationErr *common.ValidationError
	return !errors.As(err, &validationErr)
}
