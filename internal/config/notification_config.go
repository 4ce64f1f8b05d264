package config

import "time"

// SMTPConfig defines the mail relay used for email alerts.
type SMTPConfig struct {
	Host     string   `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int      `json:"port,omitempty" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	From     string   `json:"from,omitempty" yaml:"from,omitempty" validate:"omitempty,email"`
	To       []string `json:"to,omitempty" yaml:"to,omitempty" validate:"omitempty,dive,email"`
}

// Enabled reports whether enough settings are present to send mail.
func (sc SMTPConfig) Enabled() bool {
	return sc.Host != "" && sc.From != "" && len(sc.To) > 0
}

// NotificationConfig defines configuration for notifications
type NotificationConfig struct {
	DiscordWebhookURL string            `json:"discord_webhook_url,omitempty" yaml:"discord_webhook_url,omitempty" validate:"omitempty,url"`
	MentionRoleIDs    []string          `json:"mention_role_ids,omitempty" yaml:"mention_role_ids,omitempty"`
	WebhookURL        string            `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	WebhookHeaders    map[string]string `json:"webhook_headers,omitempty" yaml:"webhook_headers,omitempty"`
	SMTP              SMTPConfig        `json:"smtp,omitempty" yaml:"smtp,omitempty"`
	// NotifyOn restricts alerts to these change types. Empty means all.
	NotifyOn      []string `json:"notify_on,omitempty" yaml:"notify_on,omitempty" validate:"omitempty,dive,oneof=content_changed price_dropped price_rose available unavailable new_element"`
	RetryAttempts int      `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty" validate:"omitempty,min=1"`
	RetryDelayMs  int      `json:"retry_delay_ms,omitempty" yaml:"retry_delay_ms,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultNotificationConfig creates default notification configuration
func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		MentionRoleIDs: []string{},
		SMTP:           SMTPConfig{Port: DefaultSMTPPort},
		RetryAttempts:  DefaultNotifyRetryAttempts,
		RetryDelayMs:   DefaultNotifyRetryDelayMs,
	}
}

// RetryDelay returns the base delay between notification attempts.
func (nc NotificationConfig) RetryDelay() time.Duration {
	return time.Duration(nc.RetryDelayMs) * time.Millisecond
}
