package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

var emailTemplate = template.Must(template.New("change").Parse(`<!DOCTYPE html>
<html><body>
<h2>{{.Label}}: {{.TaskName}}</h2>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<table>
<tr><td><b>Check type</b></td><td>{{.CheckType}}</td></tr>
<tr><td><b>Old</b></td><td>{{.OldValue}}</td></tr>
<tr><td><b>New</b></td><td>{{.NewValue}}</td></tr>
<tr><td><b>Detected</b></td><td>{{.Timestamp}}</td></tr>
</table>
<p>{{.Summary}}</p>
</body></html>
`))

type emailView struct {
	Label     string
	TaskName  string
	URL       string
	CheckType string
	OldValue  string
	NewValue  string
	Timestamp string
	Summary   string
}

// EmailNotifier sends change events as HTML mail over SMTP.
type EmailNotifier struct {
	cfg       config.SMTPConfig
	send      SendMailFunc
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewEmailNotifier creates an EmailNotifier. A nil send uses smtp.SendMail.
func NewEmailNotifier(cfg config.SMTPConfig, send SendMailFunc, logger zerolog.Logger) *EmailNotifier {
	if send == nil {
		send = smtp.SendMail
	}
	return &EmailNotifier{
		cfg:       cfg,
		send:      send,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("module", "EmailNotifier").Logger(),
	}
}

// Name implements Notifier.
func (en *EmailNotifier) Name() string { return "email" }

// Notify implements Notifier.
func (en *EmailNotifier) Notify(ctx context.Context, task models.MonitorTask, event models.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := task.Name
	if name == "" {
		name = task.URL
	}
	subject := fmt.Sprintf("[DataSpy] %s: %s", changeLabel(event.ChangeType), name)

	body, err := en.renderBody(task, event, name)
	if err != nil {
		return err
	}
	msg := buildMessage(en.cfg.From, en.cfg.To, subject, body)

	port := en.cfg.Port
	if port == 0 {
		port = config.DefaultSMTPPort
	}
	addr := net.JoinHostPort(en.cfg.Host, strconv.Itoa(port))

	var auth smtp.Auth
	if en.cfg.Username != "" {
		auth = smtp.PlainAuth("", en.cfg.Username, en.cfg.Password, en.cfg.Host)
	}
	if err := en.send(addr, auth, en.cfg.From, en.cfg.To, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	en.logger.Info().Str("task_id", task.ID).Int("recipients", len(en.cfg.To)).Msg("Email notification sent")
	return nil
}

func (en *EmailNotifier) renderBody(task models.MonitorTask, event models.ChangeEvent, name string) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailView{
		Label:     changeLabel(event.ChangeType),
		TaskName:  name,
		URL:       task.URL,
		CheckType: string(task.CheckType()),
		OldValue:  event.OldValue,
		NewValue:  event.NewValue,
		Timestamp: event.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"),
		Summary:   event.DiffSummary,
	})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return en.sanitizer.Sanitize(buf.String()), nil
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var msg strings.Builder
	msg.WriteString("From: " + sanitizeHeader(from) + "\r\n")
	msg.WriteString("To: " + sanitizeHeader(strings.Join(to, ", ")) + "\r\n")
	msg.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	msg.WriteString(htmlBody)
	return []byte(msg.String())
}

// sanitizeHeader drops control characters so values cannot inject headers.
func sanitizeHeader(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
