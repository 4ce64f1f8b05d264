package notifier

import (
	"context"

	"github.com/aleister1102/dataspy/internal/models"
)

// Notifier delivers one change event to an external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, task models.MonitorTask, event models.ChangeEvent) error
}

// JSONPoster sends a JSON body with a POST request.
type JSONPoster interface {
	PostJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) error
}
