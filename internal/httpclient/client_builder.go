package httpclient

import (
	"time"

	"github.com/aleister1102/dataspy/internal/config"
	"github.com/rs/zerolog"
)

// HTTPClientBuilder builds HTTP clients with fluent interface
type HTTPClientBuilder struct {
	config HTTPClientConfig
	logger zerolog.Logger
}

// NewHTTPClientBuilder creates a new HTTPClientBuilder with default configuration
func NewHTTPClientBuilder(logger zerolog.Logger) *HTTPClientBuilder {
	return &HTTPClientBuilder{
		config: DefaultHTTPClientConfig(),
		logger: logger,
	}
}

// WithMonitorConfig applies the fetch settings of the monitor section.
func (b *HTTPClientBuilder) WithMonitorConfig(cfg config.MonitorConfig) *HTTPClientBuilder {
	b.config.Timeout = cfg.HTTPTimeout()
	b.config.InsecureSkipVerify = cfg.InsecureSkipVerify
	b.config.FollowRedirects = cfg.FollowRedirects
	b.config.MaxRedirects = cfg.MaxRedirects
	b.config.MaxContentSize = cfg.MaxContentSize
	b.config.EnableHTTP2 = cfg.EnableHTTP2
	if cfg.UserAgent != "" {
		b.config.UserAgent = cfg.UserAgent
	}
	return b
}

// WithTimeout sets the default request timeout
func (b *HTTPClientBuilder) WithTimeout(timeout time.Duration) *HTTPClientBuilder {
	b.config.Timeout = timeout
	return b
}

// WithFollowRedirects sets whether to follow redirects
func (b *HTTPClientBuilder) WithFollowRedirects(follow bool) *HTTPClientBuilder {
	b.config.FollowRedirects = follow
	return b
}

// WithUserAgent sets the User-Agent header
func (b *HTTPClientBuilder) WithUserAgent(userAgent string) *HTTPClientBuilder {
	b.config.UserAgent = userAgent
	return b
}

// WithMaxContentSize sets the maximum content size to keep in bytes (0 for no limit)
func (b *HTTPClientBuilder) WithMaxContentSize(size int) *HTTPClientBuilder {
	b.config.MaxContentSize = size
	return b
}

// WithHTTP2 enables or disables HTTP/2 support
func (b *HTTPClientBuilder) WithHTTP2(enabled bool) *HTTPClientBuilder {
	b.config.EnableHTTP2 = enabled
	return b
}

// Build creates and returns a new HTTPClient
func (b *HTTPClientBuilder) Build() (*HTTPClient, error) {
	return NewHTTPClient(b.config, b.logger)
}
