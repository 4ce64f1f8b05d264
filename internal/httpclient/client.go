package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

const maxErrorBodySize = 1024

// FetchResult is the body and metadata of a successful fetch.
type FetchResult struct {
	Body        []byte
	StatusCode  int
	ContentType string
	Truncated   bool
}

// HTTPClient wraps net/http.Client with the fetch semantics used by checks.
type HTTPClient struct {
	client *http.Client
	config HTTPClientConfig
	logger zerolog.Logger
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(cfg HTTPClientConfig, logger zerolog.Logger) (*HTTPClient, error) {
	logger = logger.With().Str("component", "HTTPClient").Logger()

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout: cfg.ExpectContinueTimeout,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in via config
		},
	}

	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
		}
	}

	client := &http.Client{Transport: transport}

	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if cfg.MaxRedirects > 0 {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		}
	}

	logger.Debug().
		Dur("timeout", cfg.Timeout).
		Bool("follow_redirects", cfg.FollowRedirects).
		Bool("http2_enabled", cfg.EnableHTTP2).
		Int("max_content_size", cfg.MaxContentSize).
		Msg("HTTP client created")

	return &HTTPClient{client: client, config: cfg, logger: logger}, nil
}

// Fetch performs one GET with a bounded timeout. A zero timeout uses the
// client default. Failures are *common.NetworkError or *common.HTTPError,
// both matching common.ErrTransport. There are no retries.
func (c *HTTPClient) Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*FetchResult, error) {
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, common.NewNetworkError(url, "invalid request", err)
	}
	c.applyHeaders(req, headers)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		reason := "request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout after " + timeout.String()
		}
		return nil, common.NewNetworkError(url, reason, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		c.logger.Debug().Str("url", url).Int("status_code", resp.StatusCode).Msg("Received non-2xx HTTP status")
		return nil, common.NewHTTPErrorWithURL(resp.StatusCode, string(errBody), url)
	}

	body, truncated, err := c.readBody(resp.Body)
	if err != nil {
		return nil, common.NewNetworkError(url, "failed to read response body", err)
	}
	if truncated {
		c.logger.Warn().
			Str("url", url).
			Int("max_content_size", c.config.MaxContentSize).
			Msg("Content size exceeds limit, truncating")
	}

	c.logger.Debug().
		Str("url", url).
		Int("status_code", resp.StatusCode).
		Int("content_size", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Fetched content")

	return &FetchResult{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Truncated:   truncated,
	}, nil
}

// PostJSON sends payload as a JSON body. Non-2xx responses are *common.HTTPError.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return common.WrapError(err, "failed to marshal payload")
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return common.NewNetworkError(url, "invalid request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return common.NewNetworkError(url, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return common.NewHTTPErrorWithURL(resp.StatusCode, string(errBody), url)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *HTTPClient) applyHeaders(req *http.Request, headers map[string]string) {
	for key, value := range c.config.CustomHeaders {
		req.Header.Set(key, value)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	// task headers override defaults, including the user agent
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}

func (c *HTTPClient) readBody(r io.Reader) ([]byte, bool, error) {
	if c.config.MaxContentSize <= 0 {
		body, err := io.ReadAll(r)
		return body, false, err
	}
	body, err := io.ReadAll(io.LimitReader(r, int64(c.config.MaxContentSize)+1))
	if err != nil {
		return nil, false, err
	}
	if len(body) > c.config.MaxContentSize {
		return body[:c.config.MaxContentSize], true, nil
	}
	return body, false, nil
}
