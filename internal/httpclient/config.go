package httpclient

import "time"

// HTTPClientConfig holds transport and request settings.
type HTTPClientConfig struct {
	Timeout               time.Duration     // default per-request timeout
	InsecureSkipVerify    bool              // skip TLS verification
	FollowRedirects       bool              // whether to follow redirects
	MaxRedirects          int               // maximum number of redirects to follow
	CustomHeaders         map[string]string // headers added to every request
	UserAgent             string            // User-Agent header
	MaxContentSize        int               // bytes kept from a body, 0 for no limit
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ExpectContinueTimeout time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	EnableHTTP2           bool
}

// DefaultHTTPClientConfig returns a default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:               30 * time.Second,
		FollowRedirects:       true,
		MaxRedirects:          10,
		UserAgent:             "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
		EnableHTTP2:           true,
		CustomHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	}
}
