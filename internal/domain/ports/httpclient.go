package ports

import (
	"net/http"
	"time"
)

// HTTPClient abstracts HTTP operations for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClientConfig holds configuration for HTTP client
type HTTPClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
}

// RealHTTPClient implements HTTPClient using standard HTTP client.
// Only transport failures are retried; any HTTP response is returned as is.
type RealHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

// NewRealHTTPClient creates a new real HTTP client implementation
func NewRealHTTPClient(config HTTPClientConfig) HTTPClient {
	return &RealHTTPClient{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// Do executes an HTTP request, replaying the body on retries
func (c *RealHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if req.Body != nil && req.GetBody == nil {
				// body already consumed and cannot be replayed
				return nil, err
			}
			if req.GetBody != nil {
				body, berr := req.GetBody()
				if berr != nil {
					return nil, berr
				}
				req.Body = body
			}
		}

		resp, err = c.client.Do(req)
		if err == nil {
			return resp, nil
		}

		// Don't retry on context cancellation
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if attempt < c.config.MaxRetries && c.config.RetryDelay > 0 {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}
	}

	return resp, err
}
