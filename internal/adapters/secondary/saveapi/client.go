// Package saveapi is the HTTP client of the slide persistence API.
package saveapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 4 << 20

// Client talks to PUT /slides/save and GET /slides/{presentationId}/{index}
type Client struct {
	baseURL string
	token   string
	http    ports.HTTPClient
	logger  *slog.Logger
}

var _ ports.SaveClient = (*Client)(nil)

// NewClient creates a save API client. A nil httpClient gets a default one
// built from the config's timeout and retry settings.
func NewClient(cfg entities.SaveAPIConfig, httpClient ports.HTTPClient, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("save api base url is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = ports.NewRealHTTPClient(ports.HTTPClientConfig{
			Timeout:    cfg.GetTimeout(),
			MaxRetries: cfg.MaxRetries,
			UserAgent:  "slidekit",
		})
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		logger:  logger.With("service", "save_api_client"),
	}, nil
}

// Save sends the slide. A 409 becomes a *SaveError with Conflict set.
func (c *Client) Save(ctx context.Context, req entities.SaveRequest) (*entities.SaveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &entities.SaveError{Message: "invalid save request", Cause: err}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &entities.SaveError{Message: "encoding save request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/slides/save", bytes.NewReader(body))
	if err != nil {
		return nil, &entities.SaveError{Message: "building save request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &entities.SaveError{Message: "save request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &entities.SaveError{StatusCode: resp.StatusCode, Message: "reading save response", Cause: err}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var result entities.SaveResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, &entities.SaveError{StatusCode: resp.StatusCode, Message: "decoding save response", Cause: err}
		}
		c.logger.Debug("slide saved", "presentation", req.PresentationID, "index", req.SlideIndex, "version", result.Version)
		return &result, nil

	case http.StatusConflict:
		failure := decodeFailure(data)
		c.logger.Warn("save conflict", "presentation", req.PresentationID, "index", req.SlideIndex,
			"base_version", req.Metadata.Version, "server_version", failure.CurrentVersion)
		return nil, &entities.SaveError{
			StatusCode:     resp.StatusCode,
			Conflict:       true,
			Message:        failure.Error,
			CurrentVersion: failure.CurrentVersion,
		}

	default:
		failure := decodeFailure(data)
		return nil, &entities.SaveError{StatusCode: resp.StatusCode, Message: failure.Error}
	}
}

// Fetch loads the server copy of a slide
func (c *Client) Fetch(ctx context.Context, presentationID string, index int) (*entities.Slide, error) {
	endpoint := fmt.Sprintf("%s/slides/%s/%s", c.baseURL, url.PathEscape(presentationID), strconv.Itoa(index))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building fetch request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching slide: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading slide: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var slide entities.Slide
		if err := json.Unmarshal(data, &slide); err != nil {
			return nil, fmt.Errorf("decoding slide: %w", err)
		}
		return &slide, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("slide %s/%d: %w", presentationID, index, ports.ErrSlideNotFound)
	default:
		return nil, fmt.Errorf("fetching slide failed with status %d: %s", resp.StatusCode, decodeFailure(data).Error)
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// decodeFailure reads an error body, falling back to the raw text
func decodeFailure(data []byte) entities.SaveFailure {
	var failure entities.SaveFailure
	if err := json.Unmarshal(data, &failure); err != nil || failure.Error == "" {
		failure.Error = strings.TrimSpace(string(data))
		if failure.Error == "" {
			failure.Error = "no response body"
		}
	}
	return failure
}
