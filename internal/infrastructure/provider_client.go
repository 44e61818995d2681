package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/levtools/mediagrab/internal/domain"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// ProviderClient performs single round trips to third-party provider APIs
// and translates every failure into a *domain.AdapterError.
type ProviderClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewProviderClient creates a provider client. Retries are disabled: an
// adapter call is exactly one request.
func NewProviderClient(cfg domain.ProvidersConfig, timeout time.Duration, log *zap.Logger) *ProviderClient {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetHeader("Accept", "application/json, text/javascript, */*; q=0.01")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &ProviderClient{
		client: client,
		logger: log,
	}
}

// GetJSON issues a GET with query parameters and decodes a JSON object body
func (c *ProviderClient) GetJSON(ctx context.Context, endpoint string, query map[string]string) (map[string]any, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(endpoint)
	return c.decode(ctx, endpoint, resp, err)
}

// PostFormJSON issues a form-encoded POST and decodes a JSON object body
func (c *ProviderClient) PostFormJSON(ctx context.Context, endpoint string, form map[string]string) (map[string]any, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8").
		SetFormData(form).
		Post(endpoint)
	return c.decode(ctx, endpoint, resp, err)
}

// Close releases idle connections
func (c *ProviderClient) Close() error {
	return c.client.Close()
}

func (c *ProviderClient) decode(ctx context.Context, endpoint string, resp *resty.Response, err error) (map[string]any, error) {
	if err != nil {
		c.logger.Warn("Provider request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		msg := "could not reach provider"
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			msg = "provider request cancelled"
		} else if errors.Is(err, context.DeadlineExceeded) {
			msg = "provider request timed out"
		}
		return nil, &domain.AdapterError{Kind: domain.AdapterNetwork, Message: msg, Cause: err}
	}

	status := resp.StatusCode()
	c.logger.Debug("Provider responded",
		zap.String("endpoint", endpoint),
		zap.Int("status", status))

	if status < 200 || status > 299 {
		return nil, statusError(status)
	}

	raw := resp.Bytes()
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		c.logger.Warn("Provider returned malformed body",
			zap.String("endpoint", endpoint),
			zap.Int("length", len(raw)))
		return nil, &domain.AdapterError{
			Kind:    domain.AdapterMalformedResponse,
			Message: "provider returned an invalid response",
			Cause:   err,
		}
	}
	return body, nil
}

// statusError maps a non-2xx provider status onto an adapter error
func statusError(status int) *domain.AdapterError {
	switch {
	case status == http.StatusTooManyRequests:
		return &domain.AdapterError{
			Kind:       domain.AdapterRateLimited,
			Message:    "provider rate limit exceeded, try again later",
			StatusCode: status,
		}
	case status >= 500:
		return &domain.AdapterError{
			Kind:       domain.AdapterProviderUnavailable,
			Message:    "provider is temporarily unavailable",
			StatusCode: status,
		}
	case status == http.StatusNotFound:
		return &domain.AdapterError{
			Kind:       domain.AdapterNotFound,
			Message:    "content not found at provider",
			StatusCode: status,
		}
	}
	return &domain.AdapterError{
		Kind:       domain.AdapterHTTPStatus,
		Message:    fmt.Sprintf("provider returned HTTP %d", status),
		StatusCode: status,
	}
}

// providerError reports a failure the provider signalled inside a 2xx body
func providerError(msg string) *domain.AdapterError {
	if msg == "" {
		return &domain.AdapterError{Kind: domain.AdapterProviderError, Message: "provider could not process the url"}
	}
	return &domain.AdapterError{
		Kind:    domain.AdapterProviderError,
		Message: fmt.Sprintf("provider could not process the url: %s", msg),
	}
}

// missingField reports that a required part of the provider response is absent
func missingField(what string) *domain.AdapterError {
	return &domain.AdapterError{
		Kind:    domain.AdapterMissingField,
		Message: fmt.Sprintf("provider response is missing %s", what),
	}
}
