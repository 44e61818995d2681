package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"
)

const requestTimeout = 90 * time.Second

// apiClient talks to the mediagrab HTTP API
type apiClient struct {
	client *resty.Client
}

func newAPIClient(baseURL string) *apiClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(requestTimeout)
	client.SetHeader("Content-Type", "application/json")
	return &apiClient{client: client}
}

// apiError is the error body returned by the server
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// do sends the request and decodes a successful body into out
func (a *apiClient) do(method, path string, body, out any) error {
	req := a.client.R()
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	raw := resp.Bytes()
	if resp.StatusCode() >= http.StatusBadRequest {
		e := &apiError{Status: resp.StatusCode()}
		_ = json.Unmarshal(raw, e)
		return e
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

func (a *apiClient) get(path string, out any) error {
	return a.do(http.MethodGet, path, nil, out)
}

func (a *apiClient) post(path string, body, out any) error {
	return a.do(http.MethodPost, path, body, out)
}

func (a *apiClient) put(path string, body, out any) error {
	return a.do(http.MethodPut, path, body, out)
}

func (a *apiClient) close() {
	_ = a.client.Close()
}
