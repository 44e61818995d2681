package infrastructure

import (
	"context"
	"strings"

	"github.com/levtools/mediagrab/internal/domain"
)

// responseParser converts a decoded betabotz body into a canonical result
type responseParser func(body map[string]any) (*domain.DownloadResult, error)

// BetabotzAdapter calls one betabotz download endpoint and hands the body to
// a platform-specific parser.
type BetabotzAdapter struct {
	client  *ProviderClient
	baseURL string
	apiKey  string
	path    string
	parse   responseParser
}

// NewBetabotzAdapter creates an adapter for the endpoint at path
func NewBetabotzAdapter(client *ProviderClient, baseURL, apiKey, path string, parse responseParser) *BetabotzAdapter {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &BetabotzAdapter{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		path:    path,
		parse:   parse,
	}
}

// Provider returns the provider name and endpoint
func (a *BetabotzAdapter) Provider() string {
	return "betabotz/" + a.path
}

// Execute resolves url in one request
func (a *BetabotzAdapter) Execute(ctx context.Context, url string) (*domain.DownloadResult, error) {
	query := map[string]string{"url": url}
	if a.apiKey != "" {
		query["apikey"] = a.apiKey
	}

	body, err := a.client.GetJSON(ctx, a.baseURL+a.path, query)
	if err != nil {
		return nil, err
	}

	// a body with status false carries the provider's reason in message
	if status, ok := body["status"].(bool); ok && !status {
		return nil, providerError(firstString(body, "message", "msg"))
	}

	result, err := a.parse(body)
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, missingField("downloadable media")
	}
	if result.Kind == "" {
		result.Kind = domain.InferResultKind(result.Items)
	}
	return result, nil
}

// resultOf returns body.result, unwrapping the nested data object some
// endpoints use
func resultOf(body map[string]any) any {
	result := body["result"]
	if data := getMap(result, "data"); data != nil {
		return data
	}
	return result
}
