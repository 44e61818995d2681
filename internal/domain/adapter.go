package domain

import (
	"context"
	"fmt"
)

// AdapterKey is the composite registry key of a provider adapter
type AdapterKey struct {
	Platform    string `json:"platform"`
	ContentType string `json:"contentType"`
}

func (k AdapterKey) String() string {
	return fmt.Sprintf("%s-%s", k.Platform, k.ContentType)
}

// ProviderAdapter converts a content URL into a canonical result through one
// external provider.
type ProviderAdapter interface {
	// Execute performs exactly one round trip to the provider. It never
	// retries; every failure is returned as an *AdapterError.
	Execute(ctx context.Context, url string) (*DownloadResult, error)

	// Provider returns a short provider name for logs
	Provider() string
}

// AdapterFunc adapts a plain function to ProviderAdapter
type AdapterFunc func(ctx context.Context, url string) (*DownloadResult, error)

// Execute calls f
func (f AdapterFunc) Execute(ctx context.Context, url string) (*DownloadResult, error) {
	return f(ctx, url)
}

// Provider returns a fixed name for function adapters
func (f AdapterFunc) Provider() string {
	return "func"
}
