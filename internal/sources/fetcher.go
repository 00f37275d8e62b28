package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const userAgent = "sslfix/1.0 (root certificate installer)"

var (
	// ErrUnauthorizedSource reports a URL outside the allow-list.
	ErrUnauthorizedSource = errors.New("attempted to download a certificate from an unauthorized source")
	// ErrNetwork reports any transport or HTTP level download failure.
	ErrNetwork = errors.New("certificate download failed")
)

// HTTPClient is the subset of *http.Client used by Fetcher.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Fetcher downloads certificate bytes from allow-listed URLs.
type Fetcher struct {
	client    HTTPClient
	allowList AllowList
}

// NewFetcher constructs a Fetcher. A nil client falls back to http.DefaultClient.
func NewFetcher(client HTTPClient, allowList AllowList) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:    client,
		allowList: allowList,
	}
}

// Fetch performs a single GET and returns the full response body.
// URLs outside the allow-list fail before any request is built.
func (fetcher *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !fetcher.allowList.Permits(url) {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedSource, url)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrNetwork, err)
	}
	request.Header.Set("User-Agent", userAgent)

	response, err := fetcher.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrNetwork, response.Status)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrNetwork)
	}
	return data, nil
}
