package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wiemBe/RoboMap/internal/httputil"
	"github.com/wiemBe/RoboMap/internal/monitoring"
)

const maxPayloadBytes = 4 << 10

// HTTPProvider polls a dispatch service with GET and reads the active
// station from an Availability payload
type HTTPProvider struct {
	url    string
	client httputil.HTTPClient
}

// NewHTTPProvider creates a provider for url. A nil client uses
// http.DefaultClient.
func NewHTTPProvider(url string, client httputil.HTTPClient) *HTTPProvider {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &HTTPProvider{url: url, client: client}
}

// URL returns the polled endpoint
func (p *HTTPProvider) URL() string { return p.url }

// ActiveTarget fetches the active station. Every failure is logged and
// reported as no target; the caller bounds the call through ctx.
func (p *HTTPProvider) ActiveTarget(ctx context.Context) (string, bool) {
	avail, err := p.fetch(ctx)
	if err != nil {
		monitoring.Logf("targets: poll %s: %v", p.url, err)
		return "", false
	}
	return avail.ID()
}

func (p *HTTPProvider) fetch(ctx context.Context) (Availability, error) {
	var avail Availability

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return avail, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return avail, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return avail, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return avail, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, &avail); err != nil {
		return avail, fmt.Errorf("malformed payload: %w", err)
	}
	return avail, nil
}
