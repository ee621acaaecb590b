// telemetry/http_provider.go

// HTTP telemetry provider for staking backend feeds
// Features:
// - Fetches the validator telemetry snapshot from a JSON endpoint
// - Bounded request timeout, context-aware cancellation
// - Non-200 responses and malformed payloads surface as fetch errors
//   so the monitor keeps the previous snapshot

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds a single telemetry fetch
const DefaultRequestTimeout = 10 * time.Second

// HTTPProvider fetches telemetry from a staking backend endpoint that
// serves the snapshot as a JSON array of records.
type HTTPProvider struct {
	endpoint   string
	httpClient *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider creates a provider for the given endpoint URL
func NewHTTPProvider(endpoint string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
	}
}

// Fetch retrieves the current snapshot. Records without an operator id
// are dropped rather than failing the whole fetch.
func (p *HTTPProvider) Fetch(ctx context.Context) ([]ValidatorTelemetry, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry request: %v", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telemetry fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telemetry endpoint returned status %d", resp.StatusCode)
	}

	var records []ValidatorTelemetry
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode telemetry response: %v", err)
	}

	valid := records[:0]
	for _, rec := range records {
		if rec.OperatorID == "" {
			log.Warnw("dropping telemetry record without operator id")
			continue
		}
		valid = append(valid, rec)
	}

	return valid, nil
}
