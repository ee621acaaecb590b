// api/client.go

// Polling client library for staking dashboards

// Implements score polling with a fixed interval matching the server's
// telemetry refresh cadence (60s default)
// Provides ScorePoller for single operators with change callbacks
// Handles background polling and error recovery
// Report submission maps HTTP status codes back to the service's
// error taxonomy so callers can tell duplicates from transport faults

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stakeguard-labs/go-stakeguard/attestation"
)

// Client represents an API client for polling risk data
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ScoreResponse represents the response from the score endpoint
type ScoreResponse struct {
	OperatorID     string `json:"operator_id"`
	Score          int    `json:"score"`
	Classification string `json:"classification"`
	Stale          bool   `json:"stale"`
}

// GetScore fetches the current risk score for an operator
func (c *Client) GetScore(operatorID string) (*ScoreResponse, error) {
	url := fmt.Sprintf("%s/api/v1/validator/%s/score", c.baseURL, operatorID)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch score: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var score ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&score); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	return &score, nil
}

// EventsResponse represents the response from the events endpoint
type EventsResponse struct {
	OperatorID string `json:"operator_id"`
	Events     []struct {
		Reason    string `json:"reason"`
		Delta     int    `json:"delta"`
		Timestamp int64  `json:"timestamp"`
	} `json:"events"`
	Count int `json:"count"`
}

// GetEvents fetches the ordered score events for an operator
func (c *Client) GetEvents(operatorID string) (*EventsResponse, error) {
	url := fmt.Sprintf("%s/api/v1/validator/%s/events", c.baseURL, operatorID)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var events EventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	return &events, nil
}

// SubmitReport submits an incident report through the API. Duplicate
// and authentication rejections map back to the attestation package's
// sentinel errors.
func (c *Client) SubmitReport(reporterSeedHex, operatorID, incidentKind, severity, description string) (*attestation.Receipt, error) {
	body, err := json.Marshal(map[string]string{
		"reporter_seed": reporterSeedHex,
		"operator_id":   operatorID,
		"incident_kind": incidentKind,
		"severity":      severity,
		"description":   description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %v", err)
	}

	url := fmt.Sprintf("%s/api/v1/reports", c.baseURL)
	resp, err := c.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", attestation.ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		return nil, attestation.ErrAlreadyReported
	case http.StatusUnauthorized:
		return nil, attestation.ErrNotAuthenticated
	default:
		return nil, fmt.Errorf("%w: API returned status %d", attestation.ErrSubmissionFailed, resp.StatusCode)
	}

	var receipt attestation.Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %v", err)
	}

	return &receipt, nil
}

// ScorePoller handles periodic score polling for one operator
type ScorePoller struct {
	client     *Client
	operatorID string
	interval   time.Duration

	// Current state
	lastScore int
	seen      bool

	// Polling control
	ctx    context.Context
	cancel context.CancelFunc

	// Callbacks
	onScoreChange func(oldScore, newScore int)
	onError       func(error)
}

// NewScorePoller creates a new score poller for an operator
func NewScorePoller(client *Client, operatorID string) *ScorePoller {
	ctx, cancel := context.WithCancel(context.Background())

	return &ScorePoller{
		client:     client,
		operatorID: operatorID,
		interval:   60 * time.Second, // Matches server telemetry cadence
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetInterval sets the polling interval
func (sp *ScorePoller) SetInterval(interval time.Duration) {
	sp.interval = interval
}

// OnScoreChange sets a callback for when the score changes
func (sp *ScorePoller) OnScoreChange(callback func(oldScore, newScore int)) {
	sp.onScoreChange = callback
}

// OnError sets a callback for when errors occur
func (sp *ScorePoller) OnError(callback func(error)) {
	sp.onError = callback
}

// Start begins polling for score changes
func (sp *ScorePoller) Start() {
	go sp.pollLoop()
}

// Stop stops the polling
func (sp *ScorePoller) Stop() {
	sp.cancel()
}

func (sp *ScorePoller) pollLoop() {
	ticker := time.NewTicker(sp.interval)
	defer ticker.Stop()

	sp.poll()

	for {
		select {
		case <-sp.ctx.Done():
			return
		case <-ticker.C:
			sp.poll()
		}
	}
}

func (sp *ScorePoller) poll() {
	score, err := sp.client.GetScore(sp.operatorID)
	if err != nil {
		if sp.onError != nil {
			sp.onError(err)
		}
		return
	}

	if sp.seen && score.Score != sp.lastScore && sp.onScoreChange != nil {
		sp.onScoreChange(sp.lastScore, score.Score)
	}

	sp.lastScore = score.Score
	sp.seen = true
}
