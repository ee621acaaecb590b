package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakeguard-labs/go-stakeguard/attestation"
	"github.com/stakeguard-labs/go-stakeguard/channel"
	"github.com/stakeguard-labs/go-stakeguard/config"
	"github.com/stakeguard-labs/go-stakeguard/crypto"
	"github.com/stakeguard-labs/go-stakeguard/scoring"
	"github.com/stakeguard-labs/go-stakeguard/telemetry"
)

func newTestServer(t *testing.T) (*Server, *scoring.Tracker) {
	t.Helper()

	tracker := scoring.NewTracker(nil)
	registry := attestation.NewMemoryRegistry()
	service := attestation.NewService(registry, tracker, attestation.DefaultRetryPolicy())

	secure, err := channel.NewSecureChannel(bytes.Repeat([]byte{0x42}, channel.KeySize))
	require.NoError(t, err)

	identity, err := crypto.NewPrivateKey()
	require.NoError(t, err)

	cfg := config.APIConfig{
		ListenAddr: ":0",
		WriteRate:  100,
		WriteBurst: 100,
	}

	server := NewServer(cfg, tracker, service, nil, secure, channel.NewStore(nil), identity)
	return server, tracker
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := make(map[string]interface{})
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestGetScoreEndpoint(t *testing.T) {
	server, tracker := newTestServer(t)

	tracker.UpdateTelemetry([]telemetry.ValidatorTelemetry{
		{OperatorID: "0xaaaa", UptimePct: 99.95, RecentRewardCount: 1, RecentVoteCount: 1},
	})

	rec, body := doJSON(t, server.Handler(), "GET", "/api/v1/validator/0xaaaa/score", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0xaaaa", body["operator_id"])
	require.Equal(t, float64(100), body["score"])
	require.Equal(t, "safe", body["classification"])
}

func TestGetScoreUnknownOperator(t *testing.T) {
	server, _ := newTestServer(t)

	// Unknown operators score against default telemetry, not 404
	rec, body := doJSON(t, server.Handler(), "GET", "/api/v1/validator/0xmissing/score", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(scoring.BaseScore), body["score"])
}

func TestGetTelemetryNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doJSON(t, server.Handler(), "GET", "/api/v1/validator/0xmissing/telemetry", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitReportEndpoint(t *testing.T) {
	server, tracker := newTestServer(t)
	tracker.UpdateTelemetry([]telemetry.ValidatorTelemetry{
		{OperatorID: "0xaaaa", UptimePct: 99.95, RecentRewardCount: 1, RecentVoteCount: 1},
	})

	report := map[string]string{
		"reporter_seed": strings.Repeat("ab", 32),
		"operator_id":   "0xaaaa",
		"incident_kind": "double_sign",
		"severity":      "critical",
		"description":   "equivocation observed",
	}

	rec, body := doJSON(t, server.Handler(), "POST", "/api/v1/reports", report)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, body["tx_id"])

	require.Equal(t, 60, tracker.GetScore("0xaaaa"))

	// Same reporter, same incident: conflict
	rec, body = doJSON(t, server.Handler(), "POST", "/api/v1/reports", report)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, body["error"], "already reported")

	// Score unchanged by the rejected duplicate
	require.Equal(t, 60, tracker.GetScore("0xaaaa"))
}

func TestSubmitReportWithoutKey(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doJSON(t, server.Handler(), "POST", "/api/v1/reports", map[string]string{
		"operator_id":   "0xaaaa",
		"incident_kind": "downtime",
		"severity":      "low",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitReportInvalidSeed(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doJSON(t, server.Handler(), "POST", "/api/v1/reports", map[string]string{
		"reporter_seed": "zz-not-hex",
		"operator_id":   "0xaaaa",
		"incident_kind": "downtime",
		"severity":      "low",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	rec, body := doJSON(t, server.Handler(), "POST", "/api/v1/messages", map[string]string{
		"sender_id": "0xsender",
		"plaintext": "validator 0xaaaa looks degraded",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	ciphertext, ok := body["ciphertext"].(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(ciphertext, channel.CiphertextPrefix))
	require.NotContains(t, ciphertext, "degraded")

	index := int(body["index"].(float64))

	// Listing shows ciphertext only before reveal
	rec, body = doJSON(t, server.Handler(), "GET", "/api/v1/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), body["count"])

	// Reveal decrypts server-side
	path := fmt.Sprintf("/api/v1/messages/%d/reveal", index)
	rec, body = doJSON(t, server.Handler(), "POST", path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["revealed"])
	require.Equal(t, "validator 0xaaaa looks degraded", body["plaintext"])

	// Second reveal conflicts
	rec, _ = doJSON(t, server.Handler(), "POST", path, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRevealMissingMessage(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doJSON(t, server.Handler(), "POST", "/api/v1/messages/3/reveal", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessageRequiresPlaintext(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doJSON(t, server.Handler(), "POST", "/api/v1/messages", map[string]string{
		"sender_id": "0xsender",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteRateLimit(t *testing.T) {
	tracker := scoring.NewTracker(nil)
	service := attestation.NewService(attestation.NewMemoryRegistry(), tracker, attestation.DefaultRetryPolicy())
	secure, err := channel.NewSecureChannel(bytes.Repeat([]byte{0x42}, channel.KeySize))
	require.NoError(t, err)
	identity, err := crypto.NewPrivateKey()
	require.NoError(t, err)

	cfg := config.APIConfig{ListenAddr: ":0", WriteRate: 1, WriteBurst: 2}
	server := NewServer(cfg, tracker, service, nil, secure, channel.NewStore(nil), identity)

	limited := false
	for i := 0; i < 5; i++ {
		rec, _ := doJSON(t, server.Handler(), "POST", "/api/v1/messages", map[string]string{
			"sender_id": "0xsender",
			"plaintext": "msg",
		})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	require.True(t, limited)

	// Reads stay unthrottled
	rec, _ := doJSON(t, server.Handler(), "GET", "/api/v1/validators", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetValidatorsEmpty(t *testing.T) {
	server, _ := newTestServer(t)

	rec, body := doJSON(t, server.Handler(), "GET", "/api/v1/validators", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(0), body["count"])

	// Empty list encodes as [], never null
	validators, ok := body["validators"].([]interface{})
	require.True(t, ok)
	require.Empty(t, validators)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec, body := doJSON(t, server.Handler(), "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", body["status"])
}
