// api/server.go

// Main HTTP REST API server for risk and attestation data access

// Provides clean REST endpoints for stakers and dashboards to query validator risk
// Handles scores, score events, telemetry, report submission and group messages
// Uses Gorilla Mux for routing, includes CORS support and logging middleware
// Designed for HTTP polling approach - simple, reliable, cacheable endpoints
// Write endpoints are rate limited; reads are unthrottled

package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/stakeguard-labs/go-stakeguard/attestation"
	"github.com/stakeguard-labs/go-stakeguard/channel"
	"github.com/stakeguard-labs/go-stakeguard/config"
	"github.com/stakeguard-labs/go-stakeguard/crypto"
	"github.com/stakeguard-labs/go-stakeguard/scoring"
	"github.com/stakeguard-labs/go-stakeguard/telemetry"
)

// Server represents the HTTP API server
type Server struct {
	tracker  *scoring.Tracker
	service  *attestation.Service
	monitor  *telemetry.Monitor
	secure   *channel.SecureChannel
	messages *channel.Store
	identity crypto.PrivateKey

	cfg     config.APIConfig
	limiter *rate.Limiter
	router  *mux.Router
	server  *http.Server
}

// NewServer creates a new API server. identity signs messages posted
// through the HTTP surface.
func NewServer(
	cfg config.APIConfig,
	tracker *scoring.Tracker,
	service *attestation.Service,
	monitor *telemetry.Monitor,
	secure *channel.SecureChannel,
	messages *channel.Store,
	identity crypto.PrivateKey,
) *Server {
	server := &Server{
		tracker:  tracker,
		service:  service,
		monitor:  monitor,
		secure:   secure,
		messages: messages,
		identity: identity,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.WriteRate), cfg.WriteBurst),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	// API version prefix
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Score endpoints
	api.HandleFunc("/validator/{operator}/score", s.getScore).Methods("GET")
	api.HandleFunc("/validator/{operator}/events", s.getEvents).Methods("GET")
	api.HandleFunc("/validator/{operator}/telemetry", s.getTelemetry).Methods("GET")
	api.HandleFunc("/validators", s.getValidators).Methods("GET")

	// Report endpoints
	api.HandleFunc("/reports", s.rateLimited(s.submitReport)).Methods("POST")

	// Message endpoints
	api.HandleFunc("/messages", s.getMessages).Methods("GET")
	api.HandleFunc("/messages", s.rateLimited(s.postMessage)).Methods("POST")
	api.HandleFunc("/messages/{index}/reveal", s.rateLimited(s.revealMessage)).Methods("POST")

	// Status endpoints
	api.HandleFunc("/status", s.getStatus).Methods("GET")
	api.HandleFunc("/health", s.getHealth).Methods("GET")

	if s.cfg.EnableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
		s.router.Use(c.Handler)
	}

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.jsonMiddleware)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("🌐 API Server starting on %s", s.cfg.ListenAddr)
	log.Printf("📊 Health check: http://localhost%s/api/v1/health", s.cfg.ListenAddr)
	log.Printf("🛡️ Score endpoint: http://localhost%s/api/v1/validator/{operator}/score", s.cfg.ListenAddr)

	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Handler returns the configured router, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Score endpoints

func (s *Server) getScore(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	operator := vars["operator"]

	risk := s.tracker.GetRisk(operator)

	response := map[string]interface{}{
		"operator_id":    operator,
		"score":          risk.Value,
		"classification": risk.Classification,
		"stale":          s.monitor != nil && s.monitor.IsStale(),
	}

	s.writeJSON(w, response)
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	operator := vars["operator"]

	events := s.tracker.GetEvents(operator)

	response := map[string]interface{}{
		"operator_id": operator,
		"events":      events,
		"count":       len(events),
	}

	s.writeJSON(w, response)
}

func (s *Server) getTelemetry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	operator := vars["operator"]

	rec, ok := s.tracker.Telemetry(operator)
	if !ok {
		s.writeError(w, "Validator not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, rec)
}

func (s *Server) getValidators(w http.ResponseWriter, r *http.Request) {
	operators := s.tracker.Operators()

	// Initialized so the empty case encodes as [] rather than null
	validators := make([]map[string]interface{}, 0, len(operators))
	for _, op := range operators {
		risk := s.tracker.GetRisk(op)
		validators = append(validators, map[string]interface{}{
			"operator_id":    op,
			"score":          risk.Value,
			"classification": risk.Classification,
		})
	}

	response := map[string]interface{}{
		"validators": validators,
		"count":      len(validators),
	}

	s.writeJSON(w, response)
}

// Report endpoints

// submitReportRequest carries one incident report. The reporter seed
// stays client-side in production deployments; accepting it here is a
// dev-mode convenience for dashboards without local key management.
type submitReportRequest struct {
	ReporterSeed string `json:"reporter_seed"`
	OperatorID   string `json:"operator_id"`
	IncidentKind string `json:"incident_kind"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
}

func (s *Server) submitReport(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var reporterKey crypto.PrivateKey
	if req.ReporterSeed != "" {
		seed, err := hex.DecodeString(req.ReporterSeed)
		if err != nil {
			s.writeError(w, "Invalid reporter seed", http.StatusBadRequest)
			return
		}
		reporterKey, err = crypto.NewPrivateKeyFromSeed(seed)
		if err != nil {
			s.writeError(w, "Invalid reporter seed", http.StatusBadRequest)
			return
		}
	}

	receipt, err := s.service.SubmitReport(
		r.Context(),
		reporterKey,
		req.OperatorID,
		req.IncidentKind,
		attestation.Severity(req.Severity),
		req.Description,
	)
	if err != nil {
		switch {
		case errors.Is(err, attestation.ErrAlreadyReported):
			s.writeError(w, "Incident already reported", http.StatusConflict)
		case errors.Is(err, attestation.ErrNotAuthenticated):
			s.writeError(w, "Reporter key required", http.StatusUnauthorized)
		case errors.Is(err, attestation.ErrSubmissionFailed):
			s.writeError(w, "Submission failed, retry later", http.StatusBadGateway)
		default:
			s.writeError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	s.writeJSON(w, receipt)
}

// Message endpoints

type postMessageRequest struct {
	SenderID  string `json:"sender_id"`
	Plaintext string `json:"plaintext"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Plaintext == "" {
		s.writeError(w, "Plaintext is required", http.StatusBadRequest)
		return
	}

	ciphertext, err := s.secure.Encrypt(req.Plaintext)
	if err != nil {
		s.writeError(w, "Encryption failed", http.StatusInternalServerError)
		return
	}

	sig, err := channel.Sign(ciphertext, s.identity)
	if err != nil {
		s.writeError(w, "Signing failed", http.StatusInternalServerError)
		return
	}

	index, err := s.messages.PostMessage(req.SenderID, ciphertext, sig.Bytes())
	if err != nil {
		s.writeError(w, "Failed to store message", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"index":      index,
		"ciphertext": ciphertext,
	}

	s.writeJSON(w, response)
}

func (s *Server) revealMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.writeError(w, "Invalid index", http.StatusBadRequest)
		return
	}

	msg, err := s.messages.GetMessage(index)
	if err != nil {
		s.writeError(w, "Message not found", http.StatusNotFound)
		return
	}

	plaintext, err := s.secure.Decrypt(msg.Ciphertext)
	if err != nil {
		if errors.Is(err, channel.ErrMalformedCiphertext) {
			s.writeError(w, "Malformed ciphertext", http.StatusBadRequest)
			return
		}
		s.writeError(w, "Decryption failed", http.StatusInternalServerError)
		return
	}

	revealed, err := s.messages.RevealMessage(index, plaintext)
	if err != nil {
		switch {
		case errors.Is(err, channel.ErrAlreadyRevealed):
			s.writeError(w, "Message already revealed", http.StatusConflict)
		case errors.Is(err, channel.ErrInvalidIndex):
			s.writeError(w, "Message not found", http.StatusNotFound)
		default:
			s.writeError(w, "Reveal failed", http.StatusInternalServerError)
		}
		return
	}

	s.writeJSON(w, revealed)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	messages := s.messages.GetMessages()

	response := map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	}

	s.writeJSON(w, response)
}

// Status endpoints

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"validators_tracked": len(s.tracker.Operators()),
		"messages_posted":    s.messages.Count(),
		"telemetry_stale":    s.monitor != nil && s.monitor.IsStale(),
		"timestamp":          time.Now().Unix(),
	}
	if s.monitor != nil {
		status["last_refresh"] = s.monitor.LastRefresh().Unix()
	}
	s.writeJSON(w, status)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	}
	s.writeJSON(w, health)
}

// Helper methods

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     message,
		"status":    statusCode,
		"timestamp": time.Now().Unix(),
	})
}

// Middleware

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.writeError(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Custom ResponseWriter to capture status code
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
