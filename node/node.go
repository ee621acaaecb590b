package node

// node/node.go - Main StakeGuard node wiring storage, scoring, attestation and API

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/stakeguard-labs/go-stakeguard/api"
	"github.com/stakeguard-labs/go-stakeguard/attestation"
	"github.com/stakeguard-labs/go-stakeguard/channel"
	"github.com/stakeguard-labs/go-stakeguard/config"
	"github.com/stakeguard-labs/go-stakeguard/crypto"
	"github.com/stakeguard-labs/go-stakeguard/scoring"
	"github.com/stakeguard-labs/go-stakeguard/storage"
	"github.com/stakeguard-labs/go-stakeguard/telemetry"
)

// Node represents a StakeGuard node with durable attestation storage,
// telemetry-driven scoring and a REST API surface
type Node struct {
	// Core components
	config   *config.Config
	store    *storage.BadgerStorage
	registry *attestation.BadgerRegistry
	tracker  *scoring.Tracker
	service  *attestation.Service

	// Telemetry
	monitor *telemetry.Monitor

	// Secure messaging
	secure   *channel.SecureChannel
	messages *channel.Store

	// Node identity
	identity crypto.PrivateKey

	// API
	apiServer *api.Server

	// State management
	isRunning bool

	// Synchronization
	mu sync.RWMutex
}

// NodeConfig represents node construction options
type NodeConfig struct {
	Config     *config.Config
	Identity   crypto.PrivateKey
	ChannelKey []byte // 32-byte AES key for the validator group channel
	Provider   telemetry.Provider
}

// NewNode creates a StakeGuard node with all components wired
func NewNode(nodeConfig *NodeConfig) (*Node, error) {
	if nodeConfig == nil || nodeConfig.Config == nil {
		return nil, fmt.Errorf("node config cannot be nil")
	}
	if nodeConfig.Identity == nil {
		return nil, fmt.Errorf("node identity key is required")
	}

	cfg := nodeConfig.Config

	store, err := storage.NewBadgerStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %v", err)
	}

	tracker := scoring.NewTracker(store)
	if err := tracker.LoadFromStorage(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to restore score state: %v", err)
	}

	registry := attestation.NewBadgerRegistry(store)

	service := attestation.NewService(registry, tracker, attestation.RetryPolicy{
		MaxAttempts:    cfg.Attestation.MaxRetryAttempts,
		InitialBackoff: cfg.Attestation.InitialBackoff,
		MaxBackoff:     cfg.Attestation.MaxBackoff,
		Multiplier:     cfg.Attestation.BackoffFactor,
	})

	channelKey := nodeConfig.ChannelKey
	if channelKey == nil {
		// Dev fallback: derive the group key from the node ID so a
		// single-node setup works without key distribution.
		derived := sha256.Sum256([]byte("stakeguard-channel-" + cfg.NodeID))
		channelKey = derived[:]
	}

	secure, err := channel.NewSecureChannel(channelKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize secure channel: %v", err)
	}

	messages := channel.NewStore(store)
	if err := messages.LoadFromStorage(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to restore messages: %v", err)
	}

	provider := nodeConfig.Provider
	if provider == nil {
		if cfg.Telemetry.Endpoint != "" {
			provider = telemetry.NewHTTPProvider(cfg.Telemetry.Endpoint)
		} else {
			provider = telemetry.SampleProvider{}
		}
	}
	monitor := telemetry.NewMonitor(provider, tracker,
		cfg.Telemetry.PollInterval, cfg.Telemetry.StalenessThreshold)

	apiServer := api.NewServer(cfg.API, tracker, service, monitor, secure, messages, nodeConfig.Identity)

	return &Node{
		config:    cfg,
		store:     store,
		registry:  registry,
		tracker:   tracker,
		service:   service,
		monitor:   monitor,
		secure:    secure,
		messages:  messages,
		identity:  nodeConfig.Identity,
		apiServer: apiServer,
	}, nil
}

// Start begins telemetry polling and serves the API
func (n *Node) Start() error {
	n.mu.Lock()
	if n.isRunning {
		n.mu.Unlock()
		return fmt.Errorf("node is already running")
	}
	n.isRunning = true
	n.mu.Unlock()

	if err := n.monitor.Start(); err != nil {
		return fmt.Errorf("failed to start telemetry monitor: %v", err)
	}

	go func() {
		if err := n.apiServer.Start(); err != nil {
			// http.ErrServerClosed arrives on graceful shutdown
			n.mu.RLock()
			running := n.isRunning
			n.mu.RUnlock()
			if running {
				fmt.Printf("API server stopped: %v\n", err)
			}
		}
	}()

	return nil
}

// Stop shuts down the API, telemetry loop and storage
func (n *Node) Stop() error {
	n.mu.Lock()
	if !n.isRunning {
		n.mu.Unlock()
		return nil
	}
	n.isRunning = false
	n.mu.Unlock()

	if err := n.apiServer.Stop(); err != nil {
		return fmt.Errorf("failed to stop API server: %v", err)
	}
	if err := n.monitor.Stop(); err != nil {
		return fmt.Errorf("failed to stop telemetry monitor: %v", err)
	}
	return n.store.Close()
}

// Tracker exposes the score read path
func (n *Node) Tracker() *scoring.Tracker {
	return n.tracker
}

// Service exposes report submission
func (n *Node) Service() *attestation.Service {
	return n.service
}

// Messages exposes the group message store
func (n *Node) Messages() *channel.Store {
	return n.messages
}

// IsRunning reports the node lifecycle state
func (n *Node) IsRunning() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.isRunning
}
