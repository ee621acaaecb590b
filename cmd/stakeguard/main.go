// File: cmd/stakeguard/main.go - StakeGuard node entry point
package main

import (
	"bytes"
	"crypto/sha256"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"

	"github.com/stakeguard-labs/go-stakeguard/config"
	"github.com/stakeguard-labs/go-stakeguard/crypto"
	"github.com/stakeguard-labs/go-stakeguard/crypto/address"
	"github.com/stakeguard-labs/go-stakeguard/node"
)

// getNodeIdentity derives a deterministic signing key for the node.
// Dev convenience: the same node ID always yields the same identity,
// so message signatures stay verifiable across restarts.
func getNodeIdentity(nodeID string) (crypto.PrivateKey, error) {
	seed := sha256.Sum256([]byte("stakeguard-node-identity-" + nodeID))
	return crypto.NewPrivateKeyFromSeed(seed[:])
}

// getOperatorAddress derives the node's operator address the same way
// validator addresses are derived on chain: ML-DSA key, Blake2b hash.
func getOperatorAddress(nodeID string) (string, error) {
	seed := sha256.Sum256([]byte("stakeguard-operator-key-" + nodeID))
	reader := bytes.NewReader(append(seed[:], seed[:]...))

	pub, _, err := mldsa44.GenerateKey(reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate operator key: %v", err)
	}

	addr, err := address.New(pub)
	if err != nil {
		return "", fmt.Errorf("failed to derive operator address: %v", err)
	}
	return addr.String(), nil
}

func main() {
	dataDir := flag.String("datadir", "./data", "Data directory for attestation storage")
	apiAddr := flag.String("api", "", "API listen address (overrides config)")
	nodeID := flag.String("node-id", "", "Node identifier (overrides config)")
	flag.Parse()

	fmt.Println("🛡️  Starting StakeGuard node...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.DataDir = *dataDir
	if *apiAddr != "" {
		cfg.API.ListenAddr = *apiAddr
	}
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}

	identity, err := getNodeIdentity(cfg.NodeID)
	if err != nil {
		log.Fatalf("Failed to derive node identity: %v", err)
	}

	operatorAddr, err := getOperatorAddress(cfg.NodeID)
	if err != nil {
		log.Fatalf("Failed to derive operator address: %v", err)
	}

	fmt.Printf("🔑 Node identity: %s\n", identity.PublicKey().String())
	fmt.Printf("🏛️  Operator address: %s\n", operatorAddr)

	guardNode, err := node.NewNode(&node.NodeConfig{
		Config:   cfg,
		Identity: identity,
	})
	if err != nil {
		log.Fatalf("Failed to initialize node: %v", err)
	}

	if err := guardNode.Start(); err != nil {
		log.Fatalf("Failed to start node: %v", err)
	}

	fmt.Println("✅ StakeGuard node started successfully!")

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	fmt.Println("🎉 StakeGuard running! Press Ctrl+C to stop.")
	fmt.Println("📊 Node status will be printed every 30 seconds...")

	statusTicker := time.NewTicker(30 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-c:
			fmt.Println("\n🛑 Shutting down StakeGuard node...")

			if err := guardNode.Stop(); err != nil {
				log.Printf("Error stopping node: %v", err)
			}

			fmt.Println("👋 Goodbye!")
			return

		case <-statusTicker.C:
			printNodeStatus(guardNode)
		}
	}
}

// printNodeStatus displays node status
func printNodeStatus(n *node.Node) {
	fmt.Println("\n📊 === NODE STATUS ===")
	fmt.Printf("Running: %v\n", n.IsRunning())
	fmt.Printf("Validators tracked: %d\n", len(n.Tracker().Operators()))
	fmt.Printf("Messages posted: %d\n", n.Messages().Count())
	fmt.Println("======================")
}
