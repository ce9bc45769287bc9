package chains

import (
	"context"

	"github.com/custodix/go-metarelay/pkg/txnsender"
)

// NetworkConfig describes a supported network. Requests targeting a chain
// id without a NetworkConfig are rejected before any side effect.
type NetworkConfig struct {
	Name     string
	ChainID  int64
	Endpoint string
}

// ChainStack contains components running for a specific ChainID.
type ChainStack struct {
	Config  NetworkConfig
	Senders *txnsender.Registry
	// Close gracefully closes all the chain stack components.
	Close func(ctx context.Context) error
}
