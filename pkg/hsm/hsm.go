package hsm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ProviderType selects the backing module at construction time.
type ProviderType string

const (
	// ProviderMemory is a software module holding hex-encoded keys in memory.
	ProviderMemory ProviderType = "memory"
	// ProviderKeystore is backed by an encrypted go-ethereum keystore directory.
	ProviderKeystore ProviderType = "keystore"
)

// ErrKeyNotFound indicates the key id isn't present in the module, or
// belongs to another tenant.
var ErrKeyNotFound = errors.New("key not found")

// Credentials is the provider-specific connection material.
type Credentials struct {
	// PIN unlocks the module (keystore passphrase for the keystore backend).
	PIN string
	// LibraryPath locates the module (keystore directory for the keystore backend).
	LibraryPath string
	// SlotID selects a slot on multi-slot hardware; unused by software backends.
	SlotID int
}

// Options tunes provider I/O behavior.
type Options struct {
	FIPSCompliance bool
	MaxRetries     int
	Timeout        time.Duration
}

// Config fully describes a provider at construction.
type Config struct {
	Provider    ProviderType
	Credentials Credentials
	Options     Options
}

// Key is the public half of a module-held keypair. Private material
// never crosses this boundary.
type Key struct {
	ID        string
	PublicKey *ecdsa.PublicKey
}

// Address derives the chain address bound to the key.
func (k Key) Address() common.Address {
	return crypto.PubkeyToAddress(*k.PublicKey)
}

// Provider is the capability set every backend exposes. Implementations
// must be safe for concurrent use by in-flight relay requests.
type Provider interface {
	// ValidateConfig verifies the module is reachable and usable.
	ValidateConfig(ctx context.Context) error
	// GetKey fetches the public key bound to keyID. A non-empty tenantID
	// restricts the lookup to keys provisioned for that tenant.
	GetKey(ctx context.Context, keyID string, tenantID string) (Key, error)
}
