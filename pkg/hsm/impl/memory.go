package impl

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sync"

	logger "github.com/rs/zerolog/log"

	"github.com/custodix/go-metarelay/pkg/hsm"
)

var log = logger.With().Str("component", "hsm").Logger()

type memoryKey struct {
	sk       *ecdsa.PrivateKey
	tenantID string
}

// MemoryProvider is a software module keeping key material in process
// memory. Meant for development and tests; keys are imported explicitly
// and read-only afterwards from the relay's perspective.
type MemoryProvider struct {
	cfg hsm.Config

	mu   sync.RWMutex
	keys map[string]memoryKey
}

var _ hsm.Provider = (*MemoryProvider)(nil)

// NewMemoryProvider creates an empty software module.
func NewMemoryProvider(cfg hsm.Config) *MemoryProvider {
	return &MemoryProvider{
		cfg:  cfg,
		keys: map[string]memoryKey{},
	}
}

// ImportKey provisions a keypair under keyID, optionally scoped to a tenant.
func (p *MemoryProvider) ImportKey(keyID string, sk *ecdsa.PrivateKey, tenantID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[keyID] = memoryKey{sk: sk, tenantID: tenantID}

	log.Debug().Str("keyId", keyID).Msg("key imported into software module")
}

// ValidateConfig verifies the module is usable.
func (p *MemoryProvider) ValidateConfig(_ context.Context) error {
	if p.cfg.Provider != hsm.ProviderMemory {
		return fmt.Errorf("config is for provider %q, not %q", p.cfg.Provider, hsm.ProviderMemory)
	}
	return nil
}

// GetKey fetches the public key bound to keyID.
func (p *MemoryProvider) GetKey(_ context.Context, keyID string, tenantID string) (hsm.Key, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	k, ok := p.keys[keyID]
	if !ok {
		return hsm.Key{}, hsm.ErrKeyNotFound
	}
	if tenantID != "" && k.tenantID != tenantID {
		return hsm.Key{}, hsm.ErrKeyNotFound
	}

	pk, ok := k.sk.Public().(*ecdsa.PublicKey)
	if !ok {
		return hsm.Key{}, fmt.Errorf("casting public key to ECDSA")
	}
	return hsm.Key{ID: keyID, PublicKey: pk}, nil
}
