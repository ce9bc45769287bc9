package impl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	"github.com/custodix/go-metarelay/pkg/hsm"
)

// KeystoreProvider serves keys from an encrypted go-ethereum keystore
// directory. The configured LibraryPath is the key directory and the PIN
// is the passphrase shared by the stored keys. Key ids are the
// hex-encoded addresses the key files were provisioned under.
type KeystoreProvider struct {
	cfg hsm.Config
	dir string

	// decrypting a keystore file is scrypt-expensive, so resolved
	// public keys are cached after first use.
	mu    sync.RWMutex
	cache map[string]hsm.Key
}

var _ hsm.Provider = (*KeystoreProvider)(nil)

// NewKeystoreProvider creates a provider over the configured key directory.
func NewKeystoreProvider(cfg hsm.Config) (*KeystoreProvider, error) {
	if cfg.Credentials.LibraryPath == "" {
		return nil, fmt.Errorf("keystore provider requires a library path")
	}
	return &KeystoreProvider{
		cfg:   cfg,
		dir:   cfg.Credentials.LibraryPath,
		cache: map[string]hsm.Key{},
	}, nil
}

// ValidateConfig verifies the key directory exists and is readable.
func (p *KeystoreProvider) ValidateConfig(_ context.Context) error {
	info, err := os.Stat(p.dir)
	if err != nil {
		return fmt.Errorf("stat keystore directory: %s", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("keystore path %s is not a directory", p.dir)
	}
	return nil
}

// GetKey decrypts the key file provisioned under keyID and returns its
// public half. The PIN never leaves the provider, the private key never
// leaves this method.
func (p *KeystoreProvider) GetKey(_ context.Context, keyID string, tenantID string) (hsm.Key, error) {
	cacheKey := tenantID + "/" + keyID

	p.mu.RLock()
	if k, ok := p.cache[cacheKey]; ok {
		p.mu.RUnlock()
		return k, nil
	}
	p.mu.RUnlock()

	path, err := p.findKeyFile(keyID, tenantID)
	if err != nil {
		return hsm.Key{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return hsm.Key{}, fmt.Errorf("reading key file: %s", err)
	}
	decrypted, err := keystore.DecryptKey(raw, p.cfg.Credentials.PIN)
	if err != nil {
		return hsm.Key{}, fmt.Errorf("decrypting key file: %s", err)
	}

	pk := &decrypted.PrivateKey.PublicKey
	key := hsm.Key{ID: keyID, PublicKey: pk}

	p.mu.Lock()
	p.cache[cacheKey] = key
	p.mu.Unlock()

	return key, nil
}

// findKeyFile locates the keystore file whose name carries the key id.
// Tenant-scoped keys live in a per-tenant subdirectory.
func (p *KeystoreProvider) findKeyFile(keyID string, tenantID string) (string, error) {
	dir := p.dir
	if tenantID != "" {
		dir = filepath.Join(p.dir, tenantID)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading keystore directory: %s", err)
	}

	// key files follow the UTC--<timestamp>--<address> naming, so the
	// address must terminate the name; a bare substring match could pick
	// up stray files carrying the address mid-name
	needle := "--" + strings.ToLower(strings.TrimPrefix(keyID, "0x"))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), needle) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", hsm.ErrKeyNotFound
}
