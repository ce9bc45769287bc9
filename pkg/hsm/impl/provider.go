package impl

import (
	"fmt"

	"github.com/custodix/go-metarelay/pkg/hsm"
)

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(cfg hsm.Config) (hsm.Provider, error) {
	switch cfg.Provider {
	case hsm.ProviderMemory:
		return NewMemoryProvider(cfg), nil
	case hsm.ProviderKeystore:
		return NewKeystoreProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown hsm provider %q", cfg.Provider)
	}
}
