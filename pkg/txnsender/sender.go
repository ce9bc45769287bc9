package txnsender

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// TxnParams is the payload handed to a submission channel. Value is the
// integer wei amount, already parsed from the request's decimal string.
type TxnParams struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Sender broadcasts a wallet's meta-transaction and returns the chain hash.
type Sender interface {
	SendTransaction(ctx context.Context, params TxnParams) (common.Hash, error)
}

// Registry maps wallet addresses to their live submission channels. A
// wallet without a bound sender is unknown to this relay instance.
type Registry struct {
	mu      sync.RWMutex
	senders map[common.Address]Sender
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{senders: map[common.Address]Sender{}}
}

// Bind attaches a submission channel to a wallet address.
func (r *Registry) Bind(wallet common.Address, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[wallet] = sender
}

// Lookup returns the submission channel bound to a wallet, if any.
func (r *Registry) Lookup(wallet common.Address) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sender, ok := r.senders[wallet]
	return sender, ok
}
