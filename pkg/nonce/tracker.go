package nonce

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// RegisterPendingTxn records a successfully submitted transaction under
// the held nonce and advances the sequence.
type RegisterPendingTxn func(common.Hash) error

// UnlockTracker releases the wallet's lease so another request can call
// GetNonce. Calling it without registering leaves the sequence untouched.
type UnlockTracker func()

// Tracker hands out per-wallet nonces. GetNonce takes the wallet's lease
// and blocks other callers for the same wallet until unlock is called;
// the caller must hold the lease across submission and registration so
// no two concurrent requests observe the same nonce.
type Tracker interface {
	GetNonce(
		ctx context.Context, chainID int64, wallet common.Address, tenantID string,
	) (RegisterPendingTxn, UnlockTracker, int64, error)
}

// Store persists per-wallet sequences.
type Store interface {
	// GetNonce returns the stored sequence, and whether a row exists.
	GetNonce(ctx context.Context, chainID int64, wallet common.Address, tenantID string) (int64, bool, error)
	// UpsertNonce stores the sequence.
	UpsertNonce(ctx context.Context, chainID int64, wallet common.Address, tenantID string, nonce int64) error
	// CountTxns returns the number of recorded transactions from the
	// wallet on the chain; fresh wallet instances bootstrap their
	// sequence from it.
	CountTxns(ctx context.Context, chainID int64, wallet common.Address, tenantID string) (int64, error)
}
