package impl

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	logger "github.com/rs/zerolog/log"

	noncepkg "github.com/custodix/go-metarelay/pkg/nonce"
	"github.com/custodix/go-metarelay/pkg/retry"
)

var log = logger.With().Str("component", "nonce").Logger()

// walletSequence is the in-memory state for one (wallet, tenant, chain).
type walletSequence struct {
	mu          sync.Mutex
	nonce       int64
	initialized bool
}

// LocalTracker serializes nonce assignment per wallet. Each wallet owns
// a mutex held from GetNonce until unlock, so concurrent requests for
// the same wallet queue up and never observe the same nonce; requests
// for different wallets proceed independently.
type LocalTracker struct {
	nonceStore noncepkg.Store
	retryCfg   retry.Config

	mu        sync.Mutex
	sequences map[string]*walletSequence
}

var _ noncepkg.Tracker = (*LocalTracker)(nil)

// NewLocalTracker creates a tracker over the given sequence store.
func NewLocalTracker(nonceStore noncepkg.Store, retryCfg retry.Config) *LocalTracker {
	return &LocalTracker{
		nonceStore: nonceStore,
		retryCfg:   retryCfg,
		sequences:  map[string]*walletSequence{},
	}
}

// GetNonce takes the wallet's lease and returns the next nonce together
// with the register and unlock callbacks. Store reads are retried; the
// lease itself is purely in-process.
func (t *LocalTracker) GetNonce(
	ctx context.Context, chainID int64, wallet common.Address, tenantID string,
) (noncepkg.RegisterPendingTxn, noncepkg.UnlockTracker, int64, error) {
	seq := t.sequence(chainID, wallet, tenantID)
	seq.mu.Lock()

	if !seq.initialized {
		if err := t.initialize(ctx, seq, chainID, wallet, tenantID); err != nil {
			seq.mu.Unlock()
			return nil, nil, 0, fmt.Errorf("initializing wallet sequence: %w", err)
		}
	}

	nonce := seq.nonce

	// registering persists the advanced sequence and frees the lease state
	// for the next caller to pick up nonce+1
	register := func(pendingHash common.Hash) error {
		incremented := nonce + 1
		if err := t.nonceStore.UpsertNonce(ctx, chainID, wallet, tenantID, incremented); err != nil {
			// the in-memory sequence still advances: the transaction was
			// submitted, so reusing the nonce would be worse than a stale row
			seq.nonce = incremented
			log.Error().
				Err(err).
				Int64("storedSequence", nonce).
				Int64("memorySequence", incremented).
				Int64("chainID", chainID).
				Str("wallet", wallet.Hex()).
				Str("hash", pendingHash.Hex()).
				Msg("failed to persist advanced sequence")
			return fmt.Errorf("persisting advanced sequence: %s", err)
		}
		seq.nonce = incremented
		return nil
	}

	unlock := func() {
		seq.mu.Unlock()
	}

	return register, unlock, nonce, nil
}

// initialize loads the stored sequence, falling back to the recorded
// transaction count for wallets with no sequence row yet.
func (t *LocalTracker) initialize(
	ctx context.Context, seq *walletSequence, chainID int64, wallet common.Address, tenantID string,
) error {
	var nonce int64
	var found bool
	if err := retry.Do(ctx, t.retryCfg, func(ctx context.Context) error {
		var err error
		nonce, found, err = t.nonceStore.GetNonce(ctx, chainID, wallet, tenantID)
		return err
	}); err != nil {
		return fmt.Errorf("get stored sequence: %w", err)
	}

	if !found {
		// the count is scoped to the chain: a wallet with history on
		// another chain still starts at zero here
		if err := retry.Do(ctx, t.retryCfg, func(ctx context.Context) error {
			var err error
			nonce, err = t.nonceStore.CountTxns(ctx, chainID, wallet, tenantID)
			return err
		}); err != nil {
			return fmt.Errorf("count txns for sequence bootstrap: %w", err)
		}

		log.Info().
			Str("wallet", wallet.Hex()).
			Int64("chainID", chainID).
			Int64("nonce", nonce).
			Msg("bootstrapped wallet sequence from transaction count")
	}

	seq.nonce = nonce
	seq.initialized = true
	return nil
}

func (t *LocalTracker) sequence(chainID int64, wallet common.Address, tenantID string) *walletSequence {
	key := fmt.Sprintf("%d/%s/%s", chainID, wallet.Hex(), tenantID)

	t.mu.Lock()
	defer t.mu.Unlock()
	seq, ok := t.sequences[key]
	if !ok {
		seq = &walletSequence{}
		t.sequences[key] = seq
	}
	return seq
}
