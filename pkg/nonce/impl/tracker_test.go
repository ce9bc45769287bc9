package impl

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/custodix/go-metarelay/pkg/database"
	"github.com/custodix/go-metarelay/pkg/database/db"
	noncepkg "github.com/custodix/go-metarelay/pkg/nonce"
	"github.com/custodix/go-metarelay/pkg/retry"
	"github.com/custodix/go-metarelay/tests"
)

var testRetryCfg = retry.Config{MaxRetries: 1, BaseDelay: time.Millisecond}

func newTracker(t *testing.T) (*LocalTracker, *database.SQLiteDB) {
	t.Helper()
	sqliteDB, err := database.Open(tests.Sqlite3URL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteDB.Close() })
	return NewLocalTracker(NewNonceStore(sqliteDB), testRetryCfg), sqliteDB
}

func TestTrackerSerialNonces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker, _ := newTracker(t)
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	for want := int64(0); want < 3; want++ {
		register, unlock, nonce, err := tracker.GetNonce(ctx, 1337, wallet, "")
		require.NoError(t, err)
		require.Equal(t, want, nonce)
		require.NoError(t, register(common.BytesToHash([]byte{byte(want + 1)})))
		unlock()
	}
}

func TestTrackerUnlockWithoutRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker, _ := newTracker(t)
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	_, unlock, nonce1, err := tracker.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)
	unlock()

	_, unlock2, nonce2, err := tracker.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)
	unlock2()

	// abandoning the lease must not consume the nonce
	require.Equal(t, int64(0), nonce1)
	require.Equal(t, int64(0), nonce2)
}

func TestTrackerBlocksConcurrentCallers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker, _ := newTracker(t)
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	register1, unlock1, nonce1, err := tracker.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)

	released := make(chan struct{})
	go func() {
		time.Sleep(100 * time.Millisecond)
		require.NoError(t, register1(common.BytesToHash([]byte{0x01})))
		unlock1()
		close(released)
	}()

	// blocks until the first caller releases the lease
	_, unlock2, nonce2, err := tracker.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)
	unlock2()

	<-released
	require.Equal(t, int64(0), nonce1)
	require.Equal(t, int64(1), nonce2)
}

func TestTrackerConcurrentNoncesAreUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker, _ := newTracker(t)
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	const callers = 20
	var mu sync.Mutex
	seen := map[int64]struct{}{}

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			register, unlock, nonce, err := tracker.GetNonce(ctx, 1337, wallet, "")
			if err != nil {
				return err
			}
			defer unlock()
			if err := register(common.BigToHash(big.NewInt(nonce + 1))); err != nil {
				return err
			}
			mu.Lock()
			seen[nonce] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// every caller observed a distinct nonce covering 0..callers-1
	require.Len(t, seen, callers)
	for want := int64(0); want < callers; want++ {
		require.Contains(t, seen, want)
	}
}

func TestTrackerIndependentWallets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker, _ := newTracker(t)

	walletA := common.HexToAddress("0x1111111111111111111111111111111111111111")
	walletB := common.HexToAddress("0x2222222222222222222222222222222222222222")

	_, unlockA, nonceA, err := tracker.GetNonce(ctx, 1337, walletA, "")
	require.NoError(t, err)

	// walletB is not blocked by walletA's held lease
	done := make(chan int64, 1)
	go func() {
		_, unlockB, nonceB, err := tracker.GetNonce(ctx, 1337, walletB, "")
		require.NoError(t, err)
		unlockB()
		done <- nonceB
	}()

	select {
	case nonceB := <-done:
		require.Equal(t, int64(0), nonceB)
	case <-time.After(2 * time.Second):
		t.Fatal("walletB blocked on walletA's lease")
	}
	unlockA()
	require.Equal(t, int64(0), nonceA)
}

func TestTrackerBootstrapsFromTxnCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker, sqliteDB := newTracker(t)
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	// two historical transactions but no sequence row: the count is the nonce
	for i := int64(0); i < 2; i++ {
		require.NoError(t, sqliteDB.Queries.InsertTxn(ctx, db.InsertTxnParams{
			Hash:        common.BytesToHash([]byte{byte(i + 1)}).Hex(),
			FromAddress: wallet.Hex(),
			ToAddress:   wallet.Hex(),
			Value:       "0",
			Data:        []byte{},
			Nonce:       i,
			Status:      "pending",
			ChainID:     1337,
		}))
	}

	_, unlock, nonce, err := tracker.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)
	unlock()
	require.Equal(t, int64(2), nonce)
}

func TestTrackerBootstrapIsChainScoped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker, sqliteDB := newTracker(t)
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	// history on chain 1 must not leak into the chain 2 sequence: the
	// chain 2 wallet instance starts at nonce 0
	for i := int64(0); i < 3; i++ {
		require.NoError(t, sqliteDB.Queries.InsertTxn(ctx, db.InsertTxnParams{
			Hash:        common.BytesToHash([]byte{byte(i + 1)}).Hex(),
			FromAddress: wallet.Hex(),
			ToAddress:   wallet.Hex(),
			Value:       "0",
			Data:        []byte{},
			Nonce:       i,
			Status:      "pending",
			ChainID:     1,
		}))
	}

	_, unlock, nonce, err := tracker.GetNonce(ctx, 2, wallet, "")
	require.NoError(t, err)
	unlock()
	require.Equal(t, int64(0), nonce)

	_, unlock, nonce, err = tracker.GetNonce(ctx, 1, wallet, "")
	require.NoError(t, err)
	unlock()
	require.Equal(t, int64(3), nonce)
}

// failingUpsertStore wraps a real store and fails every UpsertNonce.
type failingUpsertStore struct {
	inner     noncepkg.Store
	upsertErr error
}

func (s *failingUpsertStore) GetNonce(
	ctx context.Context, chainID int64, wallet common.Address, tenantID string,
) (int64, bool, error) {
	return s.inner.GetNonce(ctx, chainID, wallet, tenantID)
}

func (s *failingUpsertStore) UpsertNonce(
	_ context.Context, _ int64, _ common.Address, _ string, _ int64,
) error {
	return s.upsertErr
}

func (s *failingUpsertStore) CountTxns(
	ctx context.Context, chainID int64, wallet common.Address, tenantID string,
) (int64, error) {
	return s.inner.CountTxns(ctx, chainID, wallet, tenantID)
}

func TestTrackerAdvancesDespitePersistFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sqliteDB, err := database.Open(tests.Sqlite3URL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteDB.Close() })

	store := &failingUpsertStore{
		inner:     NewNonceStore(sqliteDB),
		upsertErr: errors.New("disk full"),
	}
	tracker := NewLocalTracker(store, testRetryCfg)
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	register, unlock, nonce, err := tracker.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)
	require.Equal(t, int64(0), nonce)
	// the transaction was submitted under nonce 0, so the in-memory
	// sequence must advance even though persisting it failed
	require.Error(t, register(common.BytesToHash([]byte{0x01})))
	unlock()

	_, unlock2, nonce2, err := tracker.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)
	unlock2()
	require.Equal(t, int64(1), nonce2)
}

func TestTrackerSurvivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	url := tests.Sqlite3URL()
	sqliteDB, err := database.Open(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteDB.Close() })

	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	tracker := NewLocalTracker(NewNonceStore(sqliteDB), testRetryCfg)
	register, unlock, nonce, err := tracker.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)
	require.Equal(t, int64(0), nonce)
	require.NoError(t, register(common.BytesToHash([]byte{0x01})))
	unlock()

	// a fresh tracker over the same store picks up the persisted sequence
	tracker2 := NewLocalTracker(NewNonceStore(sqliteDB), testRetryCfg)
	_, unlock2, nonce2, err := tracker2.GetNonce(ctx, 1337, wallet, "")
	require.NoError(t, err)
	unlock2()
	require.Equal(t, int64(1), nonce2)
}
