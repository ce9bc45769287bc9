package impl

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/custodix/go-metarelay/pkg/database"
	"github.com/custodix/go-metarelay/pkg/sqlstore"
	"github.com/custodix/go-metarelay/tests"
)

func newStore(t *testing.T) *SystemStore {
	t.Helper()
	sqliteDB, err := database.Open(tests.Sqlite3URL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteDB.Close() })
	return NewSystemStore(sqliteDB)
}

func TestWalletRoundtrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)

	wallet := sqlstore.WalletRecord{
		Address:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Owner:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		HSMKeyID: "key-1",
		TenantID: "tenant-a",
	}
	require.NoError(t, store.InsertWallet(ctx, wallet))

	got, err := store.GetWallet(ctx, wallet.Address, "")
	require.NoError(t, err)
	require.Equal(t, wallet.Owner, got.Owner)
	require.Equal(t, "key-1", got.HSMKeyID)

	wallets, err := store.ListWalletsByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, wallets, 1)
}

func TestWalletTenantIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)

	wallet := sqlstore.WalletRecord{
		Address:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Owner:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		HSMKeyID: "key-1",
		TenantID: "tenant-a",
	}
	require.NoError(t, store.InsertWallet(ctx, wallet))

	// another tenant's scope treats the record as missing
	_, err := store.GetWallet(ctx, wallet.Address, "tenant-b")
	require.ErrorIs(t, err, sqlstore.ErrWalletNotFound)

	// the owning tenant and the tenant-agnostic scope both see it
	_, err = store.GetWallet(ctx, wallet.Address, "tenant-a")
	require.NoError(t, err)
	_, err = store.GetWallet(ctx, wallet.Address, "")
	require.NoError(t, err)
}

func TestWalletNotFound(t *testing.T) {
	t.Parallel()
	store := newStore(t)

	_, err := store.GetWallet(context.Background(), common.HexToAddress("0xdead"), "")
	require.ErrorIs(t, err, sqlstore.ErrWalletNotFound)
}

func TestTxnRoundtripAndCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)

	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	for i := int64(0); i < 3; i++ {
		txn := sqlstore.TxnRecord{
			Hash:     common.BytesToHash([]byte{byte(i + 1)}),
			From:     from,
			To:       common.HexToAddress("0x3333333333333333333333333333333333333333"),
			Value:    "1000",
			Data:     []byte{0x01},
			Nonce:    i,
			Status:   sqlstore.TxnStatusPending,
			ChainID:  1337,
			TenantID: "tenant-a",
		}
		require.NoError(t, store.InsertTxn(ctx, txn))
	}

	count, err := store.CountTxnsByAddress(ctx, 1337, from, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	// another tenant sees none
	count, err = store.CountTxnsByAddress(ctx, 1337, from, "tenant-b")
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	// another chain sees none
	count, err = store.CountTxnsByAddress(ctx, 1, from, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	txns, err := store.ListTxnsByAddress(ctx, from, "")
	require.NoError(t, err)
	require.Len(t, txns, 3)
	for i, txn := range txns {
		require.Equal(t, int64(i), txn.Nonce)
		require.Equal(t, sqlstore.TxnStatusPending, txn.Status)
	}

	got, err := store.GetTxn(ctx, common.BytesToHash([]byte{0x01}))
	require.NoError(t, err)
	require.Equal(t, from, got.From)
}

func TestTxnNotFound(t *testing.T) {
	t.Parallel()
	store := newStore(t)

	_, err := store.GetTxn(context.Background(), common.BytesToHash([]byte{0xff}))
	require.ErrorIs(t, err, sqlstore.ErrTxnNotFound)
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	url := tests.Sqlite3URL()
	db1, err := database.Open(url)
	require.NoError(t, err)

	store := NewSystemStore(db1)
	wallet := sqlstore.WalletRecord{
		Address:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Owner:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		HSMKeyID: "key-1",
	}
	require.NoError(t, store.InsertWallet(context.Background(), wallet))

	// reopening re-runs migrations without data loss
	db2, err := database.Open(url)
	require.NoError(t, err)
	defer func() { _ = db2.Close() }()

	store2 := NewSystemStore(db2)
	_, err = store2.GetWallet(context.Background(), wallet.Address, "")
	require.NoError(t, err)
}
