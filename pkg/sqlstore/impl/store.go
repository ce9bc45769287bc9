package impl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/custodix/go-metarelay/pkg/database"
	"github.com/custodix/go-metarelay/pkg/database/db"
	"github.com/custodix/go-metarelay/pkg/sqlstore"
)

// SystemStore is the sqlite implementation of sqlstore.SystemStore.
type SystemStore struct {
	log      zerolog.Logger
	sqliteDB *database.SQLiteDB
}

var _ sqlstore.SystemStore = (*SystemStore)(nil)

// NewSystemStore creates a store over an opened (and migrated) database.
func NewSystemStore(sqliteDB *database.SQLiteDB) *SystemStore {
	log := sqliteDB.Log.With().
		Str("component", "systemstore").
		Logger()

	return &SystemStore{
		log:      log,
		sqliteDB: sqliteDB,
	}
}

// GetWallet fetches a wallet by address. A non-empty tenantID acts as a
// partition: a wallet provisioned for another tenant is reported as not
// found, never as someone else's record.
func (s *SystemStore) GetWallet(
	ctx context.Context, address common.Address, tenantID string,
) (sqlstore.WalletRecord, error) {
	w, err := s.sqliteDB.Queries.GetWallet(ctx, address.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return sqlstore.WalletRecord{}, sqlstore.ErrWalletNotFound
	}
	if err != nil {
		return sqlstore.WalletRecord{}, fmt.Errorf("system store get wallet: %s", err)
	}
	if tenantID != "" && w.TenantID != tenantID {
		return sqlstore.WalletRecord{}, sqlstore.ErrWalletNotFound
	}

	return sqlstore.WalletRecord{
		Address:   common.HexToAddress(w.Address),
		Owner:     common.HexToAddress(w.Owner),
		HSMKeyID:  w.HSMKeyID,
		TenantID:  w.TenantID,
		CreatedAt: w.CreatedAt,
	}, nil
}

// InsertWallet upserts a wallet record.
func (s *SystemStore) InsertWallet(ctx context.Context, wallet sqlstore.WalletRecord) error {
	if err := s.sqliteDB.Queries.InsertWallet(ctx, db.InsertWalletParams{
		Address:  wallet.Address.Hex(),
		Owner:    wallet.Owner.Hex(),
		HSMKeyID: wallet.HSMKeyID,
		TenantID: wallet.TenantID,
	}); err != nil {
		return fmt.Errorf("system store insert wallet: %s", err)
	}
	return nil
}

// ListWalletsByTenant lists every wallet provisioned for a tenant.
func (s *SystemStore) ListWalletsByTenant(ctx context.Context, tenantID string) ([]sqlstore.WalletRecord, error) {
	rows, err := s.sqliteDB.Queries.ListWalletsByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("system store list wallets: %s", err)
	}

	wallets := make([]sqlstore.WalletRecord, 0, len(rows))
	for _, w := range rows {
		wallets = append(wallets, sqlstore.WalletRecord{
			Address:   common.HexToAddress(w.Address),
			Owner:     common.HexToAddress(w.Owner),
			HSMKeyID:  w.HSMKeyID,
			TenantID:  w.TenantID,
			CreatedAt: w.CreatedAt,
		})
	}
	return wallets, nil
}

// InsertTxn writes the record of a submitted transaction.
func (s *SystemStore) InsertTxn(ctx context.Context, txn sqlstore.TxnRecord) error {
	if err := s.sqliteDB.Queries.InsertTxn(ctx, db.InsertTxnParams{
		Hash:        txn.Hash.Hex(),
		FromAddress: txn.From.Hex(),
		ToAddress:   txn.To.Hex(),
		Value:       txn.Value,
		Data:        txn.Data,
		Nonce:       txn.Nonce,
		Status:      string(txn.Status),
		ChainID:     txn.ChainID,
		TenantID:    txn.TenantID,
	}); err != nil {
		return fmt.Errorf("system store insert txn: %s", err)
	}
	return nil
}

// GetTxn fetches a transaction record by hash.
func (s *SystemStore) GetTxn(ctx context.Context, hash common.Hash) (sqlstore.TxnRecord, error) {
	t, err := s.sqliteDB.Queries.GetTxn(ctx, hash.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return sqlstore.TxnRecord{}, sqlstore.ErrTxnNotFound
	}
	if err != nil {
		return sqlstore.TxnRecord{}, fmt.Errorf("system store get txn: %s", err)
	}
	return txnFromRow(t), nil
}

// ListTxnsByAddress lists transactions submitted from a wallet, nonce order.
func (s *SystemStore) ListTxnsByAddress(
	ctx context.Context, from common.Address, tenantID string,
) ([]sqlstore.TxnRecord, error) {
	rows, err := s.sqliteDB.Queries.ListTxnsByAddress(ctx, db.ListTxnsByAddressParams{
		FromAddress: from.Hex(),
		TenantID:    tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("system store list txns: %s", err)
	}

	txns := make([]sqlstore.TxnRecord, 0, len(rows))
	for _, t := range rows {
		txns = append(txns, txnFromRow(t))
	}
	return txns, nil
}

// CountTxnsByAddress counts transactions submitted from a wallet on one
// chain. The nonce tracker uses this cardinality to bootstrap fresh
// wallet instances; counting across chains would hand a wallet with
// history elsewhere a nonce its new chain instance never reaches.
func (s *SystemStore) CountTxnsByAddress(
	ctx context.Context, chainID int64, from common.Address, tenantID string,
) (int64, error) {
	count, err := s.sqliteDB.Queries.CountTxnsByAddress(ctx, db.CountTxnsByAddressParams{
		ChainID:     chainID,
		FromAddress: from.Hex(),
		TenantID:    tenantID,
	})
	if err != nil {
		return 0, fmt.Errorf("system store count txns: %s", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *SystemStore) Ping(ctx context.Context) error {
	if err := s.sqliteDB.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("system store ping: %s", err)
	}
	return nil
}

// Close closes the backing database.
func (s *SystemStore) Close() error {
	return s.sqliteDB.Close()
}

func txnFromRow(t db.Txn) sqlstore.TxnRecord {
	return sqlstore.TxnRecord{
		Hash:      common.HexToHash(t.Hash),
		From:      common.HexToAddress(t.FromAddress),
		To:        common.HexToAddress(t.ToAddress),
		Value:     t.Value,
		Data:      t.Data,
		Nonce:     t.Nonce,
		Status:    sqlstore.TxnStatus(t.Status),
		ChainID:   t.ChainID,
		TenantID:  t.TenantID,
		CreatedAt: t.CreatedAt,
	}
}
