package impl

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/custodix/go-metarelay/pkg/database"
	"github.com/custodix/go-metarelay/pkg/database/db"
	noncepkg "github.com/custodix/go-metarelay/pkg/nonce"
)

// NonceStore persists wallet sequences in sqlite.
type NonceStore struct {
	log      zerolog.Logger
	sqliteDB *database.SQLiteDB
}

var _ noncepkg.Store = (*NonceStore)(nil)

// NewNonceStore creates a new nonce store.
func NewNonceStore(sqliteDB *database.SQLiteDB) *NonceStore {
	log := sqliteDB.Log.With().
		Str("component", "noncestore").
		Logger()

	return &NonceStore{
		log:      log,
		sqliteDB: sqliteDB,
	}
}

// GetNonce returns the stored sequence for the wallet, if any.
func (s *NonceStore) GetNonce(
	ctx context.Context, chainID int64, wallet common.Address, tenantID string,
) (int64, bool, error) {
	row, err := s.sqliteDB.Queries.GetNonce(ctx, db.GetNonceParams{
		Address:  wallet.Hex(),
		TenantID: tenantID,
		ChainID:  chainID,
	})
	if errors.Is(err, db.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("nonce store get nonce: %s", err)
	}
	return row.Nonce, true, nil
}

// UpsertNonce stores the sequence for the wallet.
func (s *NonceStore) UpsertNonce(
	ctx context.Context, chainID int64, wallet common.Address, tenantID string, nonce int64,
) error {
	if err := s.sqliteDB.Queries.UpsertNonce(ctx, db.UpsertNonceParams{
		Address:  wallet.Hex(),
		TenantID: tenantID,
		ChainID:  chainID,
		Nonce:    nonce,
	}); err != nil {
		return fmt.Errorf("nonce store upsert nonce: %s", err)
	}
	return nil
}

// CountTxns counts the recorded transactions from the wallet on the chain.
func (s *NonceStore) CountTxns(
	ctx context.Context, chainID int64, wallet common.Address, tenantID string,
) (int64, error) {
	count, err := s.sqliteDB.Queries.CountTxnsByAddress(ctx, db.CountTxnsByAddressParams{
		ChainID:     chainID,
		FromAddress: wallet.Hex(),
		TenantID:    tenantID,
	})
	if err != nil {
		return 0, fmt.Errorf("nonce store count txns: %s", err)
	}
	return count, nil
}
