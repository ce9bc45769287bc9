package db

import (
	"context"
	"database/sql"
)

const getNonce = `
SELECT address, tenant_id, chain_id, nonce FROM wallet_nonce
WHERE address = ?1 AND tenant_id = ?2 AND chain_id = ?3
`

type GetNonceParams struct {
	Address  string
	TenantID string
	ChainID  int64
}

// ErrNoRows is re-exported so callers don't import database/sql for it.
var ErrNoRows = sql.ErrNoRows

func (q *Queries) GetNonce(ctx context.Context, arg GetNonceParams) (WalletNonce, error) {
	row := q.db.QueryRowContext(ctx, getNonce, arg.Address, arg.TenantID, arg.ChainID)
	var i WalletNonce
	err := row.Scan(&i.Address, &i.TenantID, &i.ChainID, &i.Nonce)
	return i, err
}

const upsertNonce = `
INSERT INTO wallet_nonce ("address", "tenant_id", "chain_id", "nonce")
VALUES (?1, ?2, ?3, ?4)
ON CONFLICT (address, tenant_id, chain_id) DO UPDATE SET nonce=?4
`

type UpsertNonceParams struct {
	Address  string
	TenantID string
	ChainID  int64
	Nonce    int64
}

func (q *Queries) UpsertNonce(ctx context.Context, arg UpsertNonceParams) error {
	_, err := q.db.ExecContext(ctx, upsertNonce,
		arg.Address,
		arg.TenantID,
		arg.ChainID,
		arg.Nonce,
	)
	return err
}
