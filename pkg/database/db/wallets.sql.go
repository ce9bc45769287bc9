package db

import (
	"context"
	"time"
)

const getWallet = `
SELECT address, owner, hsm_key_id, tenant_id, created_at FROM wallets WHERE address = ?1
`

func (q *Queries) GetWallet(ctx context.Context, address string) (Wallet, error) {
	row := q.db.QueryRowContext(ctx, getWallet, address)
	var i Wallet
	var createdAtUnix int64
	if err := row.Scan(
		&i.Address,
		&i.Owner,
		&i.HSMKeyID,
		&i.TenantID,
		&createdAtUnix,
	); err != nil {
		return Wallet{}, err
	}
	i.CreatedAt = time.Unix(createdAtUnix, 0)
	return i, nil
}

const insertWallet = `
INSERT INTO wallets ("address", "owner", "hsm_key_id", "tenant_id", "created_at")
VALUES (?1, ?2, ?3, ?4, ?5)
ON CONFLICT (address) DO UPDATE SET owner=?2, hsm_key_id=?3, tenant_id=?4
`

type InsertWalletParams struct {
	Address  string
	Owner    string
	HSMKeyID string
	TenantID string
}

func (q *Queries) InsertWallet(ctx context.Context, arg InsertWalletParams) error {
	_, err := q.db.ExecContext(ctx, insertWallet,
		arg.Address,
		arg.Owner,
		arg.HSMKeyID,
		arg.TenantID,
		time.Now().Unix(),
	)
	return err
}

const listWalletsByTenant = `
SELECT address, owner, hsm_key_id, tenant_id, created_at FROM wallets WHERE tenant_id = ?1 ORDER BY created_at
`

func (q *Queries) ListWalletsByTenant(ctx context.Context, tenantID string) ([]Wallet, error) {
	rows, err := q.db.QueryContext(ctx, listWalletsByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Wallet
	for rows.Next() {
		var i Wallet
		var createdAtUnix int64
		if err := rows.Scan(
			&i.Address,
			&i.Owner,
			&i.HSMKeyID,
			&i.TenantID,
			&createdAtUnix,
		); err != nil {
			return nil, err
		}
		i.CreatedAt = time.Unix(createdAtUnix, 0)
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
