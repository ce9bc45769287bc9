package db

import (
	"context"
	"time"
)

const getTxn = `
SELECT hash, from_address, to_address, value, data, nonce, status, chain_id, tenant_id, created_at
FROM txns WHERE hash = ?1
`

func (q *Queries) GetTxn(ctx context.Context, hash string) (Txn, error) {
	row := q.db.QueryRowContext(ctx, getTxn, hash)
	return scanTxn(row)
}

const insertTxn = `
INSERT INTO txns ("hash", "from_address", "to_address", "value", "data", "nonce", "status", "chain_id", "tenant_id", "created_at")
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10)
`

type InsertTxnParams struct {
	Hash        string
	FromAddress string
	ToAddress   string
	Value       string
	Data        []byte
	Nonce       int64
	Status      string
	ChainID     int64
	TenantID    string
}

func (q *Queries) InsertTxn(ctx context.Context, arg InsertTxnParams) error {
	_, err := q.db.ExecContext(ctx, insertTxn,
		arg.Hash,
		arg.FromAddress,
		arg.ToAddress,
		arg.Value,
		arg.Data,
		arg.Nonce,
		arg.Status,
		arg.ChainID,
		arg.TenantID,
		time.Now().Unix(),
	)
	return err
}

const listTxnsByAddress = `
SELECT hash, from_address, to_address, value, data, nonce, status, chain_id, tenant_id, created_at
FROM txns WHERE from_address = ?1 AND (?2 = '' OR tenant_id = ?2) ORDER BY nonce
`

type ListTxnsByAddressParams struct {
	FromAddress string
	TenantID    string
}

func (q *Queries) ListTxnsByAddress(ctx context.Context, arg ListTxnsByAddressParams) ([]Txn, error) {
	rows, err := q.db.QueryContext(ctx, listTxnsByAddress, arg.FromAddress, arg.TenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Txn
	for rows.Next() {
		var i Txn
		var createdAtUnix int64
		if err := rows.Scan(
			&i.Hash,
			&i.FromAddress,
			&i.ToAddress,
			&i.Value,
			&i.Data,
			&i.Nonce,
			&i.Status,
			&i.ChainID,
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

const countTxnsByAddress = `
SELECT count(*) FROM txns WHERE chain_id = ?1 AND from_address = ?2 AND (?3 = '' OR tenant_id = ?3)
`

type CountTxnsByAddressParams struct {
	ChainID     int64
	FromAddress string
	TenantID    string
}

func (q *Queries) CountTxnsByAddress(ctx context.Context, arg CountTxnsByAddressParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTxnsByAddress, arg.ChainID, arg.FromAddress, arg.TenantID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

func scanTxn(row interface{ Scan(...interface{}) error }) (Txn, error) {
	var i Txn
	var createdAtUnix int64
	if err := row.Scan(
		&i.Hash,
		&i.FromAddress,
		&i.ToAddress,
		&i.Value,
		&i.Data,
		&i.Nonce,
		&i.Status,
		&i.ChainID,
		&i.TenantID,
		&createdAtUnix,
	); err != nil {
		return Txn{}, err
	}
	i.CreatedAt = time.Unix(createdAtUnix, 0)
	return i, nil
}
