package db

import "time"

// Wallet is a row of the wallets table.
type Wallet struct {
	Address   string
	Owner     string
	HSMKeyID  string
	TenantID  string
	CreatedAt time.Time
}

// Txn is a row of the txns table.
type Txn struct {
	Hash        string
	FromAddress string
	ToAddress   string
	Value       string
	Data        []byte
	Nonce       int64
	Status      string
	ChainID     int64
	TenantID    string
	CreatedAt   time.Time
}

// WalletNonce is a row of the wallet_nonce table.
type WalletNonce struct {
	Address  string
	TenantID string
	ChainID  int64
	Nonce    int64
}

// AuditLog is a row of the audit_log table.
type AuditLog struct {
	ID          string
	Action      string
	PerformedBy string
	TargetID    string
	TargetType  string
	TenantID    string
	Metadata    string
	CreatedAt   time.Time
}
