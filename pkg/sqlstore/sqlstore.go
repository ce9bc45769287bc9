package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TxnStatus is the lifecycle state of a relayed transaction. The relay
// only ever writes TxnStatusPending; the confirmed/failed transitions
// belong to an external watcher.
type TxnStatus string

const (
	TxnStatusPending   TxnStatus = "pending"
	TxnStatusConfirmed TxnStatus = "confirmed"
	TxnStatusFailed    TxnStatus = "failed"
)

// ErrWalletNotFound indicates the wallet isn't provisioned, or belongs
// to another tenant.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrTxnNotFound indicates no transaction record exists for the hash.
var ErrTxnNotFound = errors.New("transaction not found")

// WalletRecord is a provisioned smart-account. The relay treats these
// as read-only; provisioning happens out-of-band (or via the toolkit).
type WalletRecord struct {
	Address   common.Address
	Owner     common.Address
	HSMKeyID  string
	TenantID  string
	CreatedAt time.Time
}

// TxnRecord is the durable outcome of an accepted meta-transaction.
type TxnRecord struct {
	Hash      common.Hash
	From      common.Address
	To        common.Address
	Value     string
	Data      []byte
	Nonce     int64
	Status    TxnStatus
	ChainID   int64
	TenantID  string
	CreatedAt time.Time
}

// SystemStore is the relay's persistence layer for wallets and
// transaction records. Opening the backing database is idempotent:
// migrations are safe to run repeatedly.
type SystemStore interface {
	GetWallet(ctx context.Context, address common.Address, tenantID string) (WalletRecord, error)
	InsertWallet(ctx context.Context, wallet WalletRecord) error
	ListWalletsByTenant(ctx context.Context, tenantID string) ([]WalletRecord, error)

	InsertTxn(ctx context.Context, txn TxnRecord) error
	GetTxn(ctx context.Context, hash common.Hash) (TxnRecord, error)
	ListTxnsByAddress(ctx context.Context, from common.Address, tenantID string) ([]TxnRecord, error)
	CountTxnsByAddress(ctx context.Context, chainID int64, from common.Address, tenantID string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
