package relay

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/custodix/go-metarelay/pkg/sqlstore"
)

// ChainID is a supported chain identifier.
type ChainID int64

// MetaTxRequest is a user relay request. The signature authorizes the
// call payload off-chain; the relay pays for and broadcasts it.
type MetaTxRequest struct {
	ChainID       ChainID `json:"chainId"`
	WalletAddress string  `json:"walletAddress"`
	To            string  `json:"to"`
	Data          string  `json:"data"`
	Value         string  `json:"value"`
	Signature     string  `json:"signature"`
	TenantID      string  `json:"tenantId,omitempty"`
}

// MetaTxResponse is a relay response.
type MetaTxResponse struct {
	TransactionHash string `json:"transactionHash"`
	Nonce           int64  `json:"nonce"`
}

// TxnResponse is a transaction read response.
type TxnResponse struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	Data      string `json:"data"`
	Nonce     int64  `json:"nonce"`
	Status    string `json:"status"`
	ChainID   int64  `json:"chainId"`
	CreatedAt int64  `json:"createdAt"`
}

// Relayer defines the relay service surface.
type Relayer interface {
	// Initialize verifies the relay's dependencies are reachable. The
	// service is unusable if it returns an error.
	Initialize(ctx context.Context) error

	// Ready reports whether Initialize has completed successfully.
	Ready() bool

	// SendMetaTransaction validates, sequences, signature-checks, submits
	// and records a meta-transaction.
	SendMetaTransaction(ctx context.Context, req MetaTxRequest) (MetaTxResponse, error)

	// GetTransaction returns a previously relayed transaction by hash.
	GetTransaction(ctx context.Context, chainID ChainID, hash string) (TxnResponse, error)

	// ListWalletTransactions returns all transactions relayed for a wallet,
	// ordered by nonce.
	ListWalletTransactions(ctx context.Context, chainID ChainID, address string) ([]TxnResponse, error)
}

// TxnResponseFromRecord maps a stored transaction to its API shape.
func TxnResponseFromRecord(rec sqlstore.TxnRecord) TxnResponse {
	return TxnResponse{
		Hash:      rec.Hash.Hex(),
		From:      rec.From.Hex(),
		To:        rec.To.Hex(),
		Value:     rec.Value,
		Data:      hexutil.Encode(rec.Data),
		Nonce:     rec.Nonce,
		Status:    string(rec.Status),
		ChainID:   rec.ChainID,
		CreatedAt: rec.CreatedAt.Unix(),
	}
}
