package impl

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/custodix/go-metarelay/internal/chains"
	"github.com/custodix/go-metarelay/internal/relay"
	"github.com/custodix/go-metarelay/pkg/audit"
	"github.com/custodix/go-metarelay/pkg/hsm"
	"github.com/custodix/go-metarelay/pkg/metatx"
	"github.com/custodix/go-metarelay/pkg/nonce"
	"github.com/custodix/go-metarelay/pkg/retry"
	"github.com/custodix/go-metarelay/pkg/sqlstore"
	"github.com/custodix/go-metarelay/pkg/txnsender"
)

// RelayService implements the relay pipeline over explicit dependency
// handles. It holds no mutable state besides the readiness flag; the
// per-wallet nonce sequence is owned by the tracker.
type RelayService struct {
	store       sqlstore.SystemStore
	hsm         hsm.Provider
	tracker     nonce.Tracker
	auditLogger audit.Logger
	chainStacks map[relay.ChainID]chains.ChainStack
	tenantID    string
	retryCfg    retry.Config

	ready *atomic.Bool
	log   zerolog.Logger
}

// NewRelayService creates a relay service bound to the provided chain
// stacks and an optional tenant scope.
func NewRelayService(
	store sqlstore.SystemStore,
	hsmProvider hsm.Provider,
	tracker nonce.Tracker,
	auditLogger audit.Logger,
	chainStacks map[relay.ChainID]chains.ChainStack,
	tenantID string,
	retryCfg retry.Config,
) *RelayService {
	return &RelayService{
		store:       store,
		hsm:         hsmProvider,
		tracker:     tracker,
		auditLogger: auditLogger,
		chainStacks: chainStacks,
		tenantID:    tenantID,
		retryCfg:    retryCfg,
		ready:       atomic.NewBool(false),
		log: logger.With().
			Str("component", "relayservice").
			Logger(),
	}
}

// Initialize verifies the HSM and the store are reachable, and records
// the startup in the audit log. Safe to call more than once; each call
// re-runs the checks and emits one audit entry.
func (r *RelayService) Initialize(ctx context.Context) error {
	if err := retry.Do(ctx, r.retryCfg, func(ctx context.Context) error {
		return r.hsm.ValidateConfig(ctx)
	}); err != nil {
		return &relay.InitializationError{Dependency: "hsm", Cause: err}
	}
	if err := retry.Do(ctx, r.retryCfg, func(ctx context.Context) error {
		return r.store.Ping(ctx)
	}); err != nil {
		return &relay.InitializationError{Dependency: "store", Cause: err}
	}
	if err := r.auditLogger.Create(ctx, audit.Entry{
		Action:     "relayer_initialized",
		TargetType: "relayer",
		TenantID:   r.tenantID,
	}); err != nil {
		return &relay.InitializationError{Dependency: "audit", Cause: err}
	}
	r.ready.Store(true)
	return nil
}

// Ready reports whether Initialize has completed successfully.
func (r *RelayService) Ready() bool {
	return r.ready.Load()
}

// SendMetaTransaction runs the relay pipeline. Stages short-circuit on
// failure; the per-wallet nonce lease is held from derivation through
// persistence so no two concurrent calls observe the same nonce.
func (r *RelayService) SendMetaTransaction(
	ctx context.Context,
	req relay.MetaTxRequest,
) (relay.MetaTxResponse, error) {
	parsed, err := r.validate(req)
	if err != nil {
		return relay.MetaTxResponse{}, err
	}

	stack := r.chainStacks[req.ChainID]
	sender, ok := stack.Senders.Lookup(parsed.wallet)
	if !ok {
		return relay.MetaTxResponse{}, &relay.RoutingError{
			ChainID:       req.ChainID,
			WalletAddress: req.WalletAddress,
		}
	}

	walletRec, err := r.resolveWallet(ctx, parsed.wallet)
	if err != nil {
		return relay.MetaTxResponse{}, err
	}

	registerPendingTxn, unlock, txnNonce, err := r.tracker.GetNonce(
		ctx, int64(req.ChainID), parsed.wallet, r.tenantID)
	if err != nil {
		return relay.MetaTxResponse{}, &relay.StoreError{Op: "deriving nonce", Cause: err}
	}
	defer unlock()

	msg := metatx.Message{
		To:    parsed.to,
		Value: parsed.value,
		Data:  parsed.data,
		Nonce: txnNonce,
	}
	digest, err := metatx.Hash(int64(req.ChainID), parsed.wallet, msg)
	if err != nil {
		return relay.MetaTxResponse{}, &relay.ValidationError{
			Field: "request", Msg: fmt.Sprintf("hashing typed data: %s", err),
		}
	}

	if err := r.verifySignature(ctx, walletRec, digest, parsed.signature); err != nil {
		return relay.MetaTxResponse{}, err
	}

	var hash common.Hash
	if err := retry.Do(ctx, r.retryCfg, func(ctx context.Context) error {
		var err error
		hash, err = sender.SendTransaction(ctx, txnsender.TxnParams{
			To:    parsed.to,
			Value: parsed.value,
			Data:  parsed.data,
		})
		return err
	}); err != nil {
		return relay.MetaTxResponse{}, &relay.SubmissionError{
			ChainID:       req.ChainID,
			WalletAddress: req.WalletAddress,
			Cause:         err,
		}
	}

	// The chain accepted the transaction; from here the hash is
	// authoritative and must reach the caller even if bookkeeping fails.
	if err := registerPendingTxn(hash); err != nil {
		// the stored sequence now lags the submitted nonce; the log
		// carries both so the repair is unambiguous
		r.log.Error().
			Err(err).
			Str("txnHash", hash.Hex()).
			Str("walletAddress", req.WalletAddress).
			Int64("chainID", int64(req.ChainID)).
			Int64("nonce", txnNonce).
			Msg("registering pending txn failed, reconciliation required")
	}
	r.persistTxn(ctx, req, parsed, walletRec, hash, txnNonce)

	if err := r.auditLogger.Create(ctx, audit.Entry{
		Action:      "meta_transaction_relayed",
		PerformedBy: walletRec.Owner.Hex(),
		TargetID:    hash.Hex(),
		TargetType:  "transaction",
		TenantID:    r.tenantID,
		Metadata: map[string]interface{}{
			"chainId":  int64(req.ChainID),
			"to":       parsed.to.Hex(),
			"value":    parsed.value.String(),
			"nonce":    txnNonce,
			"hsmKeyId": walletRec.HSMKeyID,
		},
	}); err != nil {
		r.log.Error().
			Err(err).
			Str("txnHash", hash.Hex()).
			Msg("writing audit entry failed, reconciliation required")
	}

	return relay.MetaTxResponse{TransactionHash: hash.Hex(), Nonce: txnNonce}, nil
}

// GetTransaction returns a relayed transaction by hash.
func (r *RelayService) GetTransaction(
	ctx context.Context,
	chainID relay.ChainID,
	hash string,
) (relay.TxnResponse, error) {
	if _, ok := r.chainStacks[chainID]; !ok {
		return relay.TxnResponse{}, &relay.ValidationError{
			Field: "chainId", Msg: fmt.Sprintf("%d isn't a supported chain id", chainID),
		}
	}
	rec, err := r.store.GetTxn(ctx, common.HexToHash(hash))
	if err != nil {
		return relay.TxnResponse{}, &relay.StoreError{Op: "getting txn", Cause: err}
	}
	return relay.TxnResponseFromRecord(rec), nil
}

// ListWalletTransactions returns the wallet's relayed transactions
// ordered by nonce.
func (r *RelayService) ListWalletTransactions(
	ctx context.Context,
	chainID relay.ChainID,
	address string,
) ([]relay.TxnResponse, error) {
	if _, ok := r.chainStacks[chainID]; !ok {
		return nil, &relay.ValidationError{
			Field: "chainId", Msg: fmt.Sprintf("%d isn't a supported chain id", chainID),
		}
	}
	if !common.IsHexAddress(address) {
		return nil, &relay.ValidationError{Field: "address", Msg: "not a hex address"}
	}
	recs, err := r.store.ListTxnsByAddress(ctx, common.HexToAddress(address), r.tenantID)
	if err != nil {
		return nil, &relay.StoreError{Op: "listing txns", Cause: err}
	}
	ret := make([]relay.TxnResponse, len(recs))
	for i, rec := range recs {
		ret[i] = relay.TxnResponseFromRecord(rec)
	}
	return ret, nil
}

type parsedRequest struct {
	wallet    common.Address
	to        common.Address
	data      []byte
	value     *big.Int
	signature []byte
}

func (r *RelayService) validate(req relay.MetaTxRequest) (parsedRequest, error) {
	if _, ok := r.chainStacks[req.ChainID]; !ok {
		return parsedRequest{}, &relay.ValidationError{
			Field: "chainId", Msg: fmt.Sprintf("%d isn't a supported chain id", req.ChainID),
		}
	}
	if !common.IsHexAddress(req.WalletAddress) {
		return parsedRequest{}, &relay.ValidationError{Field: "walletAddress", Msg: "not a hex address"}
	}
	if !common.IsHexAddress(req.To) {
		return parsedRequest{}, &relay.ValidationError{Field: "to", Msg: "not a hex address"}
	}
	data, err := hexutil.Decode(req.Data)
	if err != nil {
		return parsedRequest{}, &relay.ValidationError{Field: "data", Msg: fmt.Sprintf("not valid hex: %s", err)}
	}
	valueStr := req.Value
	if valueStr == "" {
		valueStr = "0"
	}
	value, ok := new(big.Int).SetString(valueStr, 10)
	if !ok || value.Sign() < 0 {
		return parsedRequest{}, &relay.ValidationError{
			Field: "value", Msg: "not a non-negative base-10 integer",
		}
	}
	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		return parsedRequest{}, &relay.ValidationError{Field: "signature", Msg: fmt.Sprintf("not valid hex: %s", err)}
	}
	if len(signature) != metatx.SignatureLength {
		return parsedRequest{}, &relay.ValidationError{
			Field: "signature", Msg: fmt.Sprintf("must be %d bytes, got %d", metatx.SignatureLength, len(signature)),
		}
	}
	return parsedRequest{
		wallet:    common.HexToAddress(req.WalletAddress),
		to:        common.HexToAddress(req.To),
		data:      data,
		value:     value,
		signature: signature,
	}, nil
}

func (r *RelayService) resolveWallet(
	ctx context.Context,
	walletAddr common.Address,
) (sqlstore.WalletRecord, error) {
	var rec sqlstore.WalletRecord
	if err := retry.Do(ctx, r.retryCfg, func(ctx context.Context) error {
		var err error
		rec, err = r.store.GetWallet(ctx, walletAddr, r.tenantID)
		if err == sqlstore.ErrWalletNotFound {
			return retry.Permanent(err)
		}
		return err
	}); err != nil {
		if err == sqlstore.ErrWalletNotFound {
			return sqlstore.WalletRecord{}, &relay.WalletNotFoundError{WalletAddress: walletAddr.Hex()}
		}
		return sqlstore.WalletRecord{}, &relay.StoreError{Op: "getting wallet", Cause: err}
	}
	if rec.Owner == (common.Address{}) || rec.HSMKeyID == "" {
		return sqlstore.WalletRecord{}, &relay.WalletNotFoundError{
			WalletAddress: walletAddr.Hex(),
			Cause:         fmt.Errorf("wallet record is missing owner or key binding"),
		}
	}
	return rec, nil
}

// verifySignature recovers the signer from the digest and compares it
// with the address of the wallet's HSM-bound key. Retry covers only the
// key fetch; the comparison itself runs exactly once.
func (r *RelayService) verifySignature(
	ctx context.Context,
	walletRec sqlstore.WalletRecord,
	digest []byte,
	signature []byte,
) error {
	signer, err := metatx.RecoverSigner(digest, signature)
	if err != nil {
		return &relay.SignatureVerificationError{
			WalletAddress: walletRec.Address.Hex(),
			Cause:         err,
		}
	}

	// a failed key fetch is an availability problem, not a verdict on
	// the signature; it surfaces as a transient KeyAccessError
	var key hsm.Key
	if err := retry.Do(ctx, r.retryCfg, func(ctx context.Context) error {
		var err error
		key, err = r.hsm.GetKey(ctx, walletRec.HSMKeyID, r.tenantID)
		if err == hsm.ErrKeyNotFound {
			return retry.Permanent(err)
		}
		return err
	}); err != nil {
		return &relay.KeyAccessError{KeyID: walletRec.HSMKeyID, Cause: err}
	}

	if !metatx.EqualAddresses(signer, key.Address()) {
		return &relay.SignatureVerificationError{WalletAddress: walletRec.Address.Hex()}
	}
	return nil
}

// persistTxn writes the pending transaction record. A failure here can't
// fail the call anymore; it is logged for reconciliation instead.
func (r *RelayService) persistTxn(
	ctx context.Context,
	req relay.MetaTxRequest,
	parsed parsedRequest,
	walletRec sqlstore.WalletRecord,
	hash common.Hash,
	txnNonce int64,
) {
	rec := sqlstore.TxnRecord{
		Hash:     hash,
		From:     walletRec.Address,
		To:       parsed.to,
		Value:    parsed.value.String(),
		Data:     parsed.data,
		Nonce:    txnNonce,
		Status:   sqlstore.TxnStatusPending,
		ChainID:  int64(req.ChainID),
		TenantID: r.tenantID,
	}
	if err := retry.Do(ctx, r.retryCfg, func(ctx context.Context) error {
		return r.store.InsertTxn(ctx, rec)
	}); err != nil {
		r.log.Error().
			Err(err).
			Str("txnHash", hash.Hex()).
			Str("walletAddress", walletRec.Address.Hex()).
			Int64("chainID", int64(req.ChainID)).
			Int64("nonce", txnNonce).
			Msg("persisting txn record failed, reconciliation required")
	}
}
