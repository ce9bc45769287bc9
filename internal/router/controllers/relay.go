package controllers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/custodix/go-metarelay/internal/relay"
	"github.com/custodix/go-metarelay/internal/router/middlewares"
	"github.com/custodix/go-metarelay/pkg/errors"
	"github.com/custodix/go-metarelay/pkg/sqlstore"
)

// RelayController defines the HTTP handlers for relaying meta-transactions
// and reading back their records.
type RelayController struct {
	relayer relay.Relayer
}

// NewRelayController creates a new RelayController.
func NewRelayController(relayer relay.Relayer) *RelayController {
	return &RelayController{relayer: relayer}
}

// SendMetaTransaction handles POST /chain/{chainID}/relay.
func (c *RelayController) SendMetaTransaction(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rw.Header().Set("Content-Type", "application/json")

	var req relay.MetaTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		log.Ctx(ctx).Error().Err(err).Msg("invalid relay request body")
		_ = json.NewEncoder(rw).Encode(errors.ServiceError{Message: "Invalid request body"})
		return
	}
	req.ChainID = ctx.Value(middlewares.ContextKeyChainID).(relay.ChainID)

	resp, err := c.relayer.SendMetaTransaction(ctx, req)
	if err != nil {
		status := statusFromError(err)
		rw.WriteHeader(status)
		log.Ctx(ctx).
			Error().
			Err(err).
			Str("walletAddress", req.WalletAddress).
			Str("to", req.To).
			Int64("chainID", int64(req.ChainID)).
			Msg("relaying meta-transaction")
		_ = json.NewEncoder(rw).Encode(errors.ServiceError{Message: err.Error()})
		return
	}

	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(resp)
}

// GetTransaction handles GET /chain/{chainID}/txns/{hash}.
func (c *RelayController) GetTransaction(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rw.Header().Set("Content-Type", "application/json")

	chainID := ctx.Value(middlewares.ContextKeyChainID).(relay.ChainID)
	hash := mux.Vars(r)["hash"]

	resp, err := c.relayer.GetTransaction(ctx, chainID, hash)
	if err != nil {
		rw.WriteHeader(statusFromError(err))
		log.Ctx(ctx).Error().Err(err).Str("txnHash", hash).Msg("getting transaction")
		_ = json.NewEncoder(rw).Encode(errors.ServiceError{Message: err.Error()})
		return
	}

	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(resp)
}

// ListWalletTransactions handles GET /chain/{chainID}/wallets/{address}/txns.
func (c *RelayController) ListWalletTransactions(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rw.Header().Set("Content-Type", "application/json")

	chainID := ctx.Value(middlewares.ContextKeyChainID).(relay.ChainID)
	address := mux.Vars(r)["address"]

	resp, err := c.relayer.ListWalletTransactions(ctx, chainID, address)
	if err != nil {
		rw.WriteHeader(statusFromError(err))
		log.Ctx(ctx).Error().Err(err).Str("walletAddress", address).Msg("listing wallet transactions")
		_ = json.NewEncoder(rw).Encode(errors.ServiceError{Message: err.Error()})
		return
	}
	if resp == nil {
		resp = []relay.TxnResponse{}
	}

	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(resp)
}

// Health handles GET /health. It reports 503 until the relayer finished
// initializing.
func (c *RelayController) Health(rw http.ResponseWriter, _ *http.Request) {
	if !c.relayer.Ready() {
		rw.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	rw.WriteHeader(http.StatusOK)
}

// statusFromError maps the relay error taxonomy to HTTP status codes so
// clients can tell invalid requests from transient failures.
func statusFromError(err error) int {
	switch e := err.(type) {
	case *relay.ValidationError:
		return http.StatusBadRequest
	case *relay.SignatureVerificationError:
		return http.StatusForbidden
	case *relay.RoutingError, *relay.WalletNotFoundError:
		return http.StatusNotFound
	case *relay.KeyAccessError, *relay.SubmissionError, *relay.InitializationError:
		return http.StatusServiceUnavailable
	case *relay.StoreError:
		if stderrors.Is(e, sqlstore.ErrTxnNotFound) || stderrors.Is(e, sqlstore.ErrWalletNotFound) {
			return http.StatusNotFound
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
