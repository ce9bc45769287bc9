package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/custodix/go-metarelay/internal/relay"
	"github.com/custodix/go-metarelay/internal/router/middlewares"
)

type relayerMock struct {
	ready    bool
	sendResp relay.MetaTxResponse
	sendErr  error
	getResp  relay.TxnResponse
	getErr   error
	listResp []relay.TxnResponse
	listErr  error
}

func (m *relayerMock) Initialize(_ context.Context) error { return nil }

func (m *relayerMock) Ready() bool { return m.ready }

func (m *relayerMock) SendMetaTransaction(
	_ context.Context, _ relay.MetaTxRequest,
) (relay.MetaTxResponse, error) {
	return m.sendResp, m.sendErr
}

func (m *relayerMock) GetTransaction(
	_ context.Context, _ relay.ChainID, _ string,
) (relay.TxnResponse, error) {
	return m.getResp, m.getErr
}

func (m *relayerMock) ListWalletTransactions(
	_ context.Context, _ relay.ChainID, _ string,
) ([]relay.TxnResponse, error) {
	return m.listResp, m.listErr
}

func relayRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	r, err := http.NewRequest(http.MethodPost, "/chain/1337/relay", strings.NewReader(body))
	require.NoError(t, err)
	ctx := context.WithValue(r.Context(), middlewares.ContextKeyChainID, relay.ChainID(1337))
	return r.WithContext(ctx)
}

func TestSendMetaTransactionController(t *testing.T) {
	t.Parallel()

	ctrl := NewRelayController(&relayerMock{
		sendResp: relay.MetaTxResponse{TransactionHash: "0xabc", Nonce: 3},
	})

	res := httptest.NewRecorder()
	ctrl.SendMetaTransaction(res, relayRequest(t, `{"walletAddress":"0x1","to":"0x2","data":"0x","value":"0","signature":"0x00"}`))

	require.Equal(t, http.StatusOK, res.Code)
	var resp relay.MetaTxResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	require.Equal(t, "0xabc", resp.TransactionHash)
	require.Equal(t, int64(3), resp.Nonce)
}

func TestSendMetaTransactionControllerInvalidBody(t *testing.T) {
	t.Parallel()

	ctrl := NewRelayController(&relayerMock{})

	res := httptest.NewRecorder()
	ctrl.SendMetaTransaction(res, relayRequest(t, "not even json"))

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSendMetaTransactionControllerErrorMapping(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name       string
		err        error
		wantStatus int
	}

	tests := []testCase{
		{
			name:       "validation error",
			err:        &relay.ValidationError{Field: "value", Msg: "not a non-negative base-10 integer"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "signature verification error",
			err:        &relay.SignatureVerificationError{WalletAddress: "0x1"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "routing error",
			err:        &relay.RoutingError{ChainID: 1337, WalletAddress: "0x1"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "wallet not found",
			err:        &relay.WalletNotFoundError{WalletAddress: "0x1"},
			wantStatus: http.StatusNotFound,
		},
		{
			// an unreachable HSM is retriable, not a forbidden request
			name:       "key access error",
			err:        &relay.KeyAccessError{KeyID: "key-1", Cause: context.DeadlineExceeded},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "submission error",
			err:        &relay.SubmissionError{ChainID: 1337, WalletAddress: "0x1", Cause: context.DeadlineExceeded},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "store error",
			err:        &relay.StoreError{Op: "inserting txn", Cause: context.DeadlineExceeded},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(tc testCase) func(t *testing.T) {
			return func(t *testing.T) {
				t.Parallel()

				ctrl := NewRelayController(&relayerMock{sendErr: tc.err})
				res := httptest.NewRecorder()
				ctrl.SendMetaTransaction(res, relayRequest(t, `{"walletAddress":"0x1"}`))

				require.Equal(t, tc.wantStatus, res.Code)
			}
		}(tc))
	}
}

func TestGetTransactionController(t *testing.T) {
	t.Parallel()

	ctrl := NewRelayController(&relayerMock{
		getResp: relay.TxnResponse{Hash: "0xabc", Status: "pending"},
	})

	r, err := http.NewRequest(http.MethodGet, "/chain/1337/txns/0xabc", nil)
	require.NoError(t, err)
	ctx := context.WithValue(r.Context(), middlewares.ContextKeyChainID, relay.ChainID(1337))
	r = mux.SetURLVars(r.WithContext(ctx), map[string]string{"hash": "0xabc"})

	res := httptest.NewRecorder()
	ctrl.GetTransaction(res, r)

	require.Equal(t, http.StatusOK, res.Code)
	var resp relay.TxnResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	require.Equal(t, "0xabc", resp.Hash)
	require.Equal(t, "pending", resp.Status)
}

func TestListWalletTransactionsControllerEmpty(t *testing.T) {
	t.Parallel()

	ctrl := NewRelayController(&relayerMock{})

	r, err := http.NewRequest(http.MethodGet, "/chain/1337/wallets/0x1/txns", nil)
	require.NoError(t, err)
	ctx := context.WithValue(r.Context(), middlewares.ContextKeyChainID, relay.ChainID(1337))
	r = mux.SetURLVars(r.WithContext(ctx), map[string]string{"address": "0x1"})

	res := httptest.NewRecorder()
	ctrl.ListWalletTransactions(res, r)

	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, "[]", res.Body.String())
}

func TestHealthReflectsReadiness(t *testing.T) {
	t.Parallel()

	ctrl := NewRelayController(&relayerMock{ready: false})
	res := httptest.NewRecorder()
	ctrl.Health(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, res.Code)

	ctrl = NewRelayController(&relayerMock{ready: true})
	res = httptest.NewRecorder()
	ctrl.Health(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, res.Code)
}
