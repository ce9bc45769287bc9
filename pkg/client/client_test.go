package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodix/go-metarelay/internal/relay"
	"github.com/custodix/go-metarelay/pkg/errors"
)

func TestRelay(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chain/1337/relay", r.URL.Path)

		var req relay.MetaTxRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "0x1278f9b9f4b9d4a7d8b27c9b8a0dc0c2f77a6c55", req.WalletAddress)

		_ = json.NewEncoder(w).Encode(relay.MetaTxResponse{TransactionHash: "0xabc", Nonce: 7})
	}))
	defer srv.Close()

	client, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	resp, err := client.Relay(context.Background(), 1337, relay.MetaTxRequest{
		WalletAddress: "0x1278f9b9f4b9d4a7d8b27c9b8a0dc0c2f77a6c55",
	})
	require.NoError(t, err)
	require.Equal(t, "0xabc", resp.TransactionHash)
	require.Equal(t, int64(7), resp.Nonce)
}

func TestRelayErrorBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(errors.ServiceError{Message: "signature verification failed"})
	}))
	defer srv.Close()

	client, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = client.Relay(context.Background(), 1337, relay.MetaTxRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "signature verification failed")
	require.Contains(t, err.Error(), "403")
}

func TestListWalletTransactions(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chain/1337/wallets/0xabc/txns", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]relay.TxnResponse{{Hash: "0x1", Status: "pending"}})
	}))
	defer srv.Close()

	client, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	txns, err := client.ListWalletTransactions(context.Background(), 1337, "0xabc")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, "0x1", txns[0].Hash)
}

func TestCheckHealth(t *testing.T) {
	t.Parallel()

	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	healthy, err := client.CheckHealth(context.Background())
	require.NoError(t, err)
	require.False(t, healthy)

	status = http.StatusOK
	healthy, err = client.CheckHealth(context.Background())
	require.NoError(t, err)
	require.True(t, healthy)
}
