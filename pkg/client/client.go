package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/custodix/go-metarelay/buildinfo"
	"github.com/custodix/go-metarelay/internal/relay"
	"github.com/custodix/go-metarelay/pkg/errors"
)

// Client talks to a relay daemon over its HTTP API.
type Client struct {
	baseURL   *url.URL
	relayHTTP *http.Client
}

// Config configures the Client.
type Config struct {
	// Endpoint is the relay daemon base URL, e.g. http://localhost:8080.
	Endpoint string
	// HTTP optionally overrides the underlying http client.
	HTTP *http.Client
}

// NewClient creates a new Client.
func NewClient(config Config) (*Client, error) {
	baseURL, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %s", err)
	}
	relayHTTP := config.HTTP
	if relayHTTP == nil {
		relayHTTP = &http.Client{}
	}
	return &Client{baseURL: baseURL, relayHTTP: relayHTTP}, nil
}

// Relay submits a meta-transaction request and returns the broadcast
// hash and assigned nonce.
func (c *Client) Relay(
	ctx context.Context, chainID int64, req relay.MetaTxRequest,
) (relay.MetaTxResponse, error) {
	var resp relay.MetaTxResponse
	uri := fmt.Sprintf("%s/chain/%d/relay", c.baseURL, chainID)

	body, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("marshaling request: %s", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return resp, fmt.Errorf("creating request: %s", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if err := c.do(httpReq, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// GetTransaction returns a previously relayed transaction by hash.
func (c *Client) GetTransaction(
	ctx context.Context, chainID int64, hash string,
) (relay.TxnResponse, error) {
	var resp relay.TxnResponse
	uri := fmt.Sprintf("%s/chain/%d/txns/%s", c.baseURL, chainID, hash)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return resp, fmt.Errorf("creating request: %s", err)
	}
	if err := c.do(httpReq, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// ListWalletTransactions returns the wallet's relayed transactions.
func (c *Client) ListWalletTransactions(
	ctx context.Context, chainID int64, address string,
) ([]relay.TxnResponse, error) {
	var resp []relay.TxnResponse
	uri := fmt.Sprintf("%s/chain/%d/wallets/%s/txns", c.baseURL, chainID, address)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %s", err)
	}
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CheckHealth reports whether the relay daemon is up and initialized.
func (c *Client) CheckHealth(ctx context.Context) (bool, error) {
	uri := fmt.Sprintf("%s/health", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %s", err)
	}
	res, err := c.relayHTTP.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("http get error: %s", err)
	}
	defer func() { _ = res.Body.Close() }()

	return res.StatusCode == http.StatusOK, nil
}

// Version returns build information of the running daemon.
func (c *Client) Version(ctx context.Context) (buildinfo.Summary, error) {
	var resp buildinfo.Summary
	uri := fmt.Sprintf("%s/version", c.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return resp, fmt.Errorf("creating request: %s", err)
	}
	if err := c.do(httpReq, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.relayHTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http %s error: %s", req.Method, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		var svcErr errors.ServiceError
		if err := json.NewDecoder(res.Body).Decode(&svcErr); err != nil || svcErr.Message == "" {
			return fmt.Errorf("unexpected status code %d", res.StatusCode)
		}
		return fmt.Errorf("status code %d: %s", res.StatusCode, svcErr.Message)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %s", err)
	}
	return nil
}
