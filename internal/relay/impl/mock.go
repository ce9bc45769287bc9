package impl

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/custodix/go-metarelay/pkg/audit"
	"github.com/custodix/go-metarelay/pkg/hsm"
	"github.com/custodix/go-metarelay/pkg/nonce"
	"github.com/custodix/go-metarelay/pkg/sqlstore"
	"github.com/custodix/go-metarelay/pkg/txnsender"
)

// Hand-written collaborator fakes used by the relay service tests.

type storeMock struct {
	mu             sync.Mutex
	wallets        map[common.Address]sqlstore.WalletRecord
	txns           []sqlstore.TxnRecord
	getWalletCalls int
	insertTxnCalls int
	insertTxnErr   error
	pingErr        error
}

func newStoreMock() *storeMock {
	return &storeMock{wallets: map[common.Address]sqlstore.WalletRecord{}}
}

func (s *storeMock) GetWallet(
	_ context.Context, address common.Address, tenantID string,
) (sqlstore.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getWalletCalls++
	rec, ok := s.wallets[address]
	if !ok {
		return sqlstore.WalletRecord{}, sqlstore.ErrWalletNotFound
	}
	if tenantID != "" && rec.TenantID != tenantID {
		return sqlstore.WalletRecord{}, sqlstore.ErrWalletNotFound
	}
	return rec, nil
}

func (s *storeMock) InsertWallet(_ context.Context, wallet sqlstore.WalletRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[wallet.Address] = wallet
	return nil
}

func (s *storeMock) ListWalletsByTenant(
	_ context.Context, tenantID string,
) ([]sqlstore.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret []sqlstore.WalletRecord
	for _, rec := range s.wallets {
		if rec.TenantID == tenantID {
			ret = append(ret, rec)
		}
	}
	return ret, nil
}

func (s *storeMock) InsertTxn(_ context.Context, txn sqlstore.TxnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertTxnCalls++
	if s.insertTxnErr != nil {
		return s.insertTxnErr
	}
	s.txns = append(s.txns, txn)
	return nil
}

func (s *storeMock) GetTxn(_ context.Context, hash common.Hash) (sqlstore.TxnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.txns {
		if txn.Hash == hash {
			return txn, nil
		}
	}
	return sqlstore.TxnRecord{}, sqlstore.ErrTxnNotFound
}

func (s *storeMock) ListTxnsByAddress(
	_ context.Context, from common.Address, tenantID string,
) ([]sqlstore.TxnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret []sqlstore.TxnRecord
	for _, txn := range s.txns {
		if txn.From == from && (tenantID == "" || txn.TenantID == tenantID) {
			ret = append(ret, txn)
		}
	}
	return ret, nil
}

func (s *storeMock) CountTxnsByAddress(
	_ context.Context, chainID int64, from common.Address, tenantID string,
) (int64, error) {
	txns, _ := s.ListTxnsByAddress(context.Background(), from, tenantID)
	var count int64
	for _, txn := range txns {
		if txn.ChainID == chainID {
			count++
		}
	}
	return count, nil
}

func (s *storeMock) Ping(_ context.Context) error { return s.pingErr }

func (s *storeMock) Close() error { return nil }

type hsmMock struct {
	mu          sync.Mutex
	keys        map[string]hsm.Key
	getKeyCalls int
	// getKeyFailures is the number of leading GetKey calls that fail.
	getKeyFailures int
	getKeyErr      error
}

func newHSMMock() *hsmMock {
	return &hsmMock{keys: map[string]hsm.Key{}}
}

func (h *hsmMock) bindKey(keyID string, hexKey string) error {
	sk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return fmt.Errorf("parsing private key: %s", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys[keyID] = hsm.Key{ID: keyID, PublicKey: &sk.PublicKey}
	return nil
}

func (h *hsmMock) ValidateConfig(_ context.Context) error { return nil }

func (h *hsmMock) GetKey(_ context.Context, keyID string, _ string) (hsm.Key, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.getKeyCalls++
	if h.getKeyFailures > 0 {
		h.getKeyFailures--
		return hsm.Key{}, h.getKeyErr
	}
	key, ok := h.keys[keyID]
	if !ok {
		return hsm.Key{}, hsm.ErrKeyNotFound
	}
	return key, nil
}

type trackerMock struct {
	mu            sync.Mutex
	seqs          map[string]int64
	getNonceCalls int
	// registerErr makes register fail after advancing the sequence,
	// matching the tracker's submitted-is-submitted semantics.
	registerErr error
}

func newTrackerMock() *trackerMock {
	return &trackerMock{seqs: map[string]int64{}}
}

var _ nonce.Tracker = (*trackerMock)(nil)

func (t *trackerMock) GetNonce(
	_ context.Context, chainID int64, wallet common.Address, tenantID string,
) (nonce.RegisterPendingTxn, nonce.UnlockTracker, int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.getNonceCalls++
	key := fmt.Sprintf("%d/%s/%s", chainID, wallet.Hex(), tenantID)
	n := t.seqs[key]
	register := func(common.Hash) error {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.seqs[key] = n + 1
		return t.registerErr
	}
	return register, func() {}, n, nil
}

type senderMock struct {
	mu        sync.Mutex
	sendCalls int
	// failures is the number of leading SendTransaction calls that fail.
	failures int
	sendErr  error
}

var _ txnsender.Sender = (*senderMock)(nil)

func (s *senderMock) SendTransaction(
	_ context.Context, _ txnsender.TxnParams,
) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendCalls++
	if s.failures > 0 {
		s.failures--
		return common.Hash{}, s.sendErr
	}
	return common.BytesToHash([]byte{byte(s.sendCalls)}), nil
}

type auditMock struct {
	mu      sync.Mutex
	entries []audit.Entry
}

var _ audit.Logger = (*auditMock)(nil)

func (a *auditMock) Create(_ context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *auditMock) byAction(action string) []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ret []audit.Entry
	for _, entry := range a.entries {
		if entry.Action == action {
			ret = append(ret, entry)
		}
	}
	return ret
}
