package txnsender

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/custodix/go-metarelay/pkg/wallet"
)

// executeABI is the smart-account entrypoint the relay calls. The wallet
// contract re-checks the signer on-chain, so the relay never forwards raw
// calldata to arbitrary contracts.
const executeABI = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},{"internalType":"bytes","name":"data","type":"bytes"}],"name":"execute","outputs":[],"stateMutability":"payable","type":"function"}]`

// ChainBackend is the subset of ethclient.Client the sender needs.
type ChainBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EthSender submits execute calls to a smart-account wallet contract,
// signed and paid for by the relay's own key.
type EthSender struct {
	backend       ChainBackend
	walletAddress common.Address
	relayWallet   *wallet.Wallet
	chainID       *big.Int
	abi           abi.ABI
}

// NewEthSender creates a sender bound to one wallet contract on one chain.
func NewEthSender(
	backend ChainBackend,
	chainID int64,
	walletAddress common.Address,
	relayWallet *wallet.Wallet,
) (*EthSender, error) {
	parsed, err := abi.JSON(strings.NewReader(executeABI))
	if err != nil {
		return nil, fmt.Errorf("parsing execute abi: %s", err)
	}
	return &EthSender{
		backend:       backend,
		walletAddress: walletAddress,
		relayWallet:   relayWallet,
		chainID:       big.NewInt(chainID),
		abi:           parsed,
	}, nil
}

// SendTransaction packs and broadcasts an execute call through the wallet
// contract and returns the transaction hash.
func (s *EthSender) SendTransaction(ctx context.Context, params TxnParams) (common.Hash, error) {
	value := params.Value
	if value == nil {
		value = big.NewInt(0)
	}
	calldata, err := s.abi.Pack("execute", params.To, value, params.Data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("packing execute call: %s", err)
	}

	relayAddr := s.relayWallet.Address()
	nonce, err := s.backend.PendingNonceAt(ctx, relayAddr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting pending nonce: %s", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggesting gas price: %s", err)
	}
	gasLimit, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: relayAddr,
		To:   &s.walletAddress,
		Data: calldata,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimating gas: %s", err)
	}

	tx := types.NewTransaction(nonce, s.walletAddress, big.NewInt(0), gasLimit, gasPrice, calldata)
	signedTx, err := types.SignTx(tx, types.NewLondonSigner(s.chainID), s.relayWallet.PrivateKey())
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing txn: %s", err)
	}
	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("sending txn: %s", err)
	}
	return signedTx.Hash(), nil
}
