package main

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/custodix/go-metarelay/pkg/metatx"
	"github.com/custodix/go-metarelay/pkg/wallet"
)

var metatxCmd = &cobra.Command{
	Use:   "metatx",
	Short: "Meta-transaction utilities",
	Long:  `Meta-transaction utilities`,
	Args:  cobra.ExactArgs(1),
}

// metatxSignCmd produces the signature a wallet owner would submit with
// a relay request. Useful for exercising a relay instance by hand.
var metatxSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Signs a meta-transaction with an owner key",
	Long:  `Signs a meta-transaction with an owner key, printing the 65-byte signature`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := cmd.Flags().GetInt64("chain-id")
		if err != nil {
			return errors.New("failed to parse chain-id")
		}
		walletAddress, err := cmd.Flags().GetString("wallet-address")
		if err != nil {
			return errors.New("failed to parse wallet-address")
		}
		to, err := cmd.Flags().GetString("to")
		if err != nil {
			return errors.New("failed to parse to")
		}
		valueStr, err := cmd.Flags().GetString("value")
		if err != nil {
			return errors.New("failed to parse value")
		}
		dataStr, err := cmd.Flags().GetString("data")
		if err != nil {
			return errors.New("failed to parse data")
		}
		txnNonce, err := cmd.Flags().GetInt64("nonce")
		if err != nil {
			return errors.New("failed to parse nonce")
		}

		if !common.IsHexAddress(walletAddress) {
			return fmt.Errorf("wallet-address %q isn't a hex address", walletAddress)
		}
		if !common.IsHexAddress(to) {
			return fmt.Errorf("to %q isn't a hex address", to)
		}
		value, ok := new(big.Int).SetString(valueStr, 10)
		if !ok || value.Sign() < 0 {
			return fmt.Errorf("value %q isn't a non-negative base-10 integer", valueStr)
		}
		data, err := hexutil.Decode(dataStr)
		if err != nil {
			return fmt.Errorf("data isn't valid hex: %s", err)
		}

		w, err := wallet.NewWallet(args[0])
		if err != nil {
			return fmt.Errorf("decoding private key: %s", err)
		}

		digest, err := metatx.Hash(chainID, common.HexToAddress(walletAddress), metatx.Message{
			To:    common.HexToAddress(to),
			Value: value,
			Data:  data,
			Nonce: txnNonce,
		})
		if err != nil {
			return fmt.Errorf("hashing typed data: %s", err)
		}
		signature, err := w.SignHash(digest)
		if err != nil {
			return fmt.Errorf("signing digest: %s", err)
		}

		fmt.Printf("%s\n\n", hexutil.Encode(signature))
		fmt.Printf("Signed by %s for wallet %s on chain %d\n", w.Address().Hex(), walletAddress, chainID)

		return nil
	},
}
