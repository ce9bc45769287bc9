package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/custodix/go-metarelay/pkg/database"
	"github.com/custodix/go-metarelay/pkg/sqlstore"
	sqlstoreimpl "github.com/custodix/go-metarelay/pkg/sqlstore/impl"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Offers key provisioning utilities",
	Long:  `Offers key provisioning utilities`,
	Args:  cobra.ExactArgs(1),
}

// keysImportCmd encrypts an owner key into the keystore the relay's hsm
// backend reads from, and records the wallet binding in the relay
// database so the relay can resolve and verify requests for it.
var keysImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Imports an owner key and provisions its wallet record",
	Long:  `Imports an owner key into the encrypted keystore and provisions its wallet record`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keystoreDir, err := cmd.Flags().GetString("keystore-dir")
		if err != nil {
			return errors.New("failed to parse keystore-dir")
		}
		pin, err := cmd.Flags().GetString("pin")
		if err != nil {
			return errors.New("failed to parse pin")
		}
		tenantID, err := cmd.Flags().GetString("tenant-id")
		if err != nil {
			return errors.New("failed to parse tenant-id")
		}
		dbPath, err := cmd.Flags().GetString("db")
		if err != nil {
			return errors.New("failed to parse db")
		}
		walletAddress, err := cmd.Flags().GetString("wallet-address")
		if err != nil {
			return errors.New("failed to parse wallet-address")
		}
		if !common.IsHexAddress(walletAddress) {
			return fmt.Errorf("wallet-address %q isn't a hex address", walletAddress)
		}

		privateKey, err := crypto.HexToECDSA(args[0])
		if err != nil {
			return fmt.Errorf("decoding private key: %s", err)
		}

		dir := keystoreDir
		if tenantID != "" {
			dir = filepath.Join(keystoreDir, tenantID)
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating keystore directory %s: %s", dir, err)
		}

		ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
		account, err := ks.ImportECDSA(privateKey, pin)
		if err != nil {
			return fmt.Errorf("importing key into keystore: %s", err)
		}

		sqliteDB, err := database.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database %s: %s", dbPath, err)
		}
		defer func() { _ = sqliteDB.Close() }()

		store := sqlstoreimpl.NewSystemStore(sqliteDB)
		if err := store.InsertWallet(context.Background(), sqlstore.WalletRecord{
			Address:  common.HexToAddress(walletAddress),
			Owner:    account.Address,
			HSMKeyID: account.Address.Hex(),
			TenantID: tenantID,
		}); err != nil {
			return fmt.Errorf("inserting wallet record: %s", err)
		}

		fmt.Printf("Key %s imported into %s\n", account.Address.Hex(), dir)
		fmt.Printf("Wallet %s provisioned with owner %s\n", walletAddress, account.Address.Hex())

		return nil
	},
}
