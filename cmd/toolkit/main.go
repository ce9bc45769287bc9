package main

import (
	"github.com/spf13/cobra"
)

var cliName = "toolkit"

var rootCmd = &cobra.Command{
	Use:   cliName,
	Short: "toolkit is a CLI for metarelay operators",
	Long:  `toolkit is a CLI for metarelay operators executing mundane tasks`,
	Args:  cobra.ExactArgs(0),
}

func main() {
	rootCmd.Execute() //nolint
}

func init() {
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(metatxCmd)

	walletCreateCmd.Flags().String("filename", "privatekey.hex", "Filename to store hex representation of private key")
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletAddressCmd)

	keysImportCmd.Flags().String("keystore-dir", "keystore", "Directory of the encrypted keystore")
	keysImportCmd.Flags().String("pin", "", "Passphrase protecting the imported key")
	keysImportCmd.Flags().String("tenant-id", "", "Tenant the key belongs to")
	keysImportCmd.Flags().String("db", "database.db", "Path of the relay database")
	keysImportCmd.Flags().String("wallet-address", "", "Smart-account wallet address bound to the key")
	keysCmd.AddCommand(keysImportCmd)

	metatxSignCmd.Flags().Int64("chain-id", 31337, "chain id")
	metatxSignCmd.Flags().String("wallet-address", "", "Smart-account wallet address")
	metatxSignCmd.Flags().String("to", "", "Target address of the call")
	metatxSignCmd.Flags().String("value", "0", "Value in wei as a base-10 string")
	metatxSignCmd.Flags().String("data", "0x", "Hex-encoded call data")
	metatxSignCmd.Flags().Int64("nonce", 0, "Wallet nonce the signature is valid for")
	metatxCmd.AddCommand(metatxSignCmd)
}
