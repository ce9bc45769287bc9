package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds a local ECDSA keypair. It backs the relay's operational
// account and the software HSM module; end-user keys never live here.
type Wallet struct {
	sk *ecdsa.PrivateKey
	pk *ecdsa.PublicKey
}

// NewWallet creates a new wallet from a hex-encoded private key.
func NewWallet(sk string) (*Wallet, error) {
	privateKey, err := crypto.HexToECDSA(sk)
	if err != nil {
		return &Wallet{}, fmt.Errorf("converting private key to ECDSA: %s", err)
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return &Wallet{}, fmt.Errorf("casting public key to ECDSA: %s", err)
	}

	return &Wallet{
		sk: privateKey,
		pk: publicKeyECDSA,
	}, nil
}

// PrivateKey gets the private key.
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.sk
}

// PublicKey gets the public key.
func (w *Wallet) PublicKey() *ecdsa.PublicKey {
	return w.pk
}

// Address returns the hexadecimal wallet address.
func (w *Wallet) Address() common.Address {
	return common.HexToAddress(crypto.PubkeyToAddress(*w.pk).Hex())
}

// SignHash signs a 32-byte digest and returns the 65-byte [R || S || V]
// signature with V in {27, 28}, the recovery form smart-account
// contracts verify on-chain.
func (w *Wallet) SignHash(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := crypto.Sign(digest, w.sk)
	if err != nil {
		return nil, fmt.Errorf("signing digest: %s", err)
	}
	sig[64] += 27
	return sig, nil
}
