package metatx

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain identifies the smart-account the signature is bound to. The
// chain id and verifying contract are part of the hash, so a signature
// produced for one wallet on one chain cannot be replayed anywhere else.
const (
	DomainName    = "MetaRelayAccount"
	DomainVersion = "1"
)

// SignatureLength is the expected [R || S || V] signature size.
const SignatureLength = 65

// Message is the struct the owner signs off-chain.
type Message struct {
	To    common.Address
	Value *big.Int
	Data  []byte
	Nonce int64
}

// TypedData builds the EIP-712 payload for msg under wallet's domain.
func TypedData(chainID int64, wallet common.Address, msg Message) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"MetaTransaction": []apitypes.Type{
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "data", Type: "bytes"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "MetaTransaction",
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: wallet.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"to":    msg.To.Hex(),
			"value": (*math.HexOrDecimal256)(msg.Value),
			"data":  hexutil.Encode(msg.Data),
			"nonce": math.NewHexOrDecimal256(msg.Nonce),
		},
	}
}

// Hash returns the domain-separated digest the owner must sign.
func Hash(chainID int64, wallet common.Address, msg Message) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(TypedData(chainID, wallet, msg))
	if err != nil {
		return nil, fmt.Errorf("hashing typed data: %s", err)
	}
	return digest, nil
}

// RecoverSigner recovers the address that produced signature over digest.
// It accepts V as 27/28 (contract recovery form) or 0/1.
func RecoverSigner(digest []byte, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(signature))
	}

	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pk, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering public key: %s", err)
	}
	return crypto.PubkeyToAddress(*pk), nil
}

// EqualAddresses compares two hex addresses case-insensitively.
func EqualAddresses(a, b common.Address) bool {
	return strings.EqualFold(a.Hex(), b.Hex())
}
