package relay

import "fmt"

// ValidationError indicates a malformed request. Produced before any
// side effect.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// RoutingError indicates no submission channel is bound to the wallet
// on the requested chain.
type RoutingError struct {
	ChainID       ChainID
	WalletAddress string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no submission channel for wallet %s on chain %d", e.WalletAddress, e.ChainID)
}

// WalletNotFoundError indicates the wallet record is missing,
// incomplete, or belongs to another tenant.
type WalletNotFoundError struct {
	WalletAddress string
	Cause         error
}

func (e *WalletNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("wallet %s not found: %s", e.WalletAddress, e.Cause)
	}
	return fmt.Sprintf("wallet %s not found", e.WalletAddress)
}

func (e *WalletNotFoundError) Unwrap() error { return e.Cause }

// KeyAccessError indicates the HSM could not serve the wallet's bound
// key after exhausted retries. The signature itself was never judged,
// so callers may retry once the module recovers.
type KeyAccessError struct {
	KeyID string
	Cause error
}

func (e *KeyAccessError) Error() string {
	return fmt.Sprintf("accessing hsm key %s: %s", e.KeyID, e.Cause)
}

func (e *KeyAccessError) Unwrap() error { return e.Cause }

// SignatureVerificationError indicates the recovered signer does not
// match the wallet's bound key. Never retried.
type SignatureVerificationError struct {
	WalletAddress string
	Cause         error
}

func (e *SignatureVerificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("signature verification failed for wallet %s: %s", e.WalletAddress, e.Cause)
	}
	return fmt.Sprintf("signature verification failed for wallet %s", e.WalletAddress)
}

func (e *SignatureVerificationError) Unwrap() error { return e.Cause }

// SubmissionError indicates the chain client failed after exhausted
// retries. No transaction record is written.
type SubmissionError struct {
	ChainID       ChainID
	WalletAddress string
	Cause         error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submitting txn for wallet %s on chain %d: %s", e.WalletAddress, e.ChainID, e.Cause)
}

func (e *SubmissionError) Unwrap() error { return e.Cause }

// StoreError indicates persistence I/O failed after exhausted retries.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %s", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

// InitializationError indicates a startup dependency is unreachable.
type InitializationError struct {
	Dependency string
	Cause      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initializing %s: %s", e.Dependency, e.Cause)
}

func (e *InitializationError) Unwrap() error { return e.Cause }
