package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the engine's error taxonomy. Every error that crosses
// a component boundary wraps exactly one of these.

var (
	// ErrValidation indicates malformed or out-of-range input
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrWalletBusy indicates another capital-moving intent holds the wallet lock
	ErrWalletBusy = errors.New("wallet has an operation in flight")

	// ErrInsufficientFunds indicates the wallet cannot cover the requested amounts
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnsupportedPoolType indicates the address resolves to a non-concentrated pool
	ErrUnsupportedPoolType = errors.New("unsupported pool type")

	// ErrOracleUnreliable indicates the price aggregate failed the sanity gate
	ErrOracleUnreliable = errors.New("oracle price unreliable")

	// ErrSlippageExceeded indicates an on-chain slippage check rejected the fill
	ErrSlippageExceeded = errors.New("slippage tolerance exceeded")

	// ErrSlippageExhausted indicates the escalation ladder ran out of steps
	ErrSlippageExhausted = errors.New("slippage escalation exhausted")

	// ErrPoolPaused indicates the venue disabled the pool
	ErrPoolPaused = errors.New("pool is paused")

	// ErrVenueUnavailable indicates a venue API or swap router network failure
	ErrVenueUnavailable = errors.New("venue unavailable")

	// ErrRPCUnavailable indicates the Solana node could not be reached
	ErrRPCUnavailable = errors.New("rpc unavailable")

	// ErrBundleDropped indicates the relay discarded the bundle
	ErrBundleDropped = errors.New("bundle dropped by relay")

	// ErrBundleTimeout indicates the relay never reported an outcome
	ErrBundleTimeout = errors.New("bundle outcome timed out")

	// ErrSignRefused indicates the custody oracle declined to sign
	ErrSignRefused = errors.New("custody oracle refused to sign")

	// ErrInternal indicates an unexpected internal failure
	ErrInternal = errors.New("internal error")
)

// codes maps sentinels to stable machine-readable codes for the API envelope.
var codes = map[error]string{
	ErrValidation:          "VALIDATION",
	ErrNotFound:            "NOT_FOUND",
	ErrWalletBusy:          "WALLET_BUSY",
	ErrInsufficientFunds:   "INSUFFICIENT_FUNDS",
	ErrUnsupportedPoolType: "UNSUPPORTED_POOL_TYPE",
	ErrOracleUnreliable:    "ORACLE_UNRELIABLE",
	ErrSlippageExceeded:    "SLIPPAGE_EXCEEDED",
	ErrSlippageExhausted:   "SLIPPAGE_EXHAUSTED",
	ErrPoolPaused:          "POOL_PAUSED",
	ErrVenueUnavailable:    "VENUE_UNAVAILABLE",
	ErrRPCUnavailable:      "RPC_UNAVAILABLE",
	ErrBundleDropped:       "BUNDLE_DROPPED",
	ErrBundleTimeout:       "BUNDLE_TIMEOUT",
	ErrSignRefused:         "SIGN_REFUSED",
	ErrInternal:            "INTERNAL",
}

// Code returns the machine code for err, walking the wrap chain.
// Unclassified errors report as INTERNAL.
func Code(err error) string {
	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "INTERNAL"
}

// IsTransient reports whether err is a retryable upstream failure.
// These kinds are absorbed by the submission driver with bounded retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrVenueUnavailable) ||
		errors.Is(err, ErrRPCUnavailable) ||
		errors.Is(err, ErrBundleDropped) ||
		errors.Is(err, ErrBundleTimeout)
}

// Hinted attaches a structured hint to an error, surfaced in the API envelope
// (e.g. the last-tried bps value on SLIPPAGE_EXHAUSTED).
type Hinted struct {
	Err  error
	Hint map[string]any
}

func (h *Hinted) Error() string { return h.Err.Error() }
func (h *Hinted) Unwrap() error { return h.Err }

// WithHint wraps err with a structured hint.
func WithHint(err error, hint map[string]any) error {
	if err == nil {
		return nil
	}
	return &Hinted{Err: err, Hint: hint}
}

// HintOf extracts the hint from err's chain, if any.
func HintOf(err error) map[string]any {
	var h *Hinted
	if errors.As(err, &h) {
		return h.Hint
	}
	return nil
}

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
