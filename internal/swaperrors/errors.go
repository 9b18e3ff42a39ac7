// Package swaperrors defines the error taxonomy shared by the chain adapters,
// the HTLC engine and the swap orchestrator. Each kind carries distinct
// swallow-vs-surface semantics inside the orchestrator's polling loops.
package swaperrors

import "fmt"

// InputError signals malformed keys, an unknown network, an out-of-range
// priority, or any other problem detectable before chain I/O starts.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error: %s: %s", e.Field, e.Reason)
}

func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

// ChainQueryError wraps a transport, HTTP, WebSocket, or parse failure from
// a chain adapter. Swallowed inside polling loops, surfaced outside them.
type ChainQueryError struct {
	Op  string
	Err error
}

func (e *ChainQueryError) Error() string {
	return fmt.Sprintf("chain query error during %s: %v", e.Op, e.Err)
}

func (e *ChainQueryError) Unwrap() error { return e.Err }

func NewChainQueryError(op string, err error) *ChainQueryError {
	return &ChainQueryError{Op: op, Err: err}
}

// NotFoundError signals an expected on-chain object is absent (no UTXO, no
// HTLC, no spending transaction yet). Swallowed inside polling loops.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.What)
}

func NewNotFoundError(what string) *NotFoundError {
	return &NotFoundError{What: what}
}

// BroadcastError signals peer rejection of a transaction. For refund
// broadcasts the raw hex is attached so the caller can recover manually.
type BroadcastError struct {
	RawHex string
	Err    error
}

func (e *BroadcastError) Error() string {
	if e.RawHex != "" {
		return fmt.Sprintf("broadcast rejected: %v (raw tx: %s)", e.Err, e.RawHex)
	}
	return fmt.Sprintf("broadcast rejected: %v", e.Err)
}

func (e *BroadcastError) Unwrap() error { return e.Err }

func NewBroadcastError(rawHex string, err error) *BroadcastError {
	return &BroadcastError{RawHex: rawHex, Err: err}
}

// InsufficientFundsError signals a UTXO value below amount+fee. Always
// fails fast before any signing occurs.
type InsufficientFundsError struct {
	Available int64
	Required  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: have %d sat, need %d sat", e.Available, e.Required)
}

func NewInsufficientFundsError(available, required int64) *InsufficientFundsError {
	return &InsufficientFundsError{Available: available, Required: required}
}

// MalformedWitnessError signals an extracted preimage or witness stack that
// does not match the expected HTLC redeem shape. Never swallowed, even
// inside a polling loop - this is a structural error, not a transient one.
type MalformedWitnessError struct {
	Reason string
}

func (e *MalformedWitnessError) Error() string {
	return fmt.Sprintf("malformed witness: %s", e.Reason)
}

func NewMalformedWitnessError(reason string) *MalformedWitnessError {
	return &MalformedWitnessError{Reason: reason}
}

// TimeoutError signals a polling loop exhausted without counterparty
// action. Triggers the refund sequence on the Bitcoin leg.
type TimeoutError struct {
	Leg string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting on %s leg", e.Leg)
}

func NewTimeoutError(leg string) *TimeoutError {
	return &TimeoutError{Leg: leg}
}

// IsTransport classifies err as a transient, swallowable error inside a
// polling loop (transport/not-found) versus a structural one that must
// always surface.
func IsTransport(err error) bool {
	switch err.(type) {
	case *ChainQueryError, *NotFoundError:
		return true
	default:
		return false
	}
}
