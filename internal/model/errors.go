package model

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace scopes the registered pool errors.
const Codespace = "amm"

// Pool state transition errors. A failed transition leaves no state behind.
var (
	ErrAlreadyInitialized  = errorsmod.Register(Codespace, 2, "pool already initialized")
	ErrInvalidFee          = errorsmod.Register(Codespace, 3, "invalid fee")
	ErrUnauthorized        = errorsmod.Register(Codespace, 4, "unauthorized")
	ErrAccountMismatch     = errorsmod.Register(Codespace, 5, "account mismatch")
	ErrInsufficientBalance = errorsmod.Register(Codespace, 6, "insufficient balance")
	ErrArithmeticFault     = errorsmod.Register(Codespace, 7, "arithmetic fault")
	ErrEmptyReserve        = errorsmod.Register(Codespace, 8, "empty reserve")
	ErrInsufficientOutput  = errorsmod.Register(Codespace, 9, "insufficient output")
	ErrPoolNotFound        = errorsmod.Register(Codespace, 10, "pool not found")
	ErrInvalidAmount       = errorsmod.Register(Codespace, 11, "invalid amount")
	ErrReserveDrained      = errorsmod.Register(Codespace, 12, "swap would drain reserve")
	ErrInvalidSeeds        = errorsmod.Register(Codespace, 13, "invalid derivation seeds")
	ErrInvariantBroken     = errorsmod.Register(Codespace, 14, "pool invariant broken")
	ErrInvalidInstruction  = errorsmod.Register(Codespace, 15, "invalid instruction")
)

var reasons = []struct {
	err  *errorsmod.Error
	name string
}{
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrInvalidFee, "invalid_fee"},
	{ErrUnauthorized, "unauthorized"},
	{ErrAccountMismatch, "account_mismatch"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrArithmeticFault, "arithmetic_fault"},
	{ErrEmptyReserve, "empty_reserve"},
	{ErrInsufficientOutput, "insufficient_output"},
	{ErrPoolNotFound, "pool_not_found"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrReserveDrained, "reserve_drained"},
	{ErrInvalidSeeds, "invalid_seeds"},
	{ErrInvariantBroken, "invariant_broken"},
	{ErrInvalidInstruction, "invalid_instruction"},
}

// Reason returns a short stable name for err: "ok" for nil, the registered
// name for pool errors and "internal" for anything else.
func Reason(err error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return "internal"
}

// IsDomainError reports whether err carries one of the registered pool
// errors, as opposed to a storage or transport failure.
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	codespace, _, _ := errorsmod.ABCIInfo(err, false)
	return codespace == Codespace
}
