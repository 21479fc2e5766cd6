package types

import (
	"errors"
	"fmt"
)

// The three error classes the engine distinguishes:
//
//   - ValidationError: malformed request parameters, rejected before
//     any state mutation.
//   - GuardError: an operation that is illegal in the market's current
//     lifecycle state. Expected (not exceptional) when monitors race.
//   - ArithmeticError: overflow/underflow in fee or payout math. A
//     modeling bug, fatal, never a business rejection.

// ValidationError is a malformed request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GuardError is a lifecycle guard violation rejected atomically by
// the ledger.
type GuardError struct {
	Code   string
	Reason string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("guard violation %s: %s", e.Code, e.Reason)
}

// Guard violation codes.
const (
	GuardAlreadyInitialized   = "ALREADY_INITIALIZED"
	GuardMarketNotFound       = "MARKET_NOT_FOUND"
	GuardMarketNotActive      = "MARKET_NOT_ACTIVE"
	GuardInsideLockout        = "INSIDE_LOCKOUT"
	GuardBelowMinimumBet      = "BELOW_MINIMUM_BET"
	GuardAlreadySwitched      = "ALREADY_SWITCHED"
	GuardInsufficientPosition = "INSUFFICIENT_POSITION"
	GuardBeforeDeadline       = "BEFORE_DEADLINE"
	GuardAlreadySettled       = "ALREADY_SETTLED"
	GuardNotSettled           = "NOT_SETTLED"
	GuardAlreadyClaimed       = "ALREADY_CLAIMED"
	GuardNothingToClaim       = "NOTHING_TO_CLAIM"
)

// ArithmeticError is an overflow or underflow in fixed-point math.
type ArithmeticError struct {
	Op     string
	Detail string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("arithmetic error in %s: %s", e.Op, e.Detail)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsGuard reports whether err is a GuardError, optionally matching
// one of the given codes. With no codes, any guard error matches.
func IsGuard(err error, codes ...string) bool {
	var g *GuardError
	if !errors.As(err, &g) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if g.Code == c {
			return true
		}
	}
	return false
}

// IsArithmetic reports whether err is an ArithmeticError.
func IsArithmetic(err error) bool {
	var a *ArithmeticError
	return errors.As(err, &a)
}
