// Package errors defines error types used throughout the token-swap core.
//
// The SwapError type captures the failure cases that can occur while decoding
// wire data, pricing a trade, or applying an operation to a pool, providing
// stable error codes that callers can match with errors.Is.
package errors

import (
	"errors"
	"fmt"
	"maps"
)

// Error codes for the token-swap core.
const (
	ErrCodeInvalidInstruction        = "INVALID_INSTRUCTION"
	ErrCodeInvalidAccountData        = "INVALID_ACCOUNT_DATA"
	ErrCodeCalculationFailure        = "CALCULATION_FAILURE"
	ErrCodeFeeCalculationFailure     = "FEE_CALCULATION_FAILURE"
	ErrCodeExceededSlippage          = "EXCEEDED_SLIPPAGE"
	ErrCodeZeroTradingTokens         = "ZERO_TRADING_TOKENS"
	ErrCodeInvalidFee                = "INVALID_FEE"
	ErrCodeInvalidCurve              = "INVALID_CURVE"
	ErrCodeUnsupportedCurveOperation = "UNSUPPORTED_CURVE_OPERATION"
	ErrCodeEmptySupply               = "EMPTY_SUPPLY"
	ErrCodeAlreadyInUse              = "ALREADY_IN_USE"
	ErrCodeNotInitialized            = "NOT_INITIALIZED"
	ErrCodeIncorrectSwapAccount      = "INCORRECT_SWAP_ACCOUNT"
	ErrCodeInvalidOwner              = "INVALID_OWNER"
	ErrCodeInvalidProgramAddress     = "INVALID_PROGRAM_ADDRESS"
	ErrCodeNotEnoughAccounts         = "NOT_ENOUGH_ACCOUNTS"
	ErrCodeInsufficientFunds         = "INSUFFICIENT_FUNDS"
	ErrCodeUnsupportedCurveType      = "UNSUPPORTED_CURVE_TYPE"
	ErrCodeIncorrectPoolMint         = "INCORRECT_POOL_MINT"
	ErrCodeIncorrectFeeAccount       = "INCORRECT_FEE_ACCOUNT"
	ErrCodeIncorrectTokenProgramID   = "INCORRECT_TOKEN_PROGRAM_ID"
	ErrCodeRepeatedMint              = "REPEATED_MINT"
	ErrCodeInvalidInput              = "INVALID_INPUT"
	ErrCodeInvalidSupply             = "INVALID_SUPPLY"
	ErrCodeAccountNotFound           = "ACCOUNT_NOT_FOUND"
	ErrCodeOwnerMismatch             = "OWNER_MISMATCH"
	ErrCodeMintMismatch              = "MINT_MISMATCH"
	ErrCodeCustom                    = "CUSTOM"
)

// SwapError represents an error in the token-swap core.
type SwapError struct {
	// Code is a unique error code for this error type.
	Code string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *SwapError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *SwapError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *SwapError) Is(target error) bool {
	t, ok := target.(*SwapError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error carrying cause.
// The receiver is left untouched so package-level sentinels stay shared safely.
func (e *SwapError) WithCause(cause error) *SwapError {
	c := *e
	c.Cause = cause
	return &c
}

// WithDetails returns a copy of the error carrying details.
func (e *SwapError) WithDetails(details map[string]any) *SwapError {
	c := *e
	c.Details = maps.Clone(details)
	return &c
}

// NewError creates a new SwapError.
func NewError(code, message string) *SwapError {
	return &SwapError{
		Code:    code,
		Message: message,
	}
}

// Pre-defined errors for common error cases.
var (
	// ErrInvalidInstruction is returned for an unknown tag or a truncated payload.
	ErrInvalidInstruction = NewError(ErrCodeInvalidInstruction, "invalid instruction")

	// ErrInvalidAccountData is returned when a packed record cannot be decoded.
	ErrInvalidAccountData = NewError(ErrCodeInvalidAccountData, "invalid account data")

	// ErrCalculationFailure is returned when curve arithmetic has no result.
	ErrCalculationFailure = NewError(ErrCodeCalculationFailure, "general calculation failure due to overflow or underflow")

	// ErrFeeCalculationFailure is returned when fee arithmetic has no result.
	ErrFeeCalculationFailure = NewError(ErrCodeFeeCalculationFailure, "fee calculation failed due to overflow, underflow, or unexpected 0")

	// ErrExceededSlippage is returned when a caller-supplied bound is not met.
	ErrExceededSlippage = NewError(ErrCodeExceededSlippage, "swap instruction exceeds desired slippage limit")

	// ErrZeroTradingTokens is returned when an operation would move zero tokens.
	ErrZeroTradingTokens = NewError(ErrCodeZeroTradingTokens, "given pool token amount results in zero trading tokens")

	// ErrInvalidFee is returned when a fee ratio is malformed or below constraints.
	ErrInvalidFee = NewError(ErrCodeInvalidFee, "the provided fee does not match the program owner's constraints")

	// ErrInvalidCurve is returned when curve parameters are out of range or not allowed.
	ErrInvalidCurve = NewError(ErrCodeInvalidCurve, "the provided curve parameters are invalid")

	// ErrUnsupportedCurveOperation is returned when a curve does not support an operation.
	ErrUnsupportedCurveOperation = NewError(ErrCodeUnsupportedCurveOperation, "the operation cannot be performed on the given curve")

	// ErrEmptySupply is returned when a pool would be created with an empty reserve.
	ErrEmptySupply = NewError(ErrCodeEmptySupply, "input token account empty")

	// ErrAlreadyInUse is returned when initializing a pool record that is already set.
	ErrAlreadyInUse = NewError(ErrCodeAlreadyInUse, "swap account already in use")

	// ErrNotInitialized is returned when operating on a pool record that is not set.
	ErrNotInitialized = NewError(ErrCodeNotInitialized, "swap account is not initialized")

	// ErrIncorrectSwapAccount is returned when an account does not belong to the pool.
	ErrIncorrectSwapAccount = NewError(ErrCodeIncorrectSwapAccount, "address of the provided swap token account is incorrect")

	// ErrInvalidOwner is returned when the fee account owner violates constraints.
	ErrInvalidOwner = NewError(ErrCodeInvalidOwner, "input account owner is not the program address")

	// ErrInvalidProgramAddress is returned when the authority cannot be derived.
	ErrInvalidProgramAddress = NewError(ErrCodeInvalidProgramAddress, "invalid program address generated from bump seed and key")

	// ErrNotEnoughAccounts is returned when an instruction lacks required accounts.
	ErrNotEnoughAccounts = NewError(ErrCodeNotEnoughAccounts, "not enough account keys given to the instruction")

	// ErrInsufficientFunds is returned when a ledger account cannot cover a debit.
	ErrInsufficientFunds = NewError(ErrCodeInsufficientFunds, "insufficient funds")

	// ErrUnsupportedCurveType is returned when constraints do not allow a curve type.
	ErrUnsupportedCurveType = NewError(ErrCodeUnsupportedCurveType, "the provided curve type is not supported by the program owner")

	// ErrIncorrectPoolMint is returned when the pool mint does not match the record.
	ErrIncorrectPoolMint = NewError(ErrCodeIncorrectPoolMint, "address of the provided pool token mint is incorrect")

	// ErrIncorrectFeeAccount is returned when the fee account does not match the record.
	ErrIncorrectFeeAccount = NewError(ErrCodeIncorrectFeeAccount, "pool fee token account incorrect")

	// ErrIncorrectTokenProgramID is returned when the token program does not match the record.
	ErrIncorrectTokenProgramID = NewError(ErrCodeIncorrectTokenProgramID, "the provided token program does not match the token program expected by the swap")

	// ErrRepeatedMint is returned when both sides of a pool use the same mint.
	ErrRepeatedMint = NewError(ErrCodeRepeatedMint, "swap input token accounts have the same mint")

	// ErrInvalidInput is returned when a source and destination account are the same.
	ErrInvalidInput = NewError(ErrCodeInvalidInput, "invalid input")

	// ErrInvalidSupply is returned when the pool mint already has supply.
	ErrInvalidSupply = NewError(ErrCodeInvalidSupply, "pool token mint has a non-zero supply")

	// ErrAccountNotFound is returned when a ledger has no such token account or mint.
	ErrAccountNotFound = NewError(ErrCodeAccountNotFound, "account not found")

	// ErrOwnerMismatch is returned when a ledger operation is not signed by the owner.
	ErrOwnerMismatch = NewError(ErrCodeOwnerMismatch, "owner does not match")

	// ErrMintMismatch is returned when two token accounts of a transfer hold different mints.
	ErrMintMismatch = NewError(ErrCodeMintMismatch, "account not associated with this mint")
)

// InvalidInstruction creates an invalid instruction error with a cause.
func InvalidInstruction(cause error) *SwapError {
	return ErrInvalidInstruction.WithCause(cause)
}

// InvalidAccountData creates an invalid account data error describing what failed.
func InvalidAccountData(what string, cause error) *SwapError {
	return NewError(ErrCodeInvalidAccountData, fmt.Sprintf("invalid account data: %s", what)).WithCause(cause)
}

// Custom creates a custom error with the given message.
func Custom(message string) *SwapError {
	return NewError(ErrCodeCustom, message)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
