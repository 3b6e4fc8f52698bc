// Package curve implements the pricing core of the token swap: fee ratios,
// the pluggable curve calculators, and the SwapCurve record that pairs a wire
// discriminant with its calculator.
//
// All amounts are *uint256.Int values bounded to 128 bits. Intermediate
// products are computed on 256 bits with explicit overflow checks, and every
// arithmetic failure is reported as ok == false rather than a wrapped value.
package curve

import (
	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"
)

// CalculatorParamsLen is the size of the parameter region every calculator
// packs into, padded with zeros when the calculator uses less.
const CalculatorParamsLen = 32

// InitialSwapPoolAmount is the pool token supply minted at initialization.
const InitialSwapPoolAmount = 1_000_000_000

// TradeDirection selects which reserve is the source of a trade.
type TradeDirection uint8

const (
	// AtoB trades token A into the pool for token B.
	AtoB TradeDirection = iota
	// BtoA trades token B into the pool for token A.
	BtoA
)

// Opposite returns the reverse direction.
func (d TradeDirection) Opposite() TradeDirection {
	if d == AtoB {
		return BtoA
	}
	return AtoB
}

func (d TradeDirection) String() string {
	if d == AtoB {
		return "a_to_b"
	}
	return "b_to_a"
}

// RoundDirection selects how trading token conversions are rounded.
type RoundDirection uint8

const (
	// Floor rounds down, used when tokens leave the pool.
	Floor RoundDirection = iota
	// Ceiling rounds up, used when tokens enter the pool.
	Ceiling
)

// SwapWithoutFeesResult is the outcome of a fee-free trade.
type SwapWithoutFeesResult struct {
	SourceAmountSwapped      *uint256.Int
	DestinationAmountSwapped *uint256.Int
}

// TradingTokenResult holds the token amounts matching a pool token amount.
type TradingTokenResult struct {
	TokenAAmount *uint256.Int
	TokenBAmount *uint256.Int
}

// Calculator is implemented by every pricing strategy. Implementations are
// registered by CurveType in a fixed table so the set of calculators always
// matches the discriminants accepted on the wire.
type Calculator interface {
	// SwapWithoutFees computes a trade on an amount that already had fees
	// deducted.
	SwapWithoutFees(sourceAmount, swapSourceAmount, swapDestinationAmount *uint256.Int, direction TradeDirection) (SwapWithoutFeesResult, bool)

	// PoolTokensToTradingTokens converts pool tokens into the proportional
	// amounts of both reserves.
	PoolTokensToTradingTokens(poolTokens, poolTokenSupply, swapTokenAAmount, swapTokenBAmount *uint256.Int, round RoundDirection) (TradingTokenResult, bool)

	// DepositSingleTokenTypeExactAmountIn returns the pool tokens owed for
	// depositing sourceAmount of one side only.
	DepositSingleTokenTypeExactAmountIn(sourceAmount, swapTokenAAmount, swapTokenBAmount, poolSupply *uint256.Int, direction TradeDirection, round RoundDirection) (*uint256.Int, bool)

	// WithdrawSingleTokenTypeExactAmountOut returns the pool tokens to burn
	// for withdrawing sourceAmount of one side only.
	WithdrawSingleTokenTypeExactAmountOut(sourceAmount, swapTokenAAmount, swapTokenBAmount, poolSupply *uint256.Int, direction TradeDirection, round RoundDirection) (*uint256.Int, bool)

	// NormalizedValue returns the invariant value of the given reserves.
	NormalizedValue(swapTokenAAmount, swapTokenBAmount *uint256.Int) (*uint256.Int, bool)

	// AllowsDeposits reports whether deposits are accepted after creation.
	AllowsDeposits() bool

	// AllowsSingleTokenWithdrawal reports whether a single side may be
	// withdrawn on its own.
	AllowsSingleTokenWithdrawal() bool

	// NewPoolSupply returns the pool token supply minted at initialization.
	NewPoolSupply() *uint256.Int

	// ValidateSupply checks the reserves a pool is created with.
	ValidateSupply(tokenAAmount, tokenBAmount *uint256.Int) error

	// Validate checks the calculator parameters.
	Validate() error

	// CurveType returns the wire discriminant of this calculator.
	CurveType() CurveType

	// MarshalWithEncoder writes exactly CalculatorParamsLen bytes.
	MarshalWithEncoder(encoder *bin.Encoder) error
}

// poolTokensToTradingTokens converts pool tokens to trading tokens in
// proportion to the reserves. With Ceiling rounding an amount is only rounded
// up when it is already non-zero, so dust pool token amounts map to zero
// tokens and get rejected downstream instead of costing a whole token.
func poolTokensToTradingTokens(poolTokens, poolTokenSupply, swapTokenAAmount, swapTokenBAmount *uint256.Int, round RoundDirection) (TradingTokenResult, bool) {
	if isNil(poolTokens, poolTokenSupply, swapTokenAAmount, swapTokenBAmount) {
		return TradingTokenResult{}, false
	}
	convert := func(reserve *uint256.Int) (*uint256.Int, bool) {
		product, ok := checkedMul(poolTokens, reserve)
		if !ok {
			return nil, false
		}
		amount, ok := checkedDiv(product, poolTokenSupply)
		if !ok {
			return nil, false
		}
		if round == Ceiling && !amount.IsZero() {
			rem, _ := checkedRem(product, poolTokenSupply)
			if !rem.IsZero() {
				amount.AddUint64(amount, 1)
			}
		}
		if !fitsU128(amount) {
			return nil, false
		}
		return amount, true
	}

	tokenA, ok := convert(swapTokenAAmount)
	if !ok {
		return TradingTokenResult{}, false
	}
	tokenB, ok := convert(swapTokenBAmount)
	if !ok {
		return TradingTokenResult{}, false
	}
	return TradingTokenResult{TokenAAmount: tokenA, TokenBAmount: tokenB}, true
}
