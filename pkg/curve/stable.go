package curve

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
)

const (
	// MinAmp and MaxAmp bound the amplification coefficient.
	MinAmp = 1
	MaxAmp = 1_000_000

	// DefaultAmp is used by DefaultSwapCurve.
	DefaultAmp = 100

	nCoins        = 2
	nCoinsSquared = 4

	// maxIterations bounds both Newton loops. Failing to converge within it
	// is a calculation failure.
	maxIterations = 255

	// invariantTolerance is how far the invariant of the post-trade reserves
	// may fall below the pre-trade invariant, in invariant units.
	invariantTolerance = 4
)

var (
	u256One = uint256.NewInt(1)
	u256Two = uint256.NewInt(2)
)

// StableCurve prices trades like constant product but keeps a wide zone
// around the 1:1 price. Amp controls how flat that zone is.
//
// For two reserves x and y and leverage L = Amp * 2 the invariant D solves
//
//	L * (x + y) + D = L * D + D^3 / (4 * x * y)
type StableCurve struct {
	Amp uint64 `json:"amp" yaml:"amp"`
}

// NewStableCurve returns a stable curve with the given amplification.
func NewStableCurve(amp uint64) *StableCurve {
	return &StableCurve{Amp: amp}
}

func (c *StableCurve) leverage() (*uint256.Int, bool) {
	return checkedMul(uint256.NewInt(c.Amp), uint256.NewInt(nCoins))
}

// computeStep performs one Newton step for D:
//
//	d = (L * S + d_p * n) * d / ((L - 1) * d + (n + 1) * d_p)
func computeStep(d, leverage, sumX, dProduct *uint256.Int) (*uint256.Int, bool) {
	leverageMul, ok := checkedMul(leverage, sumX)
	if !ok {
		return nil, false
	}
	dpMul, ok := checkedMul(dProduct, uint256.NewInt(nCoins))
	if !ok {
		return nil, false
	}
	lVal, ok := checkedAdd(leverageMul, dpMul)
	if !ok {
		return nil, false
	}
	if lVal, ok = checkedMul(lVal, d); !ok {
		return nil, false
	}

	leverageSub, ok := checkedSub(leverage, u256One)
	if !ok {
		return nil, false
	}
	if leverageSub, ok = checkedMul(d, leverageSub); !ok {
		return nil, false
	}
	nCoinsSum, ok := checkedMul(dProduct, uint256.NewInt(nCoins+1))
	if !ok {
		return nil, false
	}
	rVal, ok := checkedAdd(leverageSub, nCoinsSum)
	if !ok {
		return nil, false
	}
	return checkedDiv(lVal, rVal)
}

// computeD solves the invariant for the given reserves.
func computeD(leverage, amountA, amountB *uint256.Int) (*uint256.Int, bool) {
	if !fitsU128(amountA) || !fitsU128(amountB) {
		return nil, false
	}
	sumX, ok := checkedAdd128(amountA, amountB)
	if !ok {
		return nil, false
	}
	if sumX.IsZero() {
		return new(uint256.Int), true
	}
	aTimesCoins, ok := checkedMul(amountA, uint256.NewInt(nCoins))
	if !ok {
		return nil, false
	}
	bTimesCoins, ok := checkedMul(amountB, uint256.NewInt(nCoins))
	if !ok {
		return nil, false
	}

	d := sumX.Clone()
	for i := 0; i < maxIterations; i++ {
		dProduct, ok := checkedMul(d, d)
		if !ok {
			return nil, false
		}
		if dProduct, ok = checkedDiv(dProduct, aTimesCoins); !ok {
			return nil, false
		}
		if dProduct, ok = checkedMul(dProduct, d); !ok {
			return nil, false
		}
		if dProduct, ok = checkedDiv(dProduct, bTimesCoins); !ok {
			return nil, false
		}

		dPrevious := d
		if d, ok = computeStep(d, leverage, sumX, dProduct); !ok {
			return nil, false
		}
		if absDiff(d, dPrevious).Cmp(u256One) <= 0 {
			if !fitsU128(d) {
				return nil, false
			}
			return d, true
		}
	}
	return nil, false
}

// computeNewDestinationAmount solves y^2 + b*y = c for the destination
// reserve y given the new source reserve x and invariant D, where
//
//	c = D^3 / (4 * x * L)
//	b = x + D / L
func computeNewDestinationAmount(leverage, newSourceAmount, d *uint256.Int) (*uint256.Int, bool) {
	dCubed, ok := checkedMul(d, d)
	if !ok {
		return nil, false
	}
	if dCubed, ok = checkedMul(dCubed, d); !ok {
		return nil, false
	}
	cDenominator, ok := checkedMul(newSourceAmount, uint256.NewInt(nCoinsSquared))
	if !ok {
		return nil, false
	}
	if cDenominator, ok = checkedMul(cDenominator, leverage); !ok {
		return nil, false
	}
	c, ok := checkedDiv(dCubed, cDenominator)
	if !ok {
		return nil, false
	}

	dOverLeverage, ok := checkedDiv(d, leverage)
	if !ok {
		return nil, false
	}
	b, ok := checkedAdd(newSourceAmount, dOverLeverage)
	if !ok {
		return nil, false
	}

	y := d.Clone()
	for i := 0; i < maxIterations; i++ {
		// y = (y^2 + c) / (2y + b - D)
		numerator, ok := checkedMul(y, y)
		if !ok {
			return nil, false
		}
		if numerator, ok = checkedAdd(numerator, c); !ok {
			return nil, false
		}
		denominator, ok := checkedMul(y, u256Two)
		if !ok {
			return nil, false
		}
		if denominator, ok = checkedAdd(denominator, b); !ok {
			return nil, false
		}
		if denominator, ok = checkedSub(denominator, d); !ok {
			return nil, false
		}

		yPrevious := y
		if y, ok = checkedDiv(numerator, denominator); !ok {
			return nil, false
		}
		if absDiff(y, yPrevious).Cmp(u256One) <= 0 {
			if !fitsU128(y) {
				return nil, false
			}
			return y, true
		}
	}
	return nil, false
}

// SwapWithoutFees implements Calculator. The destination amount is rounded in
// the pool's favor by one unit, and the post-trade invariant is checked
// against the pre-trade invariant before the result is returned. A trade
// that would pay out nothing has no result.
func (c *StableCurve) SwapWithoutFees(sourceAmount, swapSourceAmount, swapDestinationAmount *uint256.Int, _ TradeDirection) (SwapWithoutFeesResult, bool) {
	if isNil(sourceAmount, swapSourceAmount, swapDestinationAmount) || sourceAmount.IsZero() {
		return SwapWithoutFeesResult{}, false
	}
	if swapSourceAmount.IsZero() || swapDestinationAmount.IsZero() {
		return SwapWithoutFeesResult{}, false
	}
	leverage, ok := c.leverage()
	if !ok || leverage.IsZero() {
		return SwapWithoutFeesResult{}, false
	}

	d, ok := computeD(leverage, swapSourceAmount, swapDestinationAmount)
	if !ok {
		return SwapWithoutFeesResult{}, false
	}
	newSourceAmount, ok := checkedAdd128(swapSourceAmount, sourceAmount)
	if !ok {
		return SwapWithoutFeesResult{}, false
	}
	newDestinationAmount, ok := computeNewDestinationAmount(leverage, newSourceAmount, d)
	if !ok {
		return SwapWithoutFeesResult{}, false
	}
	newDestinationAmount, ok = checkedAdd128(newDestinationAmount, u256One)
	if !ok {
		return SwapWithoutFeesResult{}, false
	}
	destinationAmountSwapped, ok := checkedSub128(swapDestinationAmount, newDestinationAmount)
	if !ok || destinationAmountSwapped.IsZero() {
		return SwapWithoutFeesResult{}, false
	}

	dAfter, ok := computeD(leverage, newSourceAmount, newDestinationAmount)
	if !ok {
		return SwapWithoutFeesResult{}, false
	}
	floor, ok := checkedSub(d, uint256.NewInt(invariantTolerance))
	if ok && dAfter.Lt(floor) {
		return SwapWithoutFeesResult{}, false
	}

	return SwapWithoutFeesResult{
		SourceAmountSwapped:      sourceAmount.Clone(),
		DestinationAmountSwapped: destinationAmountSwapped,
	}, true
}

// PoolTokensToTradingTokens implements Calculator.
func (c *StableCurve) PoolTokensToTradingTokens(poolTokens, poolTokenSupply, swapTokenAAmount, swapTokenBAmount *uint256.Int, round RoundDirection) (TradingTokenResult, bool) {
	return poolTokensToTradingTokens(poolTokens, poolTokenSupply, swapTokenAAmount, swapTokenBAmount, round)
}

// singleSidedPoolTokens converts the invariant change caused by moving
// sourceAmount on one side into pool tokens: |D1 - D0| * supply / D0.
func (c *StableCurve) singleSidedPoolTokens(deposit bool, sourceAmount, swapTokenAAmount, swapTokenBAmount, poolSupply *uint256.Int, direction TradeDirection, round RoundDirection) (*uint256.Int, bool) {
	if isNil(sourceAmount, swapTokenAAmount, swapTokenBAmount, poolSupply) {
		return nil, false
	}
	if sourceAmount.IsZero() {
		return new(uint256.Int), true
	}
	leverage, ok := c.leverage()
	if !ok || leverage.IsZero() {
		return nil, false
	}
	d0, ok := computeD(leverage, swapTokenAAmount, swapTokenBAmount)
	if !ok {
		return nil, false
	}

	movedSide, otherSide := swapTokenAAmount, swapTokenBAmount
	if direction == BtoA {
		movedSide, otherSide = swapTokenBAmount, swapTokenAAmount
	}
	var updated *uint256.Int
	if deposit {
		updated, ok = checkedAdd128(movedSide, sourceAmount)
	} else {
		updated, ok = checkedSub128(movedSide, sourceAmount)
	}
	if !ok {
		return nil, false
	}
	d1, ok := computeD(leverage, updated, otherSide)
	if !ok {
		return nil, false
	}

	var diff *uint256.Int
	if deposit {
		diff, ok = checkedSub(d1, d0)
	} else {
		diff, ok = checkedSub(d0, d1)
	}
	if !ok {
		return nil, false
	}
	numerator, ok := checkedMul(diff, poolSupply)
	if !ok {
		return nil, false
	}
	var amount *uint256.Int
	if round == Ceiling {
		amount, ok = checkedCeilDiv(numerator, d0)
	} else {
		amount, ok = checkedDiv(numerator, d0)
	}
	if !ok || !fitsU128(amount) {
		return nil, false
	}
	return amount, true
}

// DepositSingleTokenTypeExactAmountIn implements Calculator.
func (c *StableCurve) DepositSingleTokenTypeExactAmountIn(sourceAmount, swapTokenAAmount, swapTokenBAmount, poolSupply *uint256.Int, direction TradeDirection, round RoundDirection) (*uint256.Int, bool) {
	return c.singleSidedPoolTokens(true, sourceAmount, swapTokenAAmount, swapTokenBAmount, poolSupply, direction, round)
}

// WithdrawSingleTokenTypeExactAmountOut implements Calculator.
func (c *StableCurve) WithdrawSingleTokenTypeExactAmountOut(sourceAmount, swapTokenAAmount, swapTokenBAmount, poolSupply *uint256.Int, direction TradeDirection, round RoundDirection) (*uint256.Int, bool) {
	return c.singleSidedPoolTokens(false, sourceAmount, swapTokenAAmount, swapTokenBAmount, poolSupply, direction, round)
}

// NormalizedValue implements Calculator and returns D.
func (c *StableCurve) NormalizedValue(swapTokenAAmount, swapTokenBAmount *uint256.Int) (*uint256.Int, bool) {
	if isNil(swapTokenAAmount, swapTokenBAmount) {
		return nil, false
	}
	leverage, ok := c.leverage()
	if !ok || leverage.IsZero() {
		return nil, false
	}
	return computeD(leverage, swapTokenAAmount, swapTokenBAmount)
}

// AllowsDeposits implements Calculator.
func (c *StableCurve) AllowsDeposits() bool { return true }

// AllowsSingleTokenWithdrawal implements Calculator.
func (c *StableCurve) AllowsSingleTokenWithdrawal() bool { return true }

// NewPoolSupply implements Calculator.
func (c *StableCurve) NewPoolSupply() *uint256.Int {
	return uint256.NewInt(InitialSwapPoolAmount)
}

// ValidateSupply implements Calculator.
func (c *StableCurve) ValidateSupply(tokenAAmount, tokenBAmount *uint256.Int) error {
	if tokenAAmount == nil || tokenAAmount.IsZero() {
		return swaperrors.ErrEmptySupply.WithDetails(map[string]any{"token": "a"})
	}
	if tokenBAmount == nil || tokenBAmount.IsZero() {
		return swaperrors.ErrEmptySupply.WithDetails(map[string]any{"token": "b"})
	}
	return nil
}

// Validate implements Calculator.
func (c *StableCurve) Validate() error {
	if c.Amp < MinAmp || c.Amp > MaxAmp {
		return swaperrors.ErrInvalidCurve.WithCause(fmt.Errorf("amp %d outside [%d, %d]", c.Amp, MinAmp, MaxAmp))
	}
	return nil
}

// CurveType implements Calculator.
func (c *StableCurve) CurveType() CurveType {
	return CurveTypeStable
}

// MarshalWithEncoder writes amp followed by zero padding.
func (c *StableCurve) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(c.Amp, bin.LE); err != nil {
		return err
	}
	return encoder.WriteBytes(make([]byte, CalculatorParamsLen-8), false)
}

// UnmarshalWithDecoder reads amp and skips the rest of the parameter region.
func (c *StableCurve) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if decoder.Remaining() < CalculatorParamsLen {
		return fmt.Errorf("stable curve requires %d bytes, remaining %d", CalculatorParamsLen, decoder.Remaining())
	}
	amp, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	if _, err := decoder.ReadNBytes(CalculatorParamsLen - 8); err != nil {
		return err
	}
	c.Amp = amp
	return nil
}

func unpackStableCurve(decoder *bin.Decoder) (Calculator, error) {
	c := new(StableCurve)
	if err := c.UnmarshalWithDecoder(decoder); err != nil {
		return nil, err
	}
	return c, nil
}
