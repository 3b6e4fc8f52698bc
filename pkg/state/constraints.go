package state

import (
	"fmt"
	"slices"

	"github.com/gagliardetto/solana-go"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/pkg/curve"
)

// SwapConstraints restricts which pools may be created. A nil
// *SwapConstraints allows everything.
type SwapConstraints struct {
	// OwnerKey must own every pool fee account.
	OwnerKey solana.PublicKey
	// ValidCurveTypes lists the curve types a pool may use.
	ValidCurveTypes []curve.CurveType
	// Fees holds the minimum numerators; denominators must match exactly.
	Fees curve.Fees
}

// ValidateCurve checks the curve type against the allowed list.
func (c *SwapConstraints) ValidateCurve(swapCurve *curve.SwapCurve) error {
	if c == nil {
		return nil
	}
	if swapCurve == nil || !slices.Contains(c.ValidCurveTypes, swapCurve.CurveType()) {
		return swaperrors.ErrUnsupportedCurveType.WithCause(fmt.Errorf("curve %s not allowed", swapCurve))
	}
	return nil
}

// ValidateFees checks that every fee is at least the configured minimum with
// the same denominator.
func (c *SwapConstraints) ValidateFees(fees curve.Fees) error {
	if c == nil {
		return nil
	}
	pairs := []struct {
		name                   string
		numerator, denominator uint64
		minimum, requiredDenom uint64
	}{
		{"trade", fees.TradeFeeNumerator, fees.TradeFeeDenominator, c.Fees.TradeFeeNumerator, c.Fees.TradeFeeDenominator},
		{"owner_trade", fees.OwnerTradeFeeNumerator, fees.OwnerTradeFeeDenominator, c.Fees.OwnerTradeFeeNumerator, c.Fees.OwnerTradeFeeDenominator},
		{"owner_withdraw", fees.OwnerWithdrawFeeNumerator, fees.OwnerWithdrawFeeDenominator, c.Fees.OwnerWithdrawFeeNumerator, c.Fees.OwnerWithdrawFeeDenominator},
		{"host", fees.HostFeeNumerator, fees.HostFeeDenominator, c.Fees.HostFeeNumerator, c.Fees.HostFeeDenominator},
	}
	for _, p := range pairs {
		if p.numerator < p.minimum || p.denominator != p.requiredDenom {
			return swaperrors.ErrInvalidFee.WithDetails(map[string]any{
				"fee":         p.name,
				"numerator":   p.numerator,
				"denominator": p.denominator,
				"minimum":     fmt.Sprintf("%d/%d", p.minimum, p.requiredDenom),
			})
		}
	}
	return nil
}
