package curve

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
)

// FeesLen is the packed size of Fees: eight little-endian u64 values.
const FeesLen = 64

// Fees holds the fee ratios charged by a pool. Every fee is
// floor(amount * numerator / denominator). A zero denominator marks the
// ratio as inactive and any fee computed from it has no result.
type Fees struct {
	// Trade fee retained by the pool, charged on the source amount.
	TradeFeeNumerator   uint64 `json:"trade_fee_numerator" yaml:"trade_fee_numerator" mapstructure:"trade_fee_numerator"`
	TradeFeeDenominator uint64 `json:"trade_fee_denominator" yaml:"trade_fee_denominator" mapstructure:"trade_fee_denominator"`

	// Owner fee charged on the source amount and minted to the fee account.
	OwnerTradeFeeNumerator   uint64 `json:"owner_trade_fee_numerator" yaml:"owner_trade_fee_numerator" mapstructure:"owner_trade_fee_numerator"`
	OwnerTradeFeeDenominator uint64 `json:"owner_trade_fee_denominator" yaml:"owner_trade_fee_denominator" mapstructure:"owner_trade_fee_denominator"`

	// Owner fee charged on pool tokens burned during a withdrawal.
	OwnerWithdrawFeeNumerator   uint64 `json:"owner_withdraw_fee_numerator" yaml:"owner_withdraw_fee_numerator" mapstructure:"owner_withdraw_fee_numerator"`
	OwnerWithdrawFeeDenominator uint64 `json:"owner_withdraw_fee_denominator" yaml:"owner_withdraw_fee_denominator" mapstructure:"owner_withdraw_fee_denominator"`

	// Share of the owner fee paid to a host fee account, if one is supplied.
	HostFeeNumerator   uint64 `json:"host_fee_numerator" yaml:"host_fee_numerator" mapstructure:"host_fee_numerator"`
	HostFeeDenominator uint64 `json:"host_fee_denominator" yaml:"host_fee_denominator" mapstructure:"host_fee_denominator"`
}

// calculateFee computes floor(amount * numerator / denominator).
func calculateFee(amount *uint256.Int, numerator, denominator uint64) (*uint256.Int, bool) {
	if amount == nil || denominator == 0 || !fitsU128(amount) {
		return nil, false
	}
	product, ok := checkedMul(amount, uint256.NewInt(numerator))
	if !ok {
		return nil, false
	}
	fee, ok := checkedDiv(product, uint256.NewInt(denominator))
	if !ok || !fitsU128(fee) {
		return nil, false
	}
	return fee, true
}

// TradingFee returns the pool trading fee for a source amount.
func (f *Fees) TradingFee(amount *uint256.Int) (*uint256.Int, bool) {
	return calculateFee(amount, f.TradeFeeNumerator, f.TradeFeeDenominator)
}

// OwnerTradingFee returns the owner trading fee for a source amount.
func (f *Fees) OwnerTradingFee(amount *uint256.Int) (*uint256.Int, bool) {
	return calculateFee(amount, f.OwnerTradeFeeNumerator, f.OwnerTradeFeeDenominator)
}

// OwnerWithdrawFee returns the owner fee for a pool token withdrawal.
func (f *Fees) OwnerWithdrawFee(poolTokens *uint256.Int) (*uint256.Int, bool) {
	return calculateFee(poolTokens, f.OwnerWithdrawFeeNumerator, f.OwnerWithdrawFeeDenominator)
}

// HostFee returns the host's share of an owner fee.
func (f *Fees) HostFee(ownerFee *uint256.Int) (*uint256.Int, bool) {
	return calculateFee(ownerFee, f.HostFeeNumerator, f.HostFeeDenominator)
}

func validateFraction(name string, numerator, denominator uint64) error {
	if denominator == 0 {
		return swaperrors.ErrInvalidFee.WithDetails(map[string]any{"fee": name, "reason": "zero denominator"})
	}
	if numerator >= denominator {
		return swaperrors.ErrInvalidFee.WithDetails(map[string]any{"fee": name, "reason": "numerator must be below denominator"})
	}
	return nil
}

// validateOptionalFraction also accepts 0/0, which switches the fee off.
func validateOptionalFraction(name string, numerator, denominator uint64) error {
	if numerator == 0 && denominator == 0 {
		return nil
	}
	return validateFraction(name, numerator, denominator)
}

// OwnerWithdrawFeeEnabled reports whether withdrawals pay an owner fee.
func (f *Fees) OwnerWithdrawFeeEnabled() bool {
	return f.OwnerWithdrawFeeDenominator != 0
}

// HostFeeEnabled reports whether a host takes a share of the owner fee.
func (f *Fees) HostFeeEnabled() bool {
	return f.HostFeeDenominator != 0
}

// Validate checks that both trading ratios are active and strictly below
// one. The owner withdraw and host ratios may also be 0/0, meaning off.
func (f *Fees) Validate() error {
	if err := validateFraction("trade", f.TradeFeeNumerator, f.TradeFeeDenominator); err != nil {
		return err
	}
	if err := validateFraction("owner_trade", f.OwnerTradeFeeNumerator, f.OwnerTradeFeeDenominator); err != nil {
		return err
	}
	if err := validateOptionalFraction("owner_withdraw", f.OwnerWithdrawFeeNumerator, f.OwnerWithdrawFeeDenominator); err != nil {
		return err
	}
	return validateOptionalFraction("host", f.HostFeeNumerator, f.HostFeeDenominator)
}

func (f *Fees) fields() [8]uint64 {
	return [8]uint64{
		f.TradeFeeNumerator,
		f.TradeFeeDenominator,
		f.OwnerTradeFeeNumerator,
		f.OwnerTradeFeeDenominator,
		f.OwnerWithdrawFeeNumerator,
		f.OwnerWithdrawFeeDenominator,
		f.HostFeeNumerator,
		f.HostFeeDenominator,
	}
}

// MarshalWithEncoder writes the 64-byte wire form.
func (f Fees) MarshalWithEncoder(encoder *bin.Encoder) error {
	for _, v := range f.fields() {
		if err := encoder.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalWithDecoder reads the 64-byte wire form.
func (f *Fees) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if decoder.Remaining() < FeesLen {
		return fmt.Errorf("fees require %d bytes, remaining %d", FeesLen, decoder.Remaining())
	}
	var vals [8]uint64
	for i := range vals {
		v, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	*f = Fees{
		TradeFeeNumerator:           vals[0],
		TradeFeeDenominator:         vals[1],
		OwnerTradeFeeNumerator:      vals[2],
		OwnerTradeFeeDenominator:    vals[3],
		OwnerWithdrawFeeNumerator:   vals[4],
		OwnerWithdrawFeeDenominator: vals[5],
		HostFeeNumerator:            vals[6],
		HostFeeDenominator:          vals[7],
	}
	return nil
}

// Pack returns the canonical 64-byte encoding.
func (f Fees) Pack() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, FeesLen))
	// writes to a bytes.Buffer cannot fail
	_ = f.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return buf.Bytes()
}

// UnpackFees decodes exactly FeesLen bytes. Ratios are not validated.
func UnpackFees(data []byte) (Fees, error) {
	if len(data) != FeesLen {
		return Fees{}, swaperrors.InvalidAccountData("fees", fmt.Errorf("expected %d bytes, got %d", FeesLen, len(data)))
	}
	var f Fees
	if err := f.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return Fees{}, swaperrors.InvalidAccountData("fees", err)
	}
	return f, nil
}
