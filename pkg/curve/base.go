package curve

import (
	"bytes"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
)

// SwapCurveLen is the packed size of a SwapCurve: one discriminant byte and
// the calculator parameter region.
const SwapCurveLen = 1 + CalculatorParamsLen

// CurveType is the wire discriminant of a curve variant. Values are protocol
// constants and are not sequential; existing values must never be renumbered.
type CurveType uint8

const (
	// CurveTypeStable selects StableCurve.
	CurveTypeStable CurveType = 2
)

// calculatorDecoders maps every accepted discriminant to the decoder of its
// parameter region. Adding a variant means adding a tag and an entry here.
var calculatorDecoders = map[CurveType]func(*bin.Decoder) (Calculator, error){
	CurveTypeStable: unpackStableCurve,
}

var curveTypeNames = map[CurveType]string{
	CurveTypeStable: "stable",
}

// Valid reports whether t is a known discriminant.
func (t CurveType) Valid() bool {
	_, ok := calculatorDecoders[t]
	return ok
}

func (t CurveType) String() string {
	if name, ok := curveTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// ParseCurveType resolves a curve name such as "stable".
func ParseCurveType(name string) (CurveType, error) {
	for t, n := range curveTypeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return 0, swaperrors.ErrInvalidCurve.WithCause(fmt.Errorf("unknown curve type %q", name))
}

// CurveTypeFromByte validates a raw discriminant.
func CurveTypeFromByte(b byte) (CurveType, error) {
	t := CurveType(b)
	if !t.Valid() {
		return 0, swaperrors.InvalidAccountData("curve type", fmt.Errorf("unknown discriminant %d", b))
	}
	return t, nil
}

// SwapResult encodes all results of swapping from a source token to a
// destination token.
type SwapResult struct {
	// New amount of source token.
	NewSwapSourceAmount *uint256.Int
	// New amount of destination token.
	NewSwapDestinationAmount *uint256.Int
	// Amount of source token swapped, fees included.
	SourceAmountSwapped *uint256.Int
	// Amount of destination token swapped.
	DestinationAmountSwapped *uint256.Int
	// Amount of source tokens going to pool holders.
	TradeFee *uint256.Int
	// Amount of source tokens going to the owner.
	OwnerFee *uint256.Int
}

// SwapCurve pairs a curve discriminant with the calculator it selects. The
// pairing cannot be broken: the discriminant is always read from the
// calculator, and decoding only builds calculators through the fixed table.
type SwapCurve struct {
	calculator Calculator
}

// NewSwapCurve wraps a calculator.
func NewSwapCurve(calculator Calculator) *SwapCurve {
	return &SwapCurve{calculator: calculator}
}

// DefaultSwapCurve returns a stable curve with DefaultAmp.
func DefaultSwapCurve() *SwapCurve {
	return NewSwapCurve(NewStableCurve(DefaultAmp))
}

// CurveType returns the discriminant of the held calculator.
func (s *SwapCurve) CurveType() CurveType {
	return s.calculator.CurveType()
}

// Calculator returns the held calculator.
func (s *SwapCurve) Calculator() Calculator {
	return s.calculator
}

// Swap subtracts fees and calculates how much destination token will be
// provided given an amount of source token.
func (s *SwapCurve) Swap(sourceAmount, swapSourceAmount, swapDestinationAmount *uint256.Int, direction TradeDirection, fees *Fees) (*SwapResult, bool) {
	if fees == nil || isNil(sourceAmount, swapSourceAmount, swapDestinationAmount) {
		return nil, false
	}

	// debit the fee to calculate the amount swapped
	tradeFee, ok := fees.TradingFee(sourceAmount)
	if !ok {
		return nil, false
	}
	ownerFee, ok := fees.OwnerTradingFee(sourceAmount)
	if !ok {
		return nil, false
	}
	totalFees, ok := checkedAdd128(tradeFee, ownerFee)
	if !ok {
		return nil, false
	}
	sourceAmountLessFees, ok := checkedSub128(sourceAmount, totalFees)
	if !ok {
		return nil, false
	}

	res, ok := s.calculator.SwapWithoutFees(sourceAmountLessFees, swapSourceAmount, swapDestinationAmount, direction)
	if !ok {
		return nil, false
	}

	sourceAmountSwapped, ok := checkedAdd128(res.SourceAmountSwapped, totalFees)
	if !ok {
		return nil, false
	}
	newSwapSourceAmount, ok := checkedAdd128(swapSourceAmount, sourceAmountSwapped)
	if !ok {
		return nil, false
	}
	newSwapDestinationAmount, ok := checkedSub128(swapDestinationAmount, res.DestinationAmountSwapped)
	if !ok {
		return nil, false
	}

	return &SwapResult{
		NewSwapSourceAmount:      newSwapSourceAmount,
		NewSwapDestinationAmount: newSwapDestinationAmount,
		SourceAmountSwapped:      sourceAmountSwapped,
		DestinationAmountSwapped: res.DestinationAmountSwapped,
		TradeFee:                 tradeFee,
		OwnerFee:                 ownerFee,
	}, true
}

// MarshalWithEncoder writes the 33-byte wire form.
func (s *SwapCurve) MarshalWithEncoder(encoder *bin.Encoder) error {
	if s == nil || s.calculator == nil {
		return fmt.Errorf("swap curve has no calculator")
	}
	if err := encoder.WriteUint8(uint8(s.calculator.CurveType())); err != nil {
		return err
	}
	return s.calculator.MarshalWithEncoder(encoder)
}

// UnmarshalWithDecoder reads the 33-byte wire form. The discriminant is
// checked against the known variants before any parameter is read.
func (s *SwapCurve) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if decoder.Remaining() < SwapCurveLen {
		return fmt.Errorf("swap curve requires %d bytes, remaining %d", SwapCurveLen, decoder.Remaining())
	}
	tag, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	curveType, err := CurveTypeFromByte(tag)
	if err != nil {
		return err
	}
	calculator, err := calculatorDecoders[curveType](decoder)
	if err != nil {
		return err
	}
	s.calculator = calculator
	return nil
}

// Pack returns the canonical 33-byte encoding.
func (s *SwapCurve) Pack() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, SwapCurveLen))
	if err := s.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil
	}
	return buf.Bytes()
}

// UnpackSwapCurve decodes exactly SwapCurveLen bytes.
func UnpackSwapCurve(data []byte) (*SwapCurve, error) {
	if len(data) != SwapCurveLen {
		return nil, swaperrors.InvalidAccountData("swap curve", fmt.Errorf("expected %d bytes, got %d", SwapCurveLen, len(data)))
	}
	s := new(SwapCurve)
	if err := s.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		if swaperrors.Is(err, swaperrors.ErrInvalidAccountData) {
			return nil, err
		}
		return nil, swaperrors.InvalidAccountData("swap curve", err)
	}
	return s, nil
}

// Equal compares two curves by their packed form.
func (s *SwapCurve) Equal(other *SwapCurve) bool {
	if s == nil || other == nil {
		return s == other
	}
	a, b := s.Pack(), other.Pack()
	return a != nil && b != nil && bytes.Equal(a, b)
}

// Clone copies the curve through its packed form.
func (s *SwapCurve) Clone() *SwapCurve {
	c, err := UnpackSwapCurve(s.Pack())
	if err != nil {
		return nil
	}
	return c
}

// Validate checks the held calculator parameters.
func (s *SwapCurve) Validate() error {
	if s == nil || s.calculator == nil {
		return swaperrors.ErrInvalidCurve.WithCause(fmt.Errorf("missing calculator"))
	}
	if !s.calculator.CurveType().Valid() {
		return swaperrors.ErrInvalidCurve.WithCause(fmt.Errorf("unregistered curve type %s", s.calculator.CurveType()))
	}
	return s.calculator.Validate()
}

func (s *SwapCurve) String() string {
	if s == nil || s.calculator == nil {
		return "SwapCurve{}"
	}
	return fmt.Sprintf("SwapCurve{%s %+v}", s.calculator.CurveType(), s.calculator)
}
