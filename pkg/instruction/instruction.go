// Package instruction implements the wire codec for token-swap instructions.
//
// Every instruction starts with a one-byte tag followed by a fixed payload of
// little-endian integers:
//
//	0 Initialize             Fees (64) + SwapCurve (33)
//	1 Swap                   amount_in, minimum_amount_out
//	2 DepositAllTokenTypes   pool_token_amount, maximum_token_a_amount, maximum_token_b_amount
//	3 WithdrawAllTokenTypes  pool_token_amount, minimum_token_a_amount, minimum_token_b_amount
//
// Unpack is total: every input either decodes or returns an error, and bytes
// past the fixed payload are ignored. Pack always produces the canonical
// length for the tag.
package instruction

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/pkg/curve"
)

// Tag is the first byte of every instruction.
type Tag uint8

const (
	TagInitialize Tag = iota
	TagSwap
	TagDepositAllTokenTypes
	TagWithdrawAllTokenTypes
)

const (
	InitializeLen            = 1 + curve.FeesLen + curve.SwapCurveLen
	SwapLen                  = 1 + 8 + 8
	DepositAllTokenTypesLen  = 1 + 8 + 8 + 8
	WithdrawAllTokenTypesLen = 1 + 8 + 8 + 8
)

var tagNames = map[Tag]string{
	TagInitialize:            "Initialize",
	TagSwap:                  "Swap",
	TagDepositAllTokenTypes:  "DepositAllTokenTypes",
	TagWithdrawAllTokenTypes: "WithdrawAllTokenTypes",
}

// payloadLen is the fixed payload size for each tag, excluding the tag byte.
var payloadLen = map[Tag]int{
	TagInitialize:            InitializeLen - 1,
	TagSwap:                  SwapLen - 1,
	TagDepositAllTokenTypes:  DepositAllTokenTypesLen - 1,
	TagWithdrawAllTokenTypes: WithdrawAllTokenTypesLen - 1,
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}

// Valid reports whether t names a known instruction.
func (t Tag) Valid() bool {
	_, ok := tagNames[t]
	return ok
}

// Instruction is one of *Initialize, *Swap, *DepositAllTokenTypes or
// *WithdrawAllTokenTypes.
type Instruction interface {
	Tag() Tag
	Pack() []byte
	MarshalWithEncoder(encoder *bin.Encoder) error
	UnmarshalWithDecoder(decoder *bin.Decoder) error

	sealed()
}

// Initialize creates a new pool with the given fees and curve.
type Initialize struct {
	Fees      curve.Fees       `json:"fees"`
	SwapCurve *curve.SwapCurve `json:"-"`
}

// Swap trades AmountIn of the source token for at least MinimumAmountOut of
// the destination token.
type Swap struct {
	AmountIn         uint64 `json:"amount_in"`
	MinimumAmountOut uint64 `json:"minimum_amount_out"`
}

// DepositAllTokenTypes mints PoolTokenAmount pool tokens in exchange for both
// trading tokens at the current ratio.
type DepositAllTokenTypes struct {
	PoolTokenAmount     uint64 `json:"pool_token_amount"`
	MaximumTokenAAmount uint64 `json:"maximum_token_a_amount"`
	MaximumTokenBAmount uint64 `json:"maximum_token_b_amount"`
}

// WithdrawAllTokenTypes burns PoolTokenAmount pool tokens in exchange for both
// trading tokens at the current ratio.
type WithdrawAllTokenTypes struct {
	PoolTokenAmount     uint64 `json:"pool_token_amount"`
	MinimumTokenAAmount uint64 `json:"minimum_token_a_amount"`
	MinimumTokenBAmount uint64 `json:"minimum_token_b_amount"`
}

func (*Initialize) sealed()            {}
func (*Swap) sealed()                  {}
func (*DepositAllTokenTypes) sealed()  {}
func (*WithdrawAllTokenTypes) sealed() {}

func (*Initialize) Tag() Tag            { return TagInitialize }
func (*Swap) Tag() Tag                  { return TagSwap }
func (*DepositAllTokenTypes) Tag() Tag  { return TagDepositAllTokenTypes }
func (*WithdrawAllTokenTypes) Tag() Tag { return TagWithdrawAllTokenTypes }

func (ix *Initialize) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(uint8(TagInitialize)); err != nil {
		return err
	}
	if err := ix.Fees.MarshalWithEncoder(encoder); err != nil {
		return err
	}
	return ix.SwapCurve.MarshalWithEncoder(encoder)
}

// UnmarshalWithDecoder reads the payload that follows the tag byte.
func (ix *Initialize) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := ix.Fees.UnmarshalWithDecoder(decoder); err != nil {
		return err
	}
	swapCurve := new(curve.SwapCurve)
	if err := swapCurve.UnmarshalWithDecoder(decoder); err != nil {
		return err
	}
	ix.SwapCurve = swapCurve
	return nil
}

func (ix *Swap) MarshalWithEncoder(encoder *bin.Encoder) error {
	return writeTagged(encoder, TagSwap, ix.AmountIn, ix.MinimumAmountOut)
}

func (ix *Swap) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return readU64s(decoder, &ix.AmountIn, &ix.MinimumAmountOut)
}

func (ix *DepositAllTokenTypes) MarshalWithEncoder(encoder *bin.Encoder) error {
	return writeTagged(encoder, TagDepositAllTokenTypes, ix.PoolTokenAmount, ix.MaximumTokenAAmount, ix.MaximumTokenBAmount)
}

func (ix *DepositAllTokenTypes) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return readU64s(decoder, &ix.PoolTokenAmount, &ix.MaximumTokenAAmount, &ix.MaximumTokenBAmount)
}

func (ix *WithdrawAllTokenTypes) MarshalWithEncoder(encoder *bin.Encoder) error {
	return writeTagged(encoder, TagWithdrawAllTokenTypes, ix.PoolTokenAmount, ix.MinimumTokenAAmount, ix.MinimumTokenBAmount)
}

func (ix *WithdrawAllTokenTypes) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return readU64s(decoder, &ix.PoolTokenAmount, &ix.MinimumTokenAAmount, &ix.MinimumTokenBAmount)
}

func (ix *Initialize) Pack() []byte            { return pack(ix, InitializeLen) }
func (ix *Swap) Pack() []byte                  { return pack(ix, SwapLen) }
func (ix *DepositAllTokenTypes) Pack() []byte  { return pack(ix, DepositAllTokenTypesLen) }
func (ix *WithdrawAllTokenTypes) Pack() []byte { return pack(ix, WithdrawAllTokenTypesLen) }

func writeTagged(encoder *bin.Encoder, tag Tag, values ...uint64) error {
	if err := encoder.WriteUint8(uint8(tag)); err != nil {
		return err
	}
	for _, v := range values {
		if err := encoder.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	return nil
}

func readU64s(decoder *bin.Decoder, dst ...*uint64) error {
	for _, d := range dst {
		v, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		*d = v
	}
	return nil
}

// pack returns nil if the instruction cannot be encoded, which only happens
// for an Initialize without a curve.
func pack(ix Instruction, size int) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if err := ix.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil
	}
	return buf.Bytes()
}

// Unpack decodes an instruction. An empty input, an unknown tag or a payload
// shorter than the tag requires fails with ErrInvalidInstruction. An unknown
// curve discriminant inside Initialize fails with ErrInvalidAccountData.
func Unpack(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, swaperrors.InvalidInstruction(fmt.Errorf("empty instruction data"))
	}
	tag := Tag(data[0])
	size, ok := payloadLen[tag]
	if !ok {
		return nil, swaperrors.InvalidInstruction(fmt.Errorf("unknown tag %d", data[0]))
	}
	if len(data)-1 < size {
		return nil, swaperrors.InvalidInstruction(fmt.Errorf("%s requires %d payload bytes, got %d", tag, size, len(data)-1))
	}

	var ix Instruction
	switch tag {
	case TagInitialize:
		ix = new(Initialize)
	case TagSwap:
		ix = new(Swap)
	case TagDepositAllTokenTypes:
		ix = new(DepositAllTokenTypes)
	case TagWithdrawAllTokenTypes:
		ix = new(WithdrawAllTokenTypes)
	}

	if err := ix.UnmarshalWithDecoder(bin.NewBinDecoder(data[1 : 1+size])); err != nil {
		if swaperrors.Is(err, swaperrors.ErrInvalidAccountData) {
			return nil, err
		}
		return nil, swaperrors.InvalidInstruction(err)
	}
	return ix, nil
}

// UnpackTag reads only the tag byte.
func UnpackTag(data []byte) (Tag, error) {
	if len(data) == 0 {
		return 0, swaperrors.InvalidInstruction(fmt.Errorf("empty instruction data"))
	}
	tag := Tag(data[0])
	if !tag.Valid() {
		return 0, swaperrors.InvalidInstruction(fmt.Errorf("unknown tag %d", data[0]))
	}
	return tag, nil
}
