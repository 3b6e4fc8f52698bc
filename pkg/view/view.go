// Package view provides zero-copy read access to packed pool records and
// instruction data. Views never allocate and never validate beyond bounds;
// use state.Unpack and instruction.Unpack when validation matters.
package view

import (
	"encoding/binary"
	"errors"
	"unsafe"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-tokenswap/pkg/curve"
	"github.com/lugondev/go-tokenswap/pkg/state"
)

var (
	ErrInvalidBuffer = errors.New("invalid buffer size")
	ErrUnknownTag    = errors.New("unknown instruction tag")
)

// Offsets into a versioned pool record.
const (
	offsetVersion        = 0
	offsetIsInitialized  = 1
	offsetBumpSeed       = 2
	offsetTokenProgramID = 3
	offsetTokenA         = offsetTokenProgramID + 32
	offsetTokenB         = offsetTokenA + 32
	offsetPoolMint       = offsetTokenB + 32
	offsetTokenAMint     = offsetPoolMint + 32
	offsetTokenBMint     = offsetTokenAMint + 32
	offsetPoolFeeAccount = offsetTokenBMint + 32
	offsetFees           = offsetPoolFeeAccount + 32
	offsetSwapCurve      = offsetFees + curve.FeesLen
)

// SwapView reads fields of a packed pool record in place.
type SwapView struct {
	buffer []byte
}

// NewSwapView wraps buffer, which must hold at least state.LatestLen bytes.
func NewSwapView(buffer []byte) (*SwapView, error) {
	if len(buffer) < state.LatestLen {
		return nil, ErrInvalidBuffer
	}
	return &SwapView{buffer: buffer}, nil
}

func (v *SwapView) pubkey(offset int) solana.PublicKey {
	return *(*solana.PublicKey)(unsafe.Pointer(&v.buffer[offset]))
}

func (v *SwapView) Version() uint8 {
	return v.buffer[offsetVersion]
}

func (v *SwapView) IsInitialized() bool {
	return v.buffer[offsetIsInitialized] == 1
}

func (v *SwapView) BumpSeed() uint8 {
	return v.buffer[offsetBumpSeed]
}

func (v *SwapView) TokenProgramID() solana.PublicKey { return v.pubkey(offsetTokenProgramID) }
func (v *SwapView) TokenA() solana.PublicKey         { return v.pubkey(offsetTokenA) }
func (v *SwapView) TokenB() solana.PublicKey         { return v.pubkey(offsetTokenB) }
func (v *SwapView) PoolMint() solana.PublicKey       { return v.pubkey(offsetPoolMint) }
func (v *SwapView) TokenAMint() solana.PublicKey     { return v.pubkey(offsetTokenAMint) }
func (v *SwapView) TokenBMint() solana.PublicKey     { return v.pubkey(offsetTokenBMint) }
func (v *SwapView) PoolFeeAccount() solana.PublicKey { return v.pubkey(offsetPoolFeeAccount) }

// FeeField returns the i-th fee field in wire order, 0 through 7.
func (v *SwapView) FeeField(i int) uint64 {
	if i < 0 || i >= 8 {
		return 0
	}
	start := offsetFees + 8*i
	return binary.LittleEndian.Uint64(v.buffer[start : start+8])
}

// TradeFee returns the trading fee ratio.
func (v *SwapView) TradeFee() (numerator, denominator uint64) {
	return v.FeeField(0), v.FeeField(1)
}

// FeesData returns the packed fees without copying.
func (v *SwapView) FeesData() []byte {
	return v.buffer[offsetFees:offsetSwapCurve]
}

// CurveType returns the raw curve discriminant.
func (v *SwapView) CurveType() curve.CurveType {
	return curve.CurveType(v.buffer[offsetSwapCurve])
}

// CurveData returns the packed swap curve without copying.
func (v *SwapView) CurveData() []byte {
	return v.buffer[offsetSwapCurve:state.LatestLen]
}

// Amp reads the amplification of a stable curve. It is only meaningful when
// CurveType is curve.CurveTypeStable.
func (v *SwapView) Amp() uint64 {
	start := offsetSwapCurve + 1
	return binary.LittleEndian.Uint64(v.buffer[start : start+8])
}

// InstructionView reads tag and amount fields of instruction data in place.
type InstructionView struct {
	buffer []byte
}

// NewInstructionView wraps buffer after checking the tag and that the fixed
// payload is present.
func NewInstructionView(buffer []byte) (*InstructionView, error) {
	if len(buffer) < 1 {
		return nil, ErrInvalidBuffer
	}
	var size int
	switch buffer[0] {
	case 0:
		size = 1 + curve.FeesLen + curve.SwapCurveLen
	case 1:
		size = 17
	case 2, 3:
		size = 25
	default:
		return nil, ErrUnknownTag
	}
	if len(buffer) < size {
		return nil, ErrInvalidBuffer
	}
	return &InstructionView{buffer: buffer[:size]}, nil
}

func (v *InstructionView) Tag() uint8 {
	return v.buffer[0]
}

// Amount returns the i-th u64 argument of a Swap, DepositAllTokenTypes or
// WithdrawAllTokenTypes instruction. It returns 0 for Initialize or an index
// past the payload.
func (v *InstructionView) Amount(i int) uint64 {
	if v.buffer[0] == 0 || i < 0 {
		return 0
	}
	start := 1 + 8*i
	if start+8 > len(v.buffer) {
		return 0
	}
	return binary.LittleEndian.Uint64(v.buffer[start : start+8])
}

// Payload returns the bytes after the tag without copying.
func (v *InstructionView) Payload() []byte {
	return v.buffer[1:]
}

// FullData returns the fixed-length instruction bytes.
func (v *InstructionView) FullData() []byte {
	return v.buffer
}
