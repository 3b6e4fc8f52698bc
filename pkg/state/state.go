// Package state defines the persistent token-swap pool record.
package state

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/pkg/curve"
)

const (
	// SwapV1Len is the packed size of a SwapV1 record without the version
	// byte.
	SwapV1Len = 1 + 1 + 7*solana.PublicKeyLength + curve.FeesLen + curve.SwapCurveLen

	// LatestLen is the account size for the latest version, version byte
	// included.
	LatestLen = 1 + SwapV1Len

	// VersionSwapV1 is the only known record version.
	VersionSwapV1 uint8 = 1
)

// SwapV1 is the pool record. Keys are stored in this order on the wire.
type SwapV1 struct {
	IsInitialized  bool
	BumpSeed       uint8
	TokenProgramID solana.PublicKey
	TokenA         solana.PublicKey
	TokenB         solana.PublicKey
	PoolMint       solana.PublicKey
	TokenAMint     solana.PublicKey
	TokenBMint     solana.PublicKey
	PoolFeeAccount solana.PublicKey
	Fees           curve.Fees
	SwapCurve      *curve.SwapCurve
}

func (s *SwapV1) keys() []*solana.PublicKey {
	return []*solana.PublicKey{
		&s.TokenProgramID,
		&s.TokenA,
		&s.TokenB,
		&s.PoolMint,
		&s.TokenAMint,
		&s.TokenBMint,
		&s.PoolFeeAccount,
	}
}

// MarshalWithEncoder writes the record without the version byte.
func (s *SwapV1) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBool(s.IsInitialized); err != nil {
		return err
	}
	if err := encoder.WriteUint8(s.BumpSeed); err != nil {
		return err
	}
	for _, key := range s.keys() {
		if err := encoder.WriteBytes(key.Bytes(), false); err != nil {
			return err
		}
	}
	if err := s.Fees.MarshalWithEncoder(encoder); err != nil {
		return err
	}
	return s.SwapCurve.MarshalWithEncoder(encoder)
}

// UnmarshalWithDecoder reads a record written by MarshalWithEncoder.
func (s *SwapV1) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if decoder.Remaining() < SwapV1Len {
		return fmt.Errorf("swap record requires %d bytes, remaining %d", SwapV1Len, decoder.Remaining())
	}
	initialized, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	switch initialized {
	case 0, 1:
		s.IsInitialized = initialized == 1
	default:
		return swaperrors.InvalidAccountData("is_initialized", fmt.Errorf("invalid bool %d", initialized))
	}
	if s.BumpSeed, err = decoder.ReadUint8(); err != nil {
		return err
	}
	for _, key := range s.keys() {
		raw, err := decoder.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		*key = solana.PublicKeyFromBytes(raw)
	}
	if err := s.Fees.UnmarshalWithDecoder(decoder); err != nil {
		return err
	}
	s.SwapCurve = new(curve.SwapCurve)
	return s.SwapCurve.UnmarshalWithDecoder(decoder)
}

// Pack returns the versioned account data, LatestLen bytes long.
func (s *SwapV1) Pack() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, LatestLen))
	encoder := bin.NewBinEncoder(buf)
	if err := encoder.WriteUint8(VersionSwapV1); err != nil {
		return nil, err
	}
	if err := s.MarshalWithEncoder(encoder); err != nil {
		return nil, swaperrors.InvalidAccountData("swap record", err)
	}
	return buf.Bytes(), nil
}

// Unpack decodes versioned account data. The data must hold at least
// LatestLen bytes; anything beyond that is ignored.
func Unpack(data []byte) (*SwapV1, error) {
	if len(data) < LatestLen {
		return nil, swaperrors.InvalidAccountData("swap record", fmt.Errorf("expected %d bytes, got %d", LatestLen, len(data)))
	}
	if data[0] != VersionSwapV1 {
		return nil, swaperrors.InvalidAccountData("swap record", fmt.Errorf("unknown version %d", data[0]))
	}
	s := new(SwapV1)
	if err := s.UnmarshalWithDecoder(bin.NewBinDecoder(data[1:LatestLen])); err != nil {
		if swaperrors.Is(err, swaperrors.ErrInvalidAccountData) {
			return nil, err
		}
		return nil, swaperrors.InvalidAccountData("swap record", err)
	}
	return s, nil
}

// IsInitialized reports whether data holds an initialized record without
// decoding the rest of it.
func IsInitialized(data []byte) bool {
	return len(data) >= LatestLen && data[0] == VersionSwapV1 && data[1] == 1
}
