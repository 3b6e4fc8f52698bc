package state

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/pkg/curve"
)

func testFees() curve.Fees {
	return curve.Fees{
		TradeFeeNumerator:           25,
		TradeFeeDenominator:         10_000,
		OwnerTradeFeeNumerator:      5,
		OwnerTradeFeeDenominator:    10_000,
		OwnerWithdrawFeeNumerator:   1,
		OwnerWithdrawFeeDenominator: 6,
		HostFeeNumerator:            20,
		HostFeeDenominator:          100,
	}
}

func testRecord() *SwapV1 {
	return &SwapV1{
		IsInitialized:  true,
		BumpSeed:       254,
		TokenProgramID: solana.TokenProgramID,
		TokenA:         solana.NewWallet().PublicKey(),
		TokenB:         solana.NewWallet().PublicKey(),
		PoolMint:       solana.NewWallet().PublicKey(),
		TokenAMint:     solana.NewWallet().PublicKey(),
		TokenBMint:     solana.NewWallet().PublicKey(),
		PoolFeeAccount: solana.NewWallet().PublicKey(),
		Fees:           testFees(),
		SwapCurve:      curve.NewSwapCurve(curve.NewStableCurve(250)),
	}
}

func TestSwapV1Lengths(t *testing.T) {
	assert.Equal(t, 323, SwapV1Len)
	assert.Equal(t, 324, LatestLen)
}

func TestSwapV1RoundTrip(t *testing.T) {
	record := testRecord()
	packed, err := record.Pack()
	require.NoError(t, err)
	require.Len(t, packed, LatestLen)

	assert.Equal(t, VersionSwapV1, packed[0])
	assert.Equal(t, byte(1), packed[1])
	assert.Equal(t, byte(254), packed[2])
	assert.Equal(t, solana.TokenProgramID.Bytes(), packed[3:35])
	assert.Equal(t, record.PoolFeeAccount.Bytes(), packed[195:227])
	assert.Equal(t, record.Fees.Pack(), packed[227:291])
	assert.Equal(t, record.SwapCurve.Pack(), packed[291:324])

	unpacked, err := Unpack(packed)
	require.NoError(t, err)
	assert.True(t, IsInitialized(packed))
	assert.Equal(t, record.TokenA, unpacked.TokenA)
	assert.Equal(t, record.TokenBMint, unpacked.TokenBMint)
	assert.Equal(t, record.Fees, unpacked.Fees)
	assert.True(t, record.SwapCurve.Equal(unpacked.SwapCurve))

	repacked, err := unpacked.Pack()
	require.NoError(t, err)
	assert.Equal(t, packed, repacked)
}

func TestUnpackRejects(t *testing.T) {
	packed, err := testRecord().Pack()
	require.NoError(t, err)

	badVersion := bytes.Clone(packed)
	badVersion[0] = 2
	badBool := bytes.Clone(packed)
	badBool[1] = 7
	badCurve := bytes.Clone(packed)
	badCurve[291] = 0

	for name, data := range map[string][]byte{
		"empty":       nil,
		"short":       packed[:LatestLen-1],
		"version":     badVersion,
		"bool":        badBool,
		"curve":       badCurve,
		"zero filled": make([]byte, LatestLen),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Unpack(data)
			assert.ErrorIs(t, err, swaperrors.ErrInvalidAccountData)
		})
	}
}

func TestIsInitialized(t *testing.T) {
	record := testRecord()
	record.IsInitialized = false
	packed, err := record.Pack()
	require.NoError(t, err)

	assert.False(t, IsInitialized(packed))
	assert.False(t, IsInitialized(make([]byte, LatestLen)))
	assert.False(t, IsInitialized(nil))
}

func TestPackWithoutCurveFails(t *testing.T) {
	record := testRecord()
	record.SwapCurve = nil
	_, err := record.Pack()
	assert.ErrorIs(t, err, swaperrors.ErrInvalidAccountData)
}

func TestSwapConstraints(t *testing.T) {
	constraints := &SwapConstraints{
		OwnerKey:        solana.NewWallet().PublicKey(),
		ValidCurveTypes: []curve.CurveType{curve.CurveTypeStable},
		Fees:            testFees(),
	}

	assert.NoError(t, constraints.ValidateCurve(curve.DefaultSwapCurve()))
	assert.ErrorIs(t, constraints.ValidateCurve(nil), swaperrors.ErrUnsupportedCurveType)

	assert.NoError(t, constraints.ValidateFees(testFees()))

	higher := testFees()
	higher.TradeFeeNumerator = 30
	assert.NoError(t, constraints.ValidateFees(higher))

	lower := testFees()
	lower.HostFeeNumerator = 10
	assert.ErrorIs(t, constraints.ValidateFees(lower), swaperrors.ErrInvalidFee)

	otherDenominator := testFees()
	otherDenominator.TradeFeeDenominator = 1_000
	assert.ErrorIs(t, constraints.ValidateFees(otherDenominator), swaperrors.ErrInvalidFee)

	none := &SwapConstraints{ValidCurveTypes: nil}
	assert.ErrorIs(t, none.ValidateCurve(curve.DefaultSwapCurve()), swaperrors.ErrUnsupportedCurveType)

	var unconstrained *SwapConstraints
	assert.NoError(t, unconstrained.ValidateCurve(nil))
	assert.NoError(t, unconstrained.ValidateFees(curve.Fees{}))
}

func FuzzUnpack(f *testing.F) {
	packed, err := testRecord().Pack()
	if err != nil {
		f.Fatal(err)
	}
	f.Add(packed)
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0xFF}, LatestLen))

	f.Fuzz(func(t *testing.T, data []byte) {
		record, err := Unpack(data)
		if err != nil {
			return
		}
		repacked, err := record.Pack()
		require.NoError(t, err)
		require.Len(t, repacked, LatestLen)
		assert.Equal(t, data[:291], repacked[:291])
	})
}
