package pool

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-tokenswap/internal/common"
	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/internal/ledger"
	"github.com/lugondev/go-tokenswap/internal/metrics"
	"github.com/lugondev/go-tokenswap/pkg/curve"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
	"github.com/lugondev/go-tokenswap/pkg/state"
)

var testProgramID = solana.MustPublicKeyFromBase58("SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8")

const (
	reserveAmount = 1_000_000_000
	userAmount    = 100_000_000
)

func testFees() curve.Fees {
	return curve.Fees{
		TradeFeeNumerator:           25,
		TradeFeeDenominator:         10_000,
		OwnerTradeFeeNumerator:      5,
		OwnerTradeFeeDenominator:    10_000,
		OwnerWithdrawFeeNumerator:   1,
		OwnerWithdrawFeeDenominator: 100,
		HostFeeNumerator:            20,
		HostFeeDenominator:          100,
	}
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	ledger *ledger.Memory
	engine *Engine

	swap, authority        solana.PublicKey
	mintA, mintB, poolMint solana.PublicKey
	tokenA, tokenB         solana.PublicKey
	feeOwner, feeAccount   solana.PublicKey

	user                      solana.PublicKey
	userA, userB, userPool    solana.PublicKey
	hostOwner, hostFeeAccount solana.PublicKey
}

// newHarness funds a pool and a user but does not initialize the pool.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		ctx:        context.Background(),
		ledger:     ledger.NewMemory(),
		swap:       newKey(),
		mintA:      newKey(),
		mintB:      newKey(),
		poolMint:   newKey(),
		tokenA:     newKey(),
		tokenB:     newKey(),
		feeOwner:   newKey(),
		feeAccount: newKey(),
		user:       newKey(),
		userA:      newKey(),
		userB:      newKey(),
		userPool:   newKey(),
		hostOwner:  newKey(),
	}
	h.hostFeeAccount = newKey()
	h.engine = NewEngine(testProgramID, h.ledger, opts...)

	authority, _, err := instruction.FindAuthority(testProgramID, h.swap)
	require.NoError(t, err)
	h.authority = authority

	mintAuthority := newKey()
	require.NoError(t, h.ledger.CreateMint(h.mintA, mintAuthority, 6))
	require.NoError(t, h.ledger.CreateMint(h.mintB, mintAuthority, 6))
	require.NoError(t, h.ledger.CreateMint(h.poolMint, authority, 9))

	require.NoError(t, h.ledger.CreateTokenAccount(h.tokenA, h.mintA, authority, reserveAmount))
	require.NoError(t, h.ledger.CreateTokenAccount(h.tokenB, h.mintB, authority, reserveAmount))
	require.NoError(t, h.ledger.CreateTokenAccount(h.feeAccount, h.poolMint, h.feeOwner, 0))

	require.NoError(t, h.ledger.CreateTokenAccount(h.userA, h.mintA, h.user, userAmount))
	require.NoError(t, h.ledger.CreateTokenAccount(h.userB, h.mintB, h.user, userAmount))
	require.NoError(t, h.ledger.CreateTokenAccount(h.userPool, h.poolMint, h.user, 0))
	require.NoError(t, h.ledger.CreateTokenAccount(h.hostFeeAccount, h.poolMint, h.hostOwner, 0))
	return h
}

func (h *harness) initializeAccounts() instruction.InitializeAccounts {
	return instruction.InitializeAccounts{
		Swap:         h.swap,
		Authority:    h.authority,
		TokenA:       h.tokenA,
		TokenB:       h.tokenB,
		PoolMint:     h.poolMint,
		FeeAccount:   h.feeAccount,
		Destination:  h.userPool,
		TokenProgram: solana.TokenProgramID,
	}
}

func (h *harness) initialize(fees curve.Fees, swapCurve *curve.SwapCurve) error {
	keys := instruction.Keys(h.initializeAccounts().AccountMetas())
	return h.engine.Initialize(h.ctx, keys, &instruction.Initialize{Fees: fees, SwapCurve: swapCurve})
}

func (h *harness) mustInitialize() {
	h.t.Helper()
	require.NoError(h.t, h.initialize(testFees(), curve.NewSwapCurve(curve.NewStableCurve(100))))
}

func (h *harness) swapAccounts(direction curve.TradeDirection) instruction.SwapAccounts {
	accounts := instruction.SwapAccounts{
		Swap:                  h.swap,
		Authority:             h.authority,
		UserTransferAuthority: h.user,
		Source:                h.userA,
		SwapSource:            h.tokenA,
		SwapDestination:       h.tokenB,
		Destination:           h.userB,
		PoolMint:              h.poolMint,
		PoolFeeAccount:        h.feeAccount,
		TokenProgram:          solana.TokenProgramID,
	}
	if direction == curve.BtoA {
		accounts.Source, accounts.Destination = h.userB, h.userA
		accounts.SwapSource, accounts.SwapDestination = h.tokenB, h.tokenA
	}
	return accounts
}

func (h *harness) depositAccounts() instruction.DepositAllTokenTypesAccounts {
	return instruction.DepositAllTokenTypesAccounts{
		Swap:                  h.swap,
		Authority:             h.authority,
		UserTransferAuthority: h.user,
		DepositTokenA:         h.userA,
		DepositTokenB:         h.userB,
		SwapTokenA:            h.tokenA,
		SwapTokenB:            h.tokenB,
		PoolMint:              h.poolMint,
		Destination:           h.userPool,
		TokenProgram:          solana.TokenProgramID,
	}
}

func (h *harness) withdrawAccounts() instruction.WithdrawAllTokenTypesAccounts {
	return instruction.WithdrawAllTokenTypesAccounts{
		Swap:                  h.swap,
		Authority:             h.authority,
		UserTransferAuthority: h.user,
		PoolMint:              h.poolMint,
		Source:                h.userPool,
		SwapTokenA:            h.tokenA,
		SwapTokenB:            h.tokenB,
		DestinationTokenA:     h.userA,
		DestinationTokenB:     h.userB,
		FeeAccount:            h.feeAccount,
		TokenProgram:          solana.TokenProgramID,
	}
}

func (h *harness) balance(key solana.PublicKey) uint64 {
	h.t.Helper()
	account, err := h.ledger.TokenAccount(h.ctx, key)
	require.NoError(h.t, err)
	return account.Amount
}

func (h *harness) supply() uint64 {
	h.t.Helper()
	mint, err := h.ledger.Mint(h.ctx, h.poolMint)
	require.NoError(h.t, err)
	return mint.Supply
}

func TestInitialize(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	assert.Equal(t, uint64(curve.InitialSwapPoolAmount), h.balance(h.userPool))
	assert.Equal(t, uint64(curve.InitialSwapPoolAmount), h.supply())

	record, err := h.engine.Record(h.ctx, h.swap)
	require.NoError(t, err)
	assert.True(t, record.IsInitialized)
	assert.Equal(t, h.tokenA, record.TokenA)
	assert.Equal(t, h.mintB, record.TokenBMint)
	assert.Equal(t, h.feeAccount, record.PoolFeeAccount)
	assert.Equal(t, testFees(), record.Fees)
	assert.Equal(t, curve.CurveTypeStable, record.SwapCurve.CurveType())

	authority, err := instruction.AuthorityID(testProgramID, h.swap, record.BumpSeed)
	require.NoError(t, err)
	assert.Equal(t, h.authority, authority)

	err = h.initialize(testFees(), curve.DefaultSwapCurve())
	assert.ErrorIs(t, err, swaperrors.ErrAlreadyInUse)
}

func TestInitializeRejects(t *testing.T) {
	stable := curve.NewSwapCurve(curve.NewStableCurve(100))

	tests := []struct {
		name   string
		mutate func(h *harness, fees *curve.Fees, swapCurve **curve.SwapCurve)
		want   error
	}{
		{
			name: "wrong authority",
			mutate: func(h *harness, _ *curve.Fees, _ **curve.SwapCurve) {
				h.authority = newKey()
			},
			want: swaperrors.ErrInvalidProgramAddress,
		},
		{
			name: "reserve not owned by authority",
			mutate: func(h *harness, _ *curve.Fees, _ **curve.SwapCurve) {
				require.NoError(h.t, h.ledger.SetOwner(h.tokenA, h.user))
			},
			want: swaperrors.ErrInvalidOwner,
		},
		{
			name: "repeated mint",
			mutate: func(h *harness, _ *curve.Fees, _ **curve.SwapCurve) {
				h.tokenB = newKey()
				require.NoError(h.t, h.ledger.CreateTokenAccount(h.tokenB, h.mintA, h.authority, reserveAmount))
			},
			want: swaperrors.ErrRepeatedMint,
		},
		{
			name: "empty reserve",
			mutate: func(h *harness, _ *curve.Fees, _ **curve.SwapCurve) {
				h.tokenB = newKey()
				require.NoError(h.t, h.ledger.CreateTokenAccount(h.tokenB, h.mintB, h.authority, 0))
			},
			want: swaperrors.ErrEmptySupply,
		},
		{
			name: "pool mint with supply",
			mutate: func(h *harness, _ *curve.Fees, _ **curve.SwapCurve) {
				require.NoError(h.t, h.ledger.MintTo(h.ctx, h.poolMint, h.hostFeeAccount, h.authority, 1))
			},
			want: swaperrors.ErrInvalidSupply,
		},
		{
			name: "fee account of another mint",
			mutate: func(h *harness, _ *curve.Fees, _ **curve.SwapCurve) {
				h.feeAccount = newKey()
				require.NoError(h.t, h.ledger.CreateTokenAccount(h.feeAccount, h.mintA, h.feeOwner, 0))
			},
			want: swaperrors.ErrIncorrectPoolMint,
		},
		{
			name: "invalid fee",
			mutate: func(_ *harness, fees *curve.Fees, _ **curve.SwapCurve) {
				fees.TradeFeeNumerator = fees.TradeFeeDenominator
			},
			want: swaperrors.ErrInvalidFee,
		},
		{
			name: "amp out of range",
			mutate: func(_ *harness, _ *curve.Fees, swapCurve **curve.SwapCurve) {
				*swapCurve = curve.NewSwapCurve(curve.NewStableCurve(0))
			},
			want: swaperrors.ErrInvalidCurve,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			fees, swapCurve := testFees(), stable
			tt.mutate(h, &fees, &swapCurve)

			err := h.initialize(fees, swapCurve)
			assert.ErrorIs(t, err, tt.want)

			data, err := h.ledger.AccountData(h.ctx, h.swap)
			require.NoError(t, err)
			assert.False(t, state.IsInitialized(data))
		})
	}
}

func TestInitializeConstraints(t *testing.T) {
	constraints := &state.SwapConstraints{
		ValidCurveTypes: []curve.CurveType{curve.CurveTypeStable},
		Fees:            testFees(),
	}

	h := newHarness(t, WithConstraints(constraints))
	constraints.OwnerKey = h.feeOwner

	fees := testFees()
	fees.TradeFeeNumerator = 1
	assert.ErrorIs(t, h.initialize(fees, curve.DefaultSwapCurve()), swaperrors.ErrInvalidFee)

	constraints.OwnerKey = newKey()
	assert.ErrorIs(t, h.initialize(testFees(), curve.DefaultSwapCurve()), swaperrors.ErrInvalidOwner)

	constraints.OwnerKey = h.feeOwner
	require.NoError(t, h.initialize(testFees(), curve.DefaultSwapCurve()))
}

func TestSwapConservesTokens(t *testing.T) {
	for _, direction := range []curve.TradeDirection{curve.AtoB, curve.BtoA} {
		t.Run(direction.String(), func(t *testing.T) {
			h := newHarness(t)
			h.mustInitialize()

			accounts := h.swapAccounts(direction)
			sourceBefore := h.balance(accounts.Source)
			destinationBefore := h.balance(accounts.Destination)
			swapSourceBefore := h.balance(accounts.SwapSource)
			swapDestinationBefore := h.balance(accounts.SwapDestination)
			supplyBefore := h.supply()

			receipt, err := h.engine.ExecuteSwap(h.ctx, instruction.Keys(accounts.AccountMetas()), &instruction.Swap{
				AmountIn:         1_000_000,
				MinimumAmountOut: 1,
			})
			require.NoError(t, err)

			assert.Equal(t, direction, receipt.Direction)
			assert.Equal(t, uint64(2_500), receipt.TradeFee)
			assert.Equal(t, uint64(500), receipt.OwnerFee)
			assert.LessOrEqual(t, receipt.AmountIn, uint64(1_000_000))
			assert.Greater(t, receipt.AmountOut, uint64(990_000))
			assert.Less(t, receipt.AmountOut, uint64(1_000_000))

			assert.Equal(t, sourceBefore-receipt.AmountIn, h.balance(accounts.Source))
			assert.Equal(t, swapSourceBefore+receipt.AmountIn, h.balance(accounts.SwapSource))
			assert.Equal(t, destinationBefore+receipt.AmountOut, h.balance(accounts.Destination))
			assert.Equal(t, swapDestinationBefore-receipt.AmountOut, h.balance(accounts.SwapDestination))

			assert.Greater(t, receipt.OwnerPoolTokens, uint64(0))
			assert.Zero(t, receipt.HostFeePoolTokens)
			assert.Equal(t, receipt.OwnerPoolTokens, h.balance(h.feeAccount))
			assert.Equal(t, supplyBefore+receipt.OwnerPoolTokens, h.supply())
		})
	}
}

func TestSwapHostFee(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	accounts := h.swapAccounts(curve.AtoB)
	accounts.HostFeeAccount = &h.hostFeeAccount

	receipt, err := h.engine.ExecuteSwap(h.ctx, instruction.Keys(accounts.AccountMetas()), &instruction.Swap{
		AmountIn:         10_000_000,
		MinimumAmountOut: 1,
	})
	require.NoError(t, err)

	total := receipt.OwnerPoolTokens + receipt.HostFeePoolTokens
	assert.Greater(t, receipt.HostFeePoolTokens, uint64(0))
	assert.Equal(t, total*20/100, receipt.HostFeePoolTokens)
	assert.Equal(t, receipt.HostFeePoolTokens, h.balance(h.hostFeeAccount))
	assert.Equal(t, receipt.OwnerPoolTokens, h.balance(h.feeAccount))
	assert.Equal(t, uint64(curve.InitialSwapPoolAmount)+total, h.supply())
}

func TestSwapRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *harness, accounts *instruction.SwapAccounts, ix *instruction.Swap)
		want   error
	}{
		{
			name: "slippage",
			mutate: func(_ *harness, _ *instruction.SwapAccounts, ix *instruction.Swap) {
				ix.MinimumAmountOut = ix.AmountIn
			},
			want: swaperrors.ErrExceededSlippage,
		},
		{
			name: "zero amount",
			mutate: func(_ *harness, _ *instruction.SwapAccounts, ix *instruction.Swap) {
				ix.AmountIn = 0
			},
			want: swaperrors.ErrZeroTradingTokens,
		},
		{
			name: "foreign swap account",
			mutate: func(_ *harness, accounts *instruction.SwapAccounts, _ *instruction.Swap) {
				accounts.SwapDestination = newKey()
			},
			want: swaperrors.ErrIncorrectSwapAccount,
		},
		{
			name: "source is pool reserve",
			mutate: func(h *harness, accounts *instruction.SwapAccounts, _ *instruction.Swap) {
				accounts.Source = h.tokenA
			},
			want: swaperrors.ErrInvalidInput,
		},
		{
			name: "wrong pool mint",
			mutate: func(_ *harness, accounts *instruction.SwapAccounts, _ *instruction.Swap) {
				accounts.PoolMint = newKey()
			},
			want: swaperrors.ErrIncorrectPoolMint,
		},
		{
			name: "wrong fee account",
			mutate: func(_ *harness, accounts *instruction.SwapAccounts, _ *instruction.Swap) {
				accounts.PoolFeeAccount = newKey()
			},
			want: swaperrors.ErrIncorrectFeeAccount,
		},
		{
			name: "wrong authority",
			mutate: func(_ *harness, accounts *instruction.SwapAccounts, _ *instruction.Swap) {
				accounts.Authority = newKey()
			},
			want: swaperrors.ErrInvalidProgramAddress,
		},
		{
			name: "wrong token program",
			mutate: func(_ *harness, accounts *instruction.SwapAccounts, _ *instruction.Swap) {
				accounts.TokenProgram = newKey()
			},
			want: swaperrors.ErrIncorrectTokenProgramID,
		},
		{
			name: "uninitialized pool",
			mutate: func(_ *harness, accounts *instruction.SwapAccounts, _ *instruction.Swap) {
				accounts.Swap = newKey()
			},
			want: swaperrors.ErrNotInitialized,
		},
		{
			name: "host fee account of another mint",
			mutate: func(h *harness, accounts *instruction.SwapAccounts, _ *instruction.Swap) {
				accounts.HostFeeAccount = &h.userA
			},
			want: swaperrors.ErrIncorrectPoolMint,
		},
		{
			name: "unfunded user",
			mutate: func(_ *harness, _ *instruction.SwapAccounts, ix *instruction.Swap) {
				ix.AmountIn = userAmount + 1
			},
			want: swaperrors.ErrInsufficientFunds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.mustInitialize()

			accounts := h.swapAccounts(curve.AtoB)
			ix := &instruction.Swap{AmountIn: 1_000_000, MinimumAmountOut: 1}
			tt.mutate(h, &accounts, ix)

			err := h.engine.Swap(h.ctx, instruction.Keys(accounts.AccountMetas()), ix)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, uint64(reserveAmount), h.balance(h.tokenB))
		})
	}
}

func TestSwapNotEnoughAccounts(t *testing.T) {
	h := newHarness(t)
	err := h.engine.Swap(h.ctx, []solana.PublicKey{h.swap}, &instruction.Swap{AmountIn: 1})
	assert.ErrorIs(t, err, swaperrors.ErrNotEnoughAccounts)
}

func TestDepositRoundsUp(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	const poolTokens = 10_000_001
	receipt, err := h.engine.ExecuteDeposit(h.ctx, instruction.Keys(h.depositAccounts().AccountMetas()), &instruction.DepositAllTokenTypes{
		PoolTokenAmount:     poolTokens,
		MaximumTokenAAmount: userAmount,
		MaximumTokenBAmount: userAmount,
	})
	require.NoError(t, err)

	// reserves equal supply, so every pool token is worth one of each token
	assert.Equal(t, uint64(poolTokens), receipt.TokenAAmount)
	assert.Equal(t, uint64(poolTokens), receipt.TokenBAmount)
	assert.Equal(t, uint64(userAmount-poolTokens), h.balance(h.userA))
	assert.Equal(t, uint64(reserveAmount+poolTokens), h.balance(h.tokenB))
	assert.Equal(t, uint64(curve.InitialSwapPoolAmount+poolTokens), h.balance(h.userPool))
	assert.Equal(t, uint64(curve.InitialSwapPoolAmount+poolTokens), h.supply())
}

func TestDepositCeilingAfterSwap(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	swapAccounts := h.swapAccounts(curve.AtoB)
	_, err := h.engine.ExecuteSwap(h.ctx, instruction.Keys(swapAccounts.AccountMetas()), &instruction.Swap{
		AmountIn:         3_333_333,
		MinimumAmountOut: 1,
	})
	require.NoError(t, err)

	reserveA, reserveB, supply := h.balance(h.tokenA), h.balance(h.tokenB), h.supply()
	const poolTokens = 7_777

	receipt, err := h.engine.ExecuteDeposit(h.ctx, instruction.Keys(h.depositAccounts().AccountMetas()), &instruction.DepositAllTokenTypes{
		PoolTokenAmount:     poolTokens,
		MaximumTokenAAmount: userAmount,
		MaximumTokenBAmount: userAmount,
	})
	require.NoError(t, err)

	ceilDiv := func(x, y uint64) uint64 { return (x + y - 1) / y }
	assert.Equal(t, ceilDiv(poolTokens*reserveA, supply), receipt.TokenAAmount)
	assert.Equal(t, ceilDiv(poolTokens*reserveB, supply), receipt.TokenBAmount)
}

func TestDepositRejects(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()
	keys := instruction.Keys(h.depositAccounts().AccountMetas())

	err := h.engine.DepositAllTokenTypes(h.ctx, keys, &instruction.DepositAllTokenTypes{
		PoolTokenAmount:     1_000,
		MaximumTokenAAmount: 999,
		MaximumTokenBAmount: 1_000,
	})
	assert.ErrorIs(t, err, swaperrors.ErrExceededSlippage)

	err = h.engine.DepositAllTokenTypes(h.ctx, keys, &instruction.DepositAllTokenTypes{
		PoolTokenAmount:     0,
		MaximumTokenAAmount: 1_000,
		MaximumTokenBAmount: 1_000,
	})
	assert.ErrorIs(t, err, swaperrors.ErrZeroTradingTokens)

	accounts := h.depositAccounts()
	accounts.SwapTokenA, accounts.SwapTokenB = accounts.SwapTokenB, accounts.SwapTokenA
	err = h.engine.DepositAllTokenTypes(h.ctx, instruction.Keys(accounts.AccountMetas()), &instruction.DepositAllTokenTypes{
		PoolTokenAmount:     1_000,
		MaximumTokenAAmount: 1_000,
		MaximumTokenBAmount: 1_000,
	})
	assert.ErrorIs(t, err, swaperrors.ErrIncorrectSwapAccount)

	assert.Equal(t, uint64(curve.InitialSwapPoolAmount), h.supply())
}

func TestWithdrawChargesOwnerFee(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	const poolTokens = 100_000_000
	receipt, err := h.engine.ExecuteWithdraw(h.ctx, instruction.Keys(h.withdrawAccounts().AccountMetas()), &instruction.WithdrawAllTokenTypes{
		PoolTokenAmount:     poolTokens,
		MinimumTokenAAmount: 1,
		MinimumTokenBAmount: 1,
	})
	require.NoError(t, err)

	// 1/100 goes to the fee account before burning
	assert.Equal(t, uint64(1_000_000), receipt.WithdrawFee)
	assert.Equal(t, uint64(99_000_000), receipt.PoolTokens)
	assert.Equal(t, uint64(99_000_000), receipt.TokenAAmount)
	assert.Equal(t, uint64(99_000_000), receipt.TokenBAmount)

	assert.Equal(t, uint64(1_000_000), h.balance(h.feeAccount))
	assert.Equal(t, uint64(curve.InitialSwapPoolAmount-poolTokens), h.balance(h.userPool))
	assert.Equal(t, uint64(curve.InitialSwapPoolAmount-99_000_000), h.supply())
	assert.Equal(t, uint64(reserveAmount-99_000_000), h.balance(h.tokenA))
	assert.Equal(t, uint64(userAmount+99_000_000), h.balance(h.userB))
}

func TestWithdrawFromFeeAccountIsFree(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	swapAccounts := h.swapAccounts(curve.AtoB)
	swapReceipt, err := h.engine.ExecuteSwap(h.ctx, instruction.Keys(swapAccounts.AccountMetas()), &instruction.Swap{
		AmountIn:         50_000_000,
		MinimumAmountOut: 1,
	})
	require.NoError(t, err)
	require.Greater(t, swapReceipt.OwnerPoolTokens, uint64(0))

	feeOwnerA, feeOwnerB := newKey(), newKey()
	require.NoError(t, h.ledger.CreateTokenAccount(feeOwnerA, h.mintA, h.feeOwner, 0))
	require.NoError(t, h.ledger.CreateTokenAccount(feeOwnerB, h.mintB, h.feeOwner, 0))

	accounts := h.withdrawAccounts()
	accounts.UserTransferAuthority = h.feeOwner
	accounts.Source = h.feeAccount
	accounts.DestinationTokenA, accounts.DestinationTokenB = feeOwnerA, feeOwnerB

	receipt, err := h.engine.ExecuteWithdraw(h.ctx, instruction.Keys(accounts.AccountMetas()), &instruction.WithdrawAllTokenTypes{
		PoolTokenAmount: swapReceipt.OwnerPoolTokens,
	})
	require.NoError(t, err)
	assert.Zero(t, receipt.WithdrawFee)
	assert.Equal(t, swapReceipt.OwnerPoolTokens, receipt.PoolTokens)
	assert.Zero(t, h.balance(h.feeAccount))
	assert.Equal(t, receipt.TokenAAmount, h.balance(feeOwnerA))
	assert.Equal(t, receipt.TokenBAmount, h.balance(feeOwnerB))
}

func TestDisabledWithdrawAndHostFees(t *testing.T) {
	h := newHarness(t)
	fees := testFees()
	fees.OwnerWithdrawFeeNumerator, fees.OwnerWithdrawFeeDenominator = 0, 0
	fees.HostFeeNumerator, fees.HostFeeDenominator = 0, 0
	require.NoError(t, h.initialize(fees, curve.NewSwapCurve(curve.NewStableCurve(100))))

	swapAccounts := h.swapAccounts(curve.AtoB)
	swapAccounts.HostFeeAccount = &h.hostFeeAccount
	swapReceipt, err := h.engine.ExecuteSwap(h.ctx, instruction.Keys(swapAccounts.AccountMetas()), &instruction.Swap{
		AmountIn:         10_000_000,
		MinimumAmountOut: 1,
	})
	require.NoError(t, err)
	assert.Zero(t, swapReceipt.HostFeePoolTokens)
	assert.Zero(t, h.balance(h.hostFeeAccount))
	assert.Greater(t, swapReceipt.OwnerPoolTokens, uint64(0))

	receipt, err := h.engine.ExecuteWithdraw(h.ctx, instruction.Keys(h.withdrawAccounts().AccountMetas()), &instruction.WithdrawAllTokenTypes{
		PoolTokenAmount:     1_000_000,
		MinimumTokenAAmount: 1,
		MinimumTokenBAmount: 1,
	})
	require.NoError(t, err)
	assert.Zero(t, receipt.WithdrawFee)
	assert.Equal(t, uint64(1_000_000), receipt.PoolTokens)
	assert.Equal(t, swapReceipt.OwnerPoolTokens, h.balance(h.feeAccount))
}

func TestWithdrawRejects(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()
	keys := instruction.Keys(h.withdrawAccounts().AccountMetas())

	err := h.engine.WithdrawAllTokenTypes(h.ctx, keys, &instruction.WithdrawAllTokenTypes{
		PoolTokenAmount:     1_000,
		MinimumTokenAAmount: 1_000,
		MinimumTokenBAmount: 1,
	})
	assert.ErrorIs(t, err, swaperrors.ErrExceededSlippage)

	err = h.engine.WithdrawAllTokenTypes(h.ctx, keys, &instruction.WithdrawAllTokenTypes{
		PoolTokenAmount: 0,
	})
	assert.ErrorIs(t, err, swaperrors.ErrZeroTradingTokens)

	accounts := h.withdrawAccounts()
	accounts.FeeAccount = h.hostFeeAccount
	err = h.engine.WithdrawAllTokenTypes(h.ctx, instruction.Keys(accounts.AccountMetas()), &instruction.WithdrawAllTokenTypes{
		PoolTokenAmount: 1_000,
	})
	assert.ErrorIs(t, err, swaperrors.ErrIncorrectFeeAccount)

	assert.Equal(t, uint64(curve.InitialSwapPoolAmount), h.supply())
}

func TestRoundTripNeverProfits(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	const poolTokens = 5_000_000
	deposit, err := h.engine.ExecuteDeposit(h.ctx, instruction.Keys(h.depositAccounts().AccountMetas()), &instruction.DepositAllTokenTypes{
		PoolTokenAmount:     poolTokens,
		MaximumTokenAAmount: userAmount,
		MaximumTokenBAmount: userAmount,
	})
	require.NoError(t, err)

	withdraw, err := h.engine.ExecuteWithdraw(h.ctx, instruction.Keys(h.withdrawAccounts().AccountMetas()), &instruction.WithdrawAllTokenTypes{
		PoolTokenAmount: poolTokens,
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, withdraw.TokenAAmount, deposit.TokenAAmount)
	assert.LessOrEqual(t, withdraw.TokenBAmount, deposit.TokenBAmount)
	assert.LessOrEqual(t, h.balance(h.userA), uint64(userAmount))
	assert.LessOrEqual(t, h.balance(h.userB), uint64(userAmount))
}

func TestEngineRecordsMetrics(t *testing.T) {
	recorder := metrics.NewLogMetrics(common.NopLogger())
	h := newHarness(t, WithMetrics(recorder))
	h.mustInitialize()

	accounts := h.swapAccounts(curve.AtoB)
	receipt, err := h.engine.ExecuteSwap(h.ctx, instruction.Keys(accounts.AccountMetas()), &instruction.Swap{
		AmountIn:         1_000_000,
		MinimumAmountOut: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), recorder.Counter(metrics.MetricPoolsInitialized))
	assert.Equal(t, uint64(1), recorder.Counter(metrics.MetricSwapsExecuted))
	assert.Equal(t, receipt.AmountOut, recorder.Counter(metrics.MetricSwapDestinationAmount))
	assert.Equal(t, uint64(2_500), recorder.Counter(metrics.MetricTradeFeesCollected))
	assert.Equal(t, float64(h.supply()), recorder.Gauge(metrics.MetricPoolTokenSupply))
}
