package pool

import (
	"context"

	"github.com/gagliardetto/solana-go"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/internal/metrics"
	"github.com/lugondev/go-tokenswap/pkg/curve"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
	"github.com/lugondev/go-tokenswap/pkg/state"
)

// LiquidityReceipt records the token amounts moved for a pool token amount.
type LiquidityReceipt struct {
	PoolTokens   uint64
	TokenAAmount uint64
	TokenBAmount uint64
	WithdrawFee  uint64
}

// reserves is a snapshot of both pool token accounts and the pool supply.
type reserves struct {
	a, b   uint64
	supply uint64
}

func (e *Engine) reserves(ctx context.Context, record *state.SwapV1, swapTokenA, swapTokenB, poolMint solana.PublicKey) (reserves, error) {
	if swapTokenA != record.TokenA || swapTokenB != record.TokenB {
		return reserves{}, swaperrors.ErrIncorrectSwapAccount
	}
	if poolMint != record.PoolMint {
		return reserves{}, swaperrors.ErrIncorrectPoolMint
	}
	tokenA, err := e.ledger.TokenAccount(ctx, swapTokenA)
	if err != nil {
		return reserves{}, err
	}
	tokenB, err := e.ledger.TokenAccount(ctx, swapTokenB)
	if err != nil {
		return reserves{}, err
	}
	mint, err := e.ledger.Mint(ctx, poolMint)
	if err != nil {
		return reserves{}, err
	}
	return reserves{a: tokenA.Amount, b: tokenB.Amount, supply: mint.Supply}, nil
}

// tradingTokens converts pool tokens into both reserve amounts.
func tradingTokens(calculator curve.Calculator, poolTokens uint64, r reserves, round curve.RoundDirection) (uint64, uint64, error) {
	result, ok := calculator.PoolTokensToTradingTokens(u256(poolTokens), u256(r.supply), u256(r.a), u256(r.b), round)
	if !ok {
		return 0, 0, swaperrors.ErrZeroTradingTokens
	}
	a, err := toU64(result.TokenAAmount)
	if err != nil {
		return 0, 0, err
	}
	b, err := toU64(result.TokenBAmount)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// DepositAllTokenTypes deposits both tokens in the current pool ratio for
// exactly ix.PoolTokenAmount pool tokens. Token amounts are rounded up.
func (e *Engine) DepositAllTokenTypes(ctx context.Context, keys []solana.PublicKey, ix *instruction.DepositAllTokenTypes) error {
	_, err := e.ExecuteDeposit(ctx, keys, ix)
	return err
}

// ExecuteDeposit is DepositAllTokenTypes returning the receipt.
func (e *Engine) ExecuteDeposit(ctx context.Context, keys []solana.PublicKey, ix *instruction.DepositAllTokenTypes) (*LiquidityReceipt, error) {
	accounts, err := instruction.ParseDepositAllTokenTypesAccounts(keys)
	if err != nil {
		return nil, err
	}
	record, err := e.loadSwap(ctx, accounts.Swap, accounts.Authority, accounts.TokenProgram)
	if err != nil {
		return nil, err
	}
	calculator := record.SwapCurve.Calculator()
	if !calculator.AllowsDeposits() {
		return nil, swaperrors.ErrUnsupportedCurveOperation
	}
	if accounts.DepositTokenA == accounts.SwapTokenA || accounts.DepositTokenB == accounts.SwapTokenB {
		return nil, swaperrors.ErrInvalidInput
	}
	r, err := e.reserves(ctx, record, accounts.SwapTokenA, accounts.SwapTokenB, accounts.PoolMint)
	if err != nil {
		return nil, err
	}

	amountA, amountB, err := tradingTokens(calculator, ix.PoolTokenAmount, r, curve.Ceiling)
	if err != nil {
		return nil, err
	}
	if amountA > ix.MaximumTokenAAmount || amountB > ix.MaximumTokenBAmount {
		return nil, swaperrors.ErrExceededSlippage.WithDetails(map[string]any{
			"token_a_amount": amountA,
			"token_b_amount": amountB,
		})
	}
	if amountA == 0 || amountB == 0 {
		return nil, swaperrors.ErrZeroTradingTokens
	}

	if err := e.ledger.Transfer(ctx, accounts.DepositTokenA, accounts.SwapTokenA, accounts.UserTransferAuthority, amountA); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(ctx, accounts.DepositTokenB, accounts.SwapTokenB, accounts.UserTransferAuthority, amountB); err != nil {
		return nil, err
	}
	if err := e.ledger.MintTo(ctx, accounts.PoolMint, accounts.Destination, accounts.Authority, ix.PoolTokenAmount); err != nil {
		return nil, err
	}

	e.count(ctx, metrics.MetricDepositsExecuted, 1)
	e.reportSupply(ctx, accounts.PoolMint)
	e.GetLogger().Debug("deposit executed",
		"swap", accounts.Swap,
		"pool_tokens", ix.PoolTokenAmount,
		"token_a", amountA,
		"token_b", amountB,
	)
	return &LiquidityReceipt{PoolTokens: ix.PoolTokenAmount, TokenAAmount: amountA, TokenBAmount: amountB}, nil
}

// WithdrawAllTokenTypes burns pool tokens for both reserve tokens. The owner
// withdraw fee is taken in pool tokens first, unless the pool fee account is
// itself withdrawing; token amounts are rounded down.
func (e *Engine) WithdrawAllTokenTypes(ctx context.Context, keys []solana.PublicKey, ix *instruction.WithdrawAllTokenTypes) error {
	_, err := e.ExecuteWithdraw(ctx, keys, ix)
	return err
}

// ExecuteWithdraw is WithdrawAllTokenTypes returning the receipt.
func (e *Engine) ExecuteWithdraw(ctx context.Context, keys []solana.PublicKey, ix *instruction.WithdrawAllTokenTypes) (*LiquidityReceipt, error) {
	accounts, err := instruction.ParseWithdrawAllTokenTypesAccounts(keys)
	if err != nil {
		return nil, err
	}
	record, err := e.loadSwap(ctx, accounts.Swap, accounts.Authority, accounts.TokenProgram)
	if err != nil {
		return nil, err
	}
	if accounts.FeeAccount != record.PoolFeeAccount {
		return nil, swaperrors.ErrIncorrectFeeAccount
	}
	if accounts.DestinationTokenA == accounts.SwapTokenA || accounts.DestinationTokenB == accounts.SwapTokenB {
		return nil, swaperrors.ErrInvalidInput
	}
	r, err := e.reserves(ctx, record, accounts.SwapTokenA, accounts.SwapTokenB, accounts.PoolMint)
	if err != nil {
		return nil, err
	}

	var withdrawFee uint64
	if accounts.Source != record.PoolFeeAccount && record.Fees.OwnerWithdrawFeeEnabled() {
		fee, ok := record.Fees.OwnerWithdrawFee(u256(ix.PoolTokenAmount))
		if !ok {
			return nil, swaperrors.ErrFeeCalculationFailure
		}
		withdrawFee = fee.Uint64()
	}
	if withdrawFee > ix.PoolTokenAmount {
		return nil, swaperrors.ErrCalculationFailure
	}
	poolTokens := ix.PoolTokenAmount - withdrawFee

	amountA, amountB, err := tradingTokens(record.SwapCurve.Calculator(), poolTokens, r, curve.Floor)
	if err != nil {
		return nil, err
	}
	amountA = min(amountA, r.a)
	amountB = min(amountB, r.b)
	if amountA < ix.MinimumTokenAAmount || amountB < ix.MinimumTokenBAmount {
		return nil, swaperrors.ErrExceededSlippage.WithDetails(map[string]any{
			"token_a_amount": amountA,
			"token_b_amount": amountB,
		})
	}
	if (amountA == 0 && r.a != 0) || (amountB == 0 && r.b != 0) {
		return nil, swaperrors.ErrZeroTradingTokens
	}

	if withdrawFee > 0 {
		if err := e.ledger.Transfer(ctx, accounts.Source, accounts.FeeAccount, accounts.UserTransferAuthority, withdrawFee); err != nil {
			return nil, err
		}
	}
	if err := e.ledger.Burn(ctx, accounts.Source, accounts.PoolMint, accounts.UserTransferAuthority, poolTokens); err != nil {
		return nil, err
	}
	if amountA > 0 {
		if err := e.ledger.Transfer(ctx, accounts.SwapTokenA, accounts.DestinationTokenA, accounts.Authority, amountA); err != nil {
			return nil, err
		}
	}
	if amountB > 0 {
		if err := e.ledger.Transfer(ctx, accounts.SwapTokenB, accounts.DestinationTokenB, accounts.Authority, amountB); err != nil {
			return nil, err
		}
	}

	e.count(ctx, metrics.MetricWithdrawalsExecuted, 1)
	e.reportSupply(ctx, accounts.PoolMint)
	e.GetLogger().Debug("withdraw executed",
		"swap", accounts.Swap,
		"pool_tokens", poolTokens,
		"withdraw_fee", withdrawFee,
		"token_a", amountA,
		"token_b", amountB,
	)
	return &LiquidityReceipt{
		PoolTokens:   poolTokens,
		TokenAAmount: amountA,
		TokenBAmount: amountB,
		WithdrawFee:  withdrawFee,
	}, nil
}
