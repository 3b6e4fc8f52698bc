package pool

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/internal/metrics"
	"github.com/lugondev/go-tokenswap/pkg/curve"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
)

// SwapReceipt summarizes an executed trade.
type SwapReceipt struct {
	Direction         curve.TradeDirection
	AmountIn          uint64
	AmountOut         uint64
	TradeFee          uint64
	OwnerFee          uint64
	OwnerPoolTokens   uint64
	HostFeePoolTokens uint64
}

// Swap trades ix.AmountIn of the source token for the destination token.
// The owner's share of the fee is minted to the pool fee account as pool
// tokens, a part of which goes to the host fee account when one is given.
func (e *Engine) Swap(ctx context.Context, keys []solana.PublicKey, ix *instruction.Swap) error {
	_, err := e.ExecuteSwap(ctx, keys, ix)
	return err
}

// ExecuteSwap is Swap returning the receipt.
func (e *Engine) ExecuteSwap(ctx context.Context, keys []solana.PublicKey, ix *instruction.Swap) (*SwapReceipt, error) {
	accounts, err := instruction.ParseSwapAccounts(keys)
	if err != nil {
		return nil, err
	}
	record, err := e.loadSwap(ctx, accounts.Swap, accounts.Authority, accounts.TokenProgram)
	if err != nil {
		return nil, err
	}

	var direction curve.TradeDirection
	switch {
	case accounts.SwapSource == record.TokenA && accounts.SwapDestination == record.TokenB:
		direction = curve.AtoB
	case accounts.SwapSource == record.TokenB && accounts.SwapDestination == record.TokenA:
		direction = curve.BtoA
	default:
		return nil, swaperrors.ErrIncorrectSwapAccount
	}
	if accounts.Source == accounts.SwapSource || accounts.Destination == accounts.SwapDestination {
		return nil, swaperrors.ErrInvalidInput
	}
	if accounts.PoolMint != record.PoolMint {
		return nil, swaperrors.ErrIncorrectPoolMint
	}
	if accounts.PoolFeeAccount != record.PoolFeeAccount {
		return nil, swaperrors.ErrIncorrectFeeAccount
	}
	if accounts.HostFeeAccount != nil {
		host, err := e.ledger.TokenAccount(ctx, *accounts.HostFeeAccount)
		if err != nil {
			return nil, err
		}
		if host.Mint != record.PoolMint {
			return nil, swaperrors.ErrIncorrectPoolMint
		}
	}

	swapSource, err := e.ledger.TokenAccount(ctx, accounts.SwapSource)
	if err != nil {
		return nil, err
	}
	swapDestination, err := e.ledger.TokenAccount(ctx, accounts.SwapDestination)
	if err != nil {
		return nil, err
	}
	poolMint, err := e.ledger.Mint(ctx, accounts.PoolMint)
	if err != nil {
		return nil, err
	}

	result, ok := record.SwapCurve.Swap(
		u256(ix.AmountIn),
		u256(swapSource.Amount),
		u256(swapDestination.Amount),
		direction,
		&record.Fees,
	)
	if !ok {
		return nil, swaperrors.ErrZeroTradingTokens
	}
	if result.DestinationAmountSwapped.IsZero() {
		return nil, swaperrors.ErrZeroTradingTokens
	}
	amountOut, err := toU64(result.DestinationAmountSwapped)
	if err != nil {
		return nil, err
	}
	if amountOut < ix.MinimumAmountOut {
		return nil, swaperrors.ErrExceededSlippage.WithDetails(map[string]any{
			"amount_out":         amountOut,
			"minimum_amount_out": ix.MinimumAmountOut,
		})
	}
	amountIn, err := toU64(result.SourceAmountSwapped)
	if err != nil {
		return nil, err
	}

	tokenAAmount, tokenBAmount := result.NewSwapSourceAmount, result.NewSwapDestinationAmount
	if direction == curve.BtoA {
		tokenAAmount, tokenBAmount = tokenBAmount, tokenAAmount
	}

	receipt := &SwapReceipt{
		Direction: direction,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		TradeFee:  result.TradeFee.Uint64(),
		OwnerFee:  result.OwnerFee.Uint64(),
	}

	if err := e.ledger.Transfer(ctx, accounts.Source, accounts.SwapSource, accounts.UserTransferAuthority, amountIn); err != nil {
		return nil, err
	}

	poolTokens, ok := record.SwapCurve.Calculator().WithdrawSingleTokenTypeExactAmountOut(
		result.OwnerFee,
		tokenAAmount,
		tokenBAmount,
		u256(poolMint.Supply),
		direction,
		curve.Floor,
	)
	if !ok {
		return nil, swaperrors.ErrFeeCalculationFailure
	}
	if !poolTokens.IsZero() {
		if err := e.payOwnerFee(ctx, accounts, &record.Fees, poolTokens, receipt); err != nil {
			return nil, err
		}
	}

	if err := e.ledger.Transfer(ctx, accounts.SwapDestination, accounts.Destination, accounts.Authority, amountOut); err != nil {
		return nil, err
	}

	e.count(ctx, metrics.MetricSwapsExecuted, 1)
	e.count(ctx, metrics.MetricSwapSourceAmount, amountIn)
	e.count(ctx, metrics.MetricSwapDestinationAmount, amountOut)
	e.count(ctx, metrics.MetricTradeFeesCollected, receipt.TradeFee)
	e.count(ctx, metrics.MetricOwnerFeesCollected, receipt.OwnerFee)
	e.reportSupply(ctx, accounts.PoolMint)
	e.GetLogger().Debug("swap executed",
		"swap", accounts.Swap,
		"direction", direction,
		"amount_in", amountIn,
		"amount_out", amountOut,
		"owner_pool_tokens", receipt.OwnerPoolTokens,
	)
	return receipt, nil
}

// payOwnerFee mints the owner fee in pool tokens, splitting off the host's
// share first.
func (e *Engine) payOwnerFee(ctx context.Context, accounts instruction.SwapAccounts, fees *curve.Fees, poolTokens *uint256.Int, receipt *SwapReceipt) error {
	if accounts.HostFeeAccount != nil && fees.HostFeeEnabled() {
		hostFee, ok := fees.HostFee(poolTokens)
		if !ok {
			return swaperrors.ErrFeeCalculationFailure
		}
		if !hostFee.IsZero() {
			if hostFee.Gt(poolTokens) {
				return swaperrors.ErrFeeCalculationFailure
			}
			remaining := new(uint256.Int).Sub(poolTokens, hostFee)
			amount, err := toU64(hostFee)
			if err != nil {
				return err
			}
			if err := e.ledger.MintTo(ctx, accounts.PoolMint, *accounts.HostFeeAccount, accounts.Authority, amount); err != nil {
				return err
			}
			receipt.HostFeePoolTokens = amount
			poolTokens = remaining
		}
	}

	amount, err := toU64(poolTokens)
	if err != nil {
		return err
	}
	if err := e.ledger.MintTo(ctx, accounts.PoolMint, accounts.PoolFeeAccount, accounts.Authority, amount); err != nil {
		return err
	}
	receipt.OwnerPoolTokens = amount
	return nil
}
