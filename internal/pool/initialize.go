package pool

import (
	"context"

	"github.com/gagliardetto/solana-go"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/internal/metrics"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
	"github.com/lugondev/go-tokenswap/pkg/state"
)

// Initialize creates a pool over two funded token accounts owned by the
// swap authority and mints the curve's initial supply to the destination.
func (e *Engine) Initialize(ctx context.Context, keys []solana.PublicKey, ix *instruction.Initialize) error {
	accounts, err := instruction.ParseInitializeAccounts(keys)
	if err != nil {
		return err
	}
	if ix.SwapCurve == nil {
		return swaperrors.ErrInvalidCurve
	}

	data, err := e.ledger.AccountData(ctx, accounts.Swap)
	if err != nil {
		return err
	}
	if state.IsInitialized(data) {
		return swaperrors.ErrAlreadyInUse
	}

	authority, bump, err := instruction.FindAuthority(e.programID, accounts.Swap)
	if err != nil {
		return err
	}
	if accounts.Authority != authority {
		return swaperrors.ErrInvalidProgramAddress
	}
	if accounts.TokenProgram != e.tokenProgramID {
		return swaperrors.ErrIncorrectTokenProgramID
	}

	tokenA, err := e.ledger.TokenAccount(ctx, accounts.TokenA)
	if err != nil {
		return err
	}
	tokenB, err := e.ledger.TokenAccount(ctx, accounts.TokenB)
	if err != nil {
		return err
	}
	feeAccount, err := e.ledger.TokenAccount(ctx, accounts.FeeAccount)
	if err != nil {
		return err
	}
	destination, err := e.ledger.TokenAccount(ctx, accounts.Destination)
	if err != nil {
		return err
	}
	poolMint, err := e.ledger.Mint(ctx, accounts.PoolMint)
	if err != nil {
		return err
	}

	if tokenA.Owner != authority || tokenB.Owner != authority {
		return swaperrors.ErrInvalidOwner
	}
	if destination.Owner == authority {
		return swaperrors.ErrInvalidOwner.WithDetails(map[string]any{"destination": accounts.Destination.String()})
	}
	if poolMint.MintAuthority != authority {
		return swaperrors.ErrInvalidOwner.WithDetails(map[string]any{"pool_mint": accounts.PoolMint.String()})
	}
	if tokenA.Mint == tokenB.Mint {
		return swaperrors.ErrRepeatedMint
	}
	if poolMint.Supply != 0 {
		return swaperrors.ErrInvalidSupply
	}
	if feeAccount.Mint != accounts.PoolMint || destination.Mint != accounts.PoolMint {
		return swaperrors.ErrIncorrectPoolMint
	}

	if e.constraints != nil && feeAccount.Owner != e.constraints.OwnerKey {
		return swaperrors.ErrInvalidOwner.WithDetails(map[string]any{"fee_account": accounts.FeeAccount.String()})
	}
	if err := e.constraints.ValidateCurve(ix.SwapCurve); err != nil {
		return err
	}
	if err := e.constraints.ValidateFees(ix.Fees); err != nil {
		return err
	}
	if err := ix.Fees.Validate(); err != nil {
		return err
	}
	if err := ix.SwapCurve.Validate(); err != nil {
		return err
	}

	calculator := ix.SwapCurve.Calculator()
	if err := calculator.ValidateSupply(u256(tokenA.Amount), u256(tokenB.Amount)); err != nil {
		return err
	}

	initialAmount, err := toU64(calculator.NewPoolSupply())
	if err != nil {
		return err
	}
	if err := e.ledger.MintTo(ctx, accounts.PoolMint, accounts.Destination, authority, initialAmount); err != nil {
		return err
	}

	record := &state.SwapV1{
		IsInitialized:  true,
		BumpSeed:       bump,
		TokenProgramID: accounts.TokenProgram,
		TokenA:         accounts.TokenA,
		TokenB:         accounts.TokenB,
		PoolMint:       accounts.PoolMint,
		TokenAMint:     tokenA.Mint,
		TokenBMint:     tokenB.Mint,
		PoolFeeAccount: accounts.FeeAccount,
		Fees:           ix.Fees,
		SwapCurve:      ix.SwapCurve,
	}
	packed, err := record.Pack()
	if err != nil {
		return err
	}
	if err := e.ledger.SetAccountData(ctx, accounts.Swap, packed); err != nil {
		return err
	}

	e.count(ctx, metrics.MetricPoolsInitialized, 1)
	e.reportSupply(ctx, accounts.PoolMint)
	e.GetLogger().Debug("pool initialized",
		"swap", accounts.Swap,
		"curve", ix.SwapCurve,
		"pool_tokens", initialAmount,
	)
	return nil
}
