package instruction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/pkg/curve"
)

// InitializeAccounts lists the accounts of an Initialize instruction in wire
// order.
type InitializeAccounts struct {
	Swap         solana.PublicKey // writable, signer
	Authority    solana.PublicKey
	TokenA       solana.PublicKey
	TokenB       solana.PublicKey
	PoolMint     solana.PublicKey // writable
	FeeAccount   solana.PublicKey
	Destination  solana.PublicKey // writable
	TokenProgram solana.PublicKey
}

// SwapAccounts lists the accounts of a Swap instruction in wire order.
// HostFeeAccount is optional and appended last when set.
type SwapAccounts struct {
	Swap                  solana.PublicKey
	Authority             solana.PublicKey
	UserTransferAuthority solana.PublicKey // signer
	Source                solana.PublicKey // writable
	SwapSource            solana.PublicKey // writable
	SwapDestination       solana.PublicKey // writable
	Destination           solana.PublicKey // writable
	PoolMint              solana.PublicKey // writable
	PoolFeeAccount        solana.PublicKey // writable
	TokenProgram          solana.PublicKey
	HostFeeAccount        *solana.PublicKey
}

// DepositAllTokenTypesAccounts lists the accounts of a DepositAllTokenTypes
// instruction in wire order.
type DepositAllTokenTypesAccounts struct {
	Swap                  solana.PublicKey
	Authority             solana.PublicKey
	UserTransferAuthority solana.PublicKey // signer
	DepositTokenA         solana.PublicKey // writable
	DepositTokenB         solana.PublicKey // writable
	SwapTokenA            solana.PublicKey // writable
	SwapTokenB            solana.PublicKey // writable
	PoolMint              solana.PublicKey // writable
	Destination           solana.PublicKey // writable
	TokenProgram          solana.PublicKey
}

// WithdrawAllTokenTypesAccounts lists the accounts of a WithdrawAllTokenTypes
// instruction in wire order.
type WithdrawAllTokenTypesAccounts struct {
	Swap                  solana.PublicKey
	Authority             solana.PublicKey
	UserTransferAuthority solana.PublicKey // signer
	PoolMint              solana.PublicKey // writable
	Source                solana.PublicKey // writable
	SwapTokenA            solana.PublicKey // writable
	SwapTokenB            solana.PublicKey // writable
	DestinationTokenA     solana.PublicKey // writable
	DestinationTokenB     solana.PublicKey // writable
	FeeAccount            solana.PublicKey // writable
	TokenProgram          solana.PublicKey
}

func (a InitializeAccounts) AccountMetas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Swap, true, true),
		solana.NewAccountMeta(a.Authority, false, false),
		solana.NewAccountMeta(a.TokenA, false, false),
		solana.NewAccountMeta(a.TokenB, false, false),
		solana.NewAccountMeta(a.PoolMint, true, false),
		solana.NewAccountMeta(a.FeeAccount, false, false),
		solana.NewAccountMeta(a.Destination, true, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
	}
}

func (a SwapAccounts) AccountMetas() solana.AccountMetaSlice {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Swap, false, false),
		solana.NewAccountMeta(a.Authority, false, false),
		solana.NewAccountMeta(a.UserTransferAuthority, false, true),
		solana.NewAccountMeta(a.Source, true, false),
		solana.NewAccountMeta(a.SwapSource, true, false),
		solana.NewAccountMeta(a.SwapDestination, true, false),
		solana.NewAccountMeta(a.Destination, true, false),
		solana.NewAccountMeta(a.PoolMint, true, false),
		solana.NewAccountMeta(a.PoolFeeAccount, true, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
	}
	if a.HostFeeAccount != nil {
		metas = append(metas, solana.NewAccountMeta(*a.HostFeeAccount, true, false))
	}
	return metas
}

func (a DepositAllTokenTypesAccounts) AccountMetas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Swap, false, false),
		solana.NewAccountMeta(a.Authority, false, false),
		solana.NewAccountMeta(a.UserTransferAuthority, false, true),
		solana.NewAccountMeta(a.DepositTokenA, true, false),
		solana.NewAccountMeta(a.DepositTokenB, true, false),
		solana.NewAccountMeta(a.SwapTokenA, true, false),
		solana.NewAccountMeta(a.SwapTokenB, true, false),
		solana.NewAccountMeta(a.PoolMint, true, false),
		solana.NewAccountMeta(a.Destination, true, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
	}
}

func (a WithdrawAllTokenTypesAccounts) AccountMetas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Swap, false, false),
		solana.NewAccountMeta(a.Authority, false, false),
		solana.NewAccountMeta(a.UserTransferAuthority, false, true),
		solana.NewAccountMeta(a.PoolMint, true, false),
		solana.NewAccountMeta(a.Source, true, false),
		solana.NewAccountMeta(a.SwapTokenA, true, false),
		solana.NewAccountMeta(a.SwapTokenB, true, false),
		solana.NewAccountMeta(a.DestinationTokenA, true, false),
		solana.NewAccountMeta(a.DestinationTokenB, true, false),
		solana.NewAccountMeta(a.FeeAccount, true, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
	}
}

// Keys returns the account keys of metas in order.
func Keys(metas []*solana.AccountMeta) []solana.PublicKey {
	keys := make([]solana.PublicKey, len(metas))
	for i, meta := range metas {
		keys[i] = meta.PublicKey
	}
	return keys
}

func requireAccounts(name string, keys []solana.PublicKey, n int) error {
	if len(keys) < n {
		return swaperrors.ErrNotEnoughAccounts.WithCause(fmt.Errorf("%s requires %d accounts, got %d", name, n, len(keys)))
	}
	return nil
}

// ParseInitializeAccounts maps an ordered key list onto InitializeAccounts.
func ParseInitializeAccounts(keys []solana.PublicKey) (InitializeAccounts, error) {
	if err := requireAccounts("Initialize", keys, 8); err != nil {
		return InitializeAccounts{}, err
	}
	return InitializeAccounts{
		Swap:         keys[0],
		Authority:    keys[1],
		TokenA:       keys[2],
		TokenB:       keys[3],
		PoolMint:     keys[4],
		FeeAccount:   keys[5],
		Destination:  keys[6],
		TokenProgram: keys[7],
	}, nil
}

// ParseSwapAccounts maps an ordered key list onto SwapAccounts. An eleventh
// key is taken as the host fee account.
func ParseSwapAccounts(keys []solana.PublicKey) (SwapAccounts, error) {
	if err := requireAccounts("Swap", keys, 10); err != nil {
		return SwapAccounts{}, err
	}
	a := SwapAccounts{
		Swap:                  keys[0],
		Authority:             keys[1],
		UserTransferAuthority: keys[2],
		Source:                keys[3],
		SwapSource:            keys[4],
		SwapDestination:       keys[5],
		Destination:           keys[6],
		PoolMint:              keys[7],
		PoolFeeAccount:        keys[8],
		TokenProgram:          keys[9],
	}
	if len(keys) > 10 {
		host := keys[10]
		a.HostFeeAccount = &host
	}
	return a, nil
}

// ParseDepositAllTokenTypesAccounts maps an ordered key list onto
// DepositAllTokenTypesAccounts.
func ParseDepositAllTokenTypesAccounts(keys []solana.PublicKey) (DepositAllTokenTypesAccounts, error) {
	if err := requireAccounts("DepositAllTokenTypes", keys, 10); err != nil {
		return DepositAllTokenTypesAccounts{}, err
	}
	return DepositAllTokenTypesAccounts{
		Swap:                  keys[0],
		Authority:             keys[1],
		UserTransferAuthority: keys[2],
		DepositTokenA:         keys[3],
		DepositTokenB:         keys[4],
		SwapTokenA:            keys[5],
		SwapTokenB:            keys[6],
		PoolMint:              keys[7],
		Destination:           keys[8],
		TokenProgram:          keys[9],
	}, nil
}

// ParseWithdrawAllTokenTypesAccounts maps an ordered key list onto
// WithdrawAllTokenTypesAccounts.
func ParseWithdrawAllTokenTypesAccounts(keys []solana.PublicKey) (WithdrawAllTokenTypesAccounts, error) {
	if err := requireAccounts("WithdrawAllTokenTypes", keys, 11); err != nil {
		return WithdrawAllTokenTypesAccounts{}, err
	}
	return WithdrawAllTokenTypesAccounts{
		Swap:                  keys[0],
		Authority:             keys[1],
		UserTransferAuthority: keys[2],
		PoolMint:              keys[3],
		Source:                keys[4],
		SwapTokenA:            keys[5],
		SwapTokenB:            keys[6],
		DestinationTokenA:     keys[7],
		DestinationTokenB:     keys[8],
		FeeAccount:            keys[9],
		TokenProgram:          keys[10],
	}, nil
}

func newInstruction(programID solana.PublicKey, metas solana.AccountMetaSlice, ix Instruction) (solana.Instruction, error) {
	data := ix.Pack()
	if data == nil {
		return nil, swaperrors.ErrInvalidInstruction.WithCause(fmt.Errorf("cannot encode %s", ix.Tag()))
	}
	return solana.NewInstruction(programID, metas, data), nil
}

// NewInitializeInstruction builds an Initialize instruction.
func NewInitializeInstruction(programID solana.PublicKey, accounts InitializeAccounts, fees curve.Fees, swapCurve *curve.SwapCurve) (solana.Instruction, error) {
	return newInstruction(programID, accounts.AccountMetas(), &Initialize{Fees: fees, SwapCurve: swapCurve})
}

// NewSwapInstruction builds a Swap instruction.
func NewSwapInstruction(programID solana.PublicKey, accounts SwapAccounts, amountIn, minimumAmountOut uint64) (solana.Instruction, error) {
	return newInstruction(programID, accounts.AccountMetas(), &Swap{AmountIn: amountIn, MinimumAmountOut: minimumAmountOut})
}

// NewDepositAllTokenTypesInstruction builds a DepositAllTokenTypes instruction.
func NewDepositAllTokenTypesInstruction(programID solana.PublicKey, accounts DepositAllTokenTypesAccounts, poolTokenAmount, maximumTokenAAmount, maximumTokenBAmount uint64) (solana.Instruction, error) {
	return newInstruction(programID, accounts.AccountMetas(), &DepositAllTokenTypes{
		PoolTokenAmount:     poolTokenAmount,
		MaximumTokenAAmount: maximumTokenAAmount,
		MaximumTokenBAmount: maximumTokenBAmount,
	})
}

// NewWithdrawAllTokenTypesInstruction builds a WithdrawAllTokenTypes
// instruction.
func NewWithdrawAllTokenTypesInstruction(programID solana.PublicKey, accounts WithdrawAllTokenTypesAccounts, poolTokenAmount, minimumTokenAAmount, minimumTokenBAmount uint64) (solana.Instruction, error) {
	return newInstruction(programID, accounts.AccountMetas(), &WithdrawAllTokenTypes{
		PoolTokenAmount:     poolTokenAmount,
		MinimumTokenAAmount: minimumTokenAAmount,
		MinimumTokenBAmount: minimumTokenBAmount,
	})
}

// AuthorityID derives the swap authority from the swap account and its bump
// seed.
func AuthorityID(programID, swap solana.PublicKey, bumpSeed uint8) (solana.PublicKey, error) {
	authority, err := solana.CreateProgramAddress([][]byte{swap.Bytes(), {bumpSeed}}, programID)
	if err != nil {
		return solana.PublicKey{}, swaperrors.ErrInvalidProgramAddress.WithCause(err)
	}
	return authority, nil
}

// FindAuthority searches for the bump seed that yields a valid swap authority.
func FindAuthority(programID, swap solana.PublicKey) (solana.PublicKey, uint8, error) {
	authority, bump, err := solana.FindProgramAddress([][]byte{swap.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, swaperrors.ErrInvalidProgramAddress.WithCause(err)
	}
	return authority, bump, nil
}
