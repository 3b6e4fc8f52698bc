package ledger

import (
	"context"
	"fmt"
	"math/bits"
	"slices"
	"sync"

	"github.com/gagliardetto/solana-go"

	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
)

// Memory is a Ledger kept in process memory.
type Memory struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*TokenAccount
	mints    map[solana.PublicKey]*Mint
	data     map[solana.PublicKey][]byte
}

var _ Ledger = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[solana.PublicKey]*TokenAccount),
		mints:    make(map[solana.PublicKey]*Mint),
		data:     make(map[solana.PublicKey][]byte),
	}
}

// CreateMint registers an empty mint.
func (m *Memory) CreateMint(key, authority solana.PublicKey, decimals uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mints[key]; exists {
		return swaperrors.ErrAlreadyInUse.WithDetails(map[string]any{"mint": key.String()})
	}
	m.mints[key] = &Mint{MintAuthority: authority, Decimals: decimals}
	return nil
}

// SetMintAuthority replaces the authority of an existing mint.
func (m *Memory) SetMintAuthority(key, authority solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mint, ok := m.mints[key]
	if !ok {
		return notFound("mint", key)
	}
	mint.MintAuthority = authority
	return nil
}

// CreateTokenAccount opens an account for an existing mint and credits it
// with amount, adding amount to the mint supply.
func (m *Memory) CreateTokenAccount(key, mint, owner solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[key]; exists {
		return swaperrors.ErrAlreadyInUse.WithDetails(map[string]any{"account": key.String()})
	}
	mintState, ok := m.mints[mint]
	if !ok {
		return notFound("mint", mint)
	}
	supply, carry := bits.Add64(mintState.Supply, amount, 0)
	if carry != 0 {
		return swaperrors.ErrCalculationFailure
	}
	mintState.Supply = supply
	m.accounts[key] = &TokenAccount{Mint: mint, Owner: owner, Amount: amount}
	return nil
}

// SetOwner hands an account over to a new owner.
func (m *Memory) SetOwner(key, owner solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[key]
	if !ok {
		return notFound("token account", key)
	}
	account.Owner = owner
	return nil
}

func (m *Memory) TokenAccount(ctx context.Context, key solana.PublicKey) (TokenAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[key]
	if !ok {
		return TokenAccount{}, notFound("token account", key)
	}
	return *account, nil
}

func (m *Memory) Mint(ctx context.Context, key solana.PublicKey) (Mint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mint, ok := m.mints[key]
	if !ok {
		return Mint{}, notFound("mint", key)
	}
	return *mint, nil
}

func (m *Memory) Transfer(ctx context.Context, source, destination, authority solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.ownedAccount(source, authority)
	if err != nil {
		return err
	}
	dst, ok := m.accounts[destination]
	if !ok {
		return notFound("token account", destination)
	}
	if src.Mint != dst.Mint {
		return swaperrors.ErrMintMismatch.WithDetails(map[string]any{
			"source":      source.String(),
			"destination": destination.String(),
		})
	}
	if src.Amount < amount {
		return insufficient(source, src.Amount, amount)
	}
	if source == destination {
		return nil
	}
	credited, carry := bits.Add64(dst.Amount, amount, 0)
	if carry != 0 {
		return swaperrors.ErrCalculationFailure
	}
	src.Amount -= amount
	dst.Amount = credited
	return nil
}

func (m *Memory) MintTo(ctx context.Context, mint, destination, authority solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mintState, ok := m.mints[mint]
	if !ok {
		return notFound("mint", mint)
	}
	if mintState.MintAuthority != authority {
		return swaperrors.ErrOwnerMismatch.WithDetails(map[string]any{"mint": mint.String()})
	}
	dst, ok := m.accounts[destination]
	if !ok {
		return notFound("token account", destination)
	}
	if dst.Mint != mint {
		return swaperrors.ErrMintMismatch.WithDetails(map[string]any{"destination": destination.String()})
	}
	supply, carry := bits.Add64(mintState.Supply, amount, 0)
	if carry != 0 {
		return swaperrors.ErrCalculationFailure
	}
	// balances never exceed supply, so this cannot overflow
	mintState.Supply = supply
	dst.Amount += amount
	return nil
}

func (m *Memory) Burn(ctx context.Context, source, mint, authority solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.ownedAccount(source, authority)
	if err != nil {
		return err
	}
	mintState, ok := m.mints[mint]
	if !ok {
		return notFound("mint", mint)
	}
	if src.Mint != mint {
		return swaperrors.ErrMintMismatch.WithDetails(map[string]any{"source": source.String()})
	}
	if src.Amount < amount {
		return insufficient(source, src.Amount, amount)
	}
	src.Amount -= amount
	mintState.Supply -= amount
	return nil
}

func (m *Memory) AccountData(ctx context.Context, key solana.PublicKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.data[key]), nil
}

func (m *Memory) SetAccountData(ctx context.Context, key solana.PublicKey, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(data)
	return nil
}

// ownedAccount looks up key and checks it is owned by authority. The caller
// must hold the write lock.
func (m *Memory) ownedAccount(key, authority solana.PublicKey) (*TokenAccount, error) {
	account, ok := m.accounts[key]
	if !ok {
		return nil, notFound("token account", key)
	}
	if account.Owner != authority {
		return nil, swaperrors.ErrOwnerMismatch.WithDetails(map[string]any{
			"account":   key.String(),
			"authority": authority.String(),
		})
	}
	return account, nil
}

func notFound(kind string, key solana.PublicKey) error {
	return swaperrors.ErrAccountNotFound.WithCause(fmt.Errorf("%s %s", kind, key))
}

func insufficient(key solana.PublicKey, have, want uint64) error {
	return swaperrors.ErrInsufficientFunds.WithDetails(map[string]any{
		"account": key.String(),
		"balance": have,
		"amount":  want,
	})
}
