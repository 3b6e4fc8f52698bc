// Package ledger defines the token ledger the pool engine moves funds
// through, plus an in-memory implementation used by tests and the CLI.
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// TokenAccount is a balance of one mint held by an owner.
type TokenAccount struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// Mint is a token type with a tracked supply.
type Mint struct {
	Supply        uint64           `json:"supply"`
	MintAuthority solana.PublicKey `json:"mint_authority"`
	Decimals      uint8            `json:"decimals"`
}

// Ledger is the external collaborator that holds token balances and the
// packed pool records. Every mutating call is authorized by the given
// authority key.
type Ledger interface {
	TokenAccount(ctx context.Context, key solana.PublicKey) (TokenAccount, error)
	Mint(ctx context.Context, key solana.PublicKey) (Mint, error)

	// Transfer moves amount between two accounts of the same mint. authority
	// must own source.
	Transfer(ctx context.Context, source, destination, authority solana.PublicKey, amount uint64) error

	// MintTo creates amount new tokens in destination. authority must be the
	// mint authority.
	MintTo(ctx context.Context, mint, destination, authority solana.PublicKey, amount uint64) error

	// Burn destroys amount tokens held in source. authority must own source.
	Burn(ctx context.Context, source, mint, authority solana.PublicKey, amount uint64) error

	// AccountData returns the raw data stored under key, or nil when nothing
	// has been stored.
	AccountData(ctx context.Context, key solana.PublicKey) ([]byte, error)
	SetAccountData(ctx context.Context, key solana.PublicKey, data []byte) error
}
