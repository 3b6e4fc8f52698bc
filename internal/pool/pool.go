// Package pool applies token-swap operations to a ledger.
//
// Engine is the reference handler behind the processor: it validates the
// accounts of each request against the stored pool record, prices the
// request with the pool's SwapCurve, and moves tokens through the Ledger.
package pool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/lugondev/go-tokenswap/internal/common"
	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/internal/ledger"
	"github.com/lugondev/go-tokenswap/internal/metrics"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
	"github.com/lugondev/go-tokenswap/pkg/state"
)

// Engine executes requests for one program ID.
type Engine struct {
	common.LoggerMixin
	programID      solana.PublicKey
	tokenProgramID solana.PublicKey
	ledger         ledger.Ledger
	constraints    *state.SwapConstraints
	metrics        metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithConstraints restricts the fees and curves pools may be created with.
func WithConstraints(constraints *state.SwapConstraints) Option {
	return func(e *Engine) { e.constraints = constraints }
}

// WithMetrics records executed operations, volumes and fees to m.
func WithMetrics(m metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTokenProgramID overrides the expected token program.
func WithTokenProgramID(id solana.PublicKey) Option {
	return func(e *Engine) { e.tokenProgramID = id }
}

func NewEngine(programID solana.PublicKey, l ledger.Ledger, opts ...Option) *Engine {
	e := &Engine{
		LoggerMixin:    common.NewLoggerMixin(),
		programID:      programID,
		tokenProgramID: solana.TokenProgramID,
		ledger:         l,
		metrics:        metrics.Discard{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.SetLogger(logger)
	return e
}

// ProgramID returns the program this engine serves.
func (e *Engine) ProgramID() solana.PublicKey {
	return e.programID
}

// Record loads and decodes the pool record stored under swap.
func (e *Engine) Record(ctx context.Context, swap solana.PublicKey) (*state.SwapV1, error) {
	data, err := e.ledger.AccountData(ctx, swap)
	if err != nil {
		return nil, err
	}
	if !state.IsInitialized(data) {
		return nil, swaperrors.ErrNotInitialized
	}
	return state.Unpack(data)
}

// loadSwap loads the record and checks the authority and token program
// passed alongside it.
func (e *Engine) loadSwap(ctx context.Context, swap, authority, tokenProgram solana.PublicKey) (*state.SwapV1, error) {
	record, err := e.Record(ctx, swap)
	if err != nil {
		return nil, err
	}
	expected, err := instruction.AuthorityID(e.programID, swap, record.BumpSeed)
	if err != nil {
		return nil, err
	}
	if authority != expected {
		return nil, swaperrors.ErrInvalidProgramAddress.WithDetails(map[string]any{
			"expected": expected.String(),
			"actual":   authority.String(),
		})
	}
	if tokenProgram != record.TokenProgramID {
		return nil, swaperrors.ErrIncorrectTokenProgramID
	}
	return record, nil
}

func (e *Engine) count(ctx context.Context, name string, value uint64) {
	if err := e.metrics.IncrementCounter(ctx, name, value); err != nil {
		e.GetLogger().Warn("failed to record metric", "name", name, "error", err)
	}
}

// reportSupply publishes the current pool token supply.
func (e *Engine) reportSupply(ctx context.Context, poolMint solana.PublicKey) {
	mint, err := e.ledger.Mint(ctx, poolMint)
	if err != nil {
		return
	}
	if err := e.metrics.UpdateGauge(ctx, metrics.MetricPoolTokenSupply, float64(mint.Supply)); err != nil {
		e.GetLogger().Warn("failed to record metric", "name", metrics.MetricPoolTokenSupply, "error", err)
	}
}

func toU64(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, swaperrors.ErrCalculationFailure.WithCause(fmt.Errorf("%s does not fit in 64 bits", x))
	}
	return x.Uint64(), nil
}

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
