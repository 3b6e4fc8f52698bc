// Package processor is the dispatch surface of the token-swap program.
//
// A Processor decodes raw instruction data, routes the typed request to a
// Handler, and records what happened to a metrics collection. The Handler
// holds the business logic; pool.Engine is the reference implementation.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/lugondev/go-tokenswap/internal/common"
	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/internal/metrics"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
)

// Handler executes decoded requests. accounts holds the instruction's
// account keys in the order documented on each instruction's accounts type.
type Handler interface {
	Initialize(ctx context.Context, accounts []solana.PublicKey, ix *instruction.Initialize) error
	Swap(ctx context.Context, accounts []solana.PublicKey, ix *instruction.Swap) error
	DepositAllTokenTypes(ctx context.Context, accounts []solana.PublicKey, ix *instruction.DepositAllTokenTypes) error
	WithdrawAllTokenTypes(ctx context.Context, accounts []solana.PublicKey, ix *instruction.WithdrawAllTokenTypes) error
}

// NoopHandler accepts every request without doing anything.
// Useful for testing or to validate instruction data only.
type NoopHandler struct{}

func (NoopHandler) Initialize(context.Context, []solana.PublicKey, *instruction.Initialize) error {
	return nil
}

func (NoopHandler) Swap(context.Context, []solana.PublicKey, *instruction.Swap) error {
	return nil
}

func (NoopHandler) DepositAllTokenTypes(context.Context, []solana.PublicKey, *instruction.DepositAllTokenTypes) error {
	return nil
}

func (NoopHandler) WithdrawAllTokenTypes(context.Context, []solana.PublicKey, *instruction.WithdrawAllTokenTypes) error {
	return nil
}

// ChainedHandler calls several handlers in sequence with the same request,
// stopping at the first error.
type ChainedHandler struct {
	handlers []Handler
}

// NewChainedHandler creates a new ChainedHandler with the given handlers.
func NewChainedHandler(handlers ...Handler) *ChainedHandler {
	return &ChainedHandler{handlers: handlers}
}

// Add adds a handler to the chain.
func (c *ChainedHandler) Add(h Handler) {
	c.handlers = append(c.handlers, h)
}

func (c *ChainedHandler) each(fn func(Handler) error) error {
	for _, h := range c.handlers {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChainedHandler) Initialize(ctx context.Context, accounts []solana.PublicKey, ix *instruction.Initialize) error {
	return c.each(func(h Handler) error { return h.Initialize(ctx, accounts, ix) })
}

func (c *ChainedHandler) Swap(ctx context.Context, accounts []solana.PublicKey, ix *instruction.Swap) error {
	return c.each(func(h Handler) error { return h.Swap(ctx, accounts, ix) })
}

func (c *ChainedHandler) DepositAllTokenTypes(ctx context.Context, accounts []solana.PublicKey, ix *instruction.DepositAllTokenTypes) error {
	return c.each(func(h Handler) error { return h.DepositAllTokenTypes(ctx, accounts, ix) })
}

func (c *ChainedHandler) WithdrawAllTokenTypes(ctx context.Context, accounts []solana.PublicKey, ix *instruction.WithdrawAllTokenTypes) error {
	return c.each(func(h Handler) error { return h.WithdrawAllTokenTypes(ctx, accounts, ix) })
}

// Processor decodes instruction data for one program and dispatches it.
type Processor struct {
	common.LoggerMixin
	programID solana.PublicKey
	handler   Handler
	metrics   *metrics.Collection
}

// New creates a Processor. A nil collection records nothing.
func New(programID solana.PublicKey, handler Handler, collection *metrics.Collection) *Processor {
	if collection == nil {
		collection = metrics.NewCollection()
	}
	return &Processor{
		LoggerMixin: common.NewLoggerMixin(),
		programID:   programID,
		handler:     handler,
		metrics:     collection,
	}
}

func (p *Processor) WithLogger(logger *slog.Logger) *Processor {
	p.SetLogger(logger)
	return p
}

// logName is the name announced in the "Instruction:" log line.
func logName(tag instruction.Tag) string {
	if tag == instruction.TagInitialize {
		return "Init"
	}
	return tag.String()
}

// Process decodes data and routes it to the handler. Decoding failures are
// returned as ErrInvalidInstruction or ErrInvalidAccountData without
// reaching the handler.
func (p *Processor) Process(ctx context.Context, accounts []solana.PublicKey, data []byte) error {
	start := time.Now()

	ix, err := instruction.Unpack(data)
	if err != nil {
		p.count(ctx, metrics.MetricInstructionsReceived)
		p.count(ctx, metrics.MetricInstructionsRejected)
		p.GetLogger().Warn("rejected instruction data", "length", len(data), "error", err)
		return err
	}

	name := ix.Tag().String()
	logger := p.GetLogger().With("request_id", uuid.NewString(), "instruction", name)
	logger.Info("Instruction: " + logName(ix.Tag()))
	p.record(ctx, name, metrics.MetricInstructionsReceived)

	err = p.dispatch(ctx, accounts, ix)

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if merr := p.metrics.RecordHistogram(ctx, metrics.MetricProcessTimeMilliseconds, elapsed); merr != nil {
		logger.Warn("failed to record metric", "error", merr)
	}

	if err != nil {
		p.record(ctx, name, metrics.MetricInstructionsFailed)
		logger.Warn("instruction failed", "error", err, "duration_ms", elapsed)
		return err
	}
	p.record(ctx, name, metrics.MetricInstructionsSuccessful)
	logger.Debug("instruction processed", "duration_ms", elapsed)
	return nil
}

func (p *Processor) dispatch(ctx context.Context, accounts []solana.PublicKey, ix instruction.Instruction) error {
	switch ix := ix.(type) {
	case *instruction.Initialize:
		return p.handler.Initialize(ctx, accounts, ix)
	case *instruction.Swap:
		return p.handler.Swap(ctx, accounts, ix)
	case *instruction.DepositAllTokenTypes:
		return p.handler.DepositAllTokenTypes(ctx, accounts, ix)
	case *instruction.WithdrawAllTokenTypes:
		return p.handler.WithdrawAllTokenTypes(ctx, accounts, ix)
	default:
		return swaperrors.InvalidInstruction(fmt.Errorf("unhandled instruction %T", ix))
	}
}

// ProcessInstruction processes a built instruction addressed to this
// processor's program.
func (p *Processor) ProcessInstruction(ctx context.Context, ix solana.Instruction) error {
	if !ix.ProgramID().Equals(p.programID) {
		return swaperrors.InvalidInstruction(fmt.Errorf("instruction for program %s, expected %s", ix.ProgramID(), p.programID))
	}
	data, err := ix.Data()
	if err != nil {
		return swaperrors.InvalidInstruction(err)
	}
	return p.Process(ctx, instruction.Keys(ix.Accounts()), data)
}

// ProcessBatch processes instructions in order and stops at the first
// failure, reporting its index.
func (p *Processor) ProcessBatch(ctx context.Context, ixs []solana.Instruction) error {
	for i, ix := range ixs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.ProcessInstruction(ctx, ix); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return nil
}

func (p *Processor) count(ctx context.Context, name string) {
	if err := p.metrics.IncrementCounter(ctx, name, 1); err != nil {
		p.GetLogger().Warn("failed to record metric", "name", name, "error", err)
	}
}

func (p *Processor) record(ctx context.Context, instruction, name string) {
	if err := p.metrics.RecordInstruction(ctx, instruction, name); err != nil {
		p.GetLogger().Warn("failed to record metric", "instruction", instruction, "name", name, "error", err)
	}
}
