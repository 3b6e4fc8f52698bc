package processor

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-tokenswap/internal/common"
	swaperrors "github.com/lugondev/go-tokenswap/internal/errors"
	"github.com/lugondev/go-tokenswap/internal/metrics"
	"github.com/lugondev/go-tokenswap/pkg/curve"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
)

var testProgramID = solana.MustPublicKeyFromBase58("SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8")

type call struct {
	name     string
	accounts []solana.PublicKey
	ix       instruction.Instruction
}

type recordingHandler struct {
	calls []call
	err   error
}

func (r *recordingHandler) record(name string, accounts []solana.PublicKey, ix instruction.Instruction) error {
	r.calls = append(r.calls, call{name: name, accounts: accounts, ix: ix})
	return r.err
}

func (r *recordingHandler) Initialize(_ context.Context, accounts []solana.PublicKey, ix *instruction.Initialize) error {
	return r.record("Initialize", accounts, ix)
}

func (r *recordingHandler) Swap(_ context.Context, accounts []solana.PublicKey, ix *instruction.Swap) error {
	return r.record("Swap", accounts, ix)
}

func (r *recordingHandler) DepositAllTokenTypes(_ context.Context, accounts []solana.PublicKey, ix *instruction.DepositAllTokenTypes) error {
	return r.record("DepositAllTokenTypes", accounts, ix)
}

func (r *recordingHandler) WithdrawAllTokenTypes(_ context.Context, accounts []solana.PublicKey, ix *instruction.WithdrawAllTokenTypes) error {
	return r.record("WithdrawAllTokenTypes", accounts, ix)
}

func newTestProcessor(t *testing.T, handler Handler) (*Processor, *metrics.LogMetrics, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger, err := common.NewLoggerTo(&logs, common.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	recorder := metrics.NewLogMetrics(common.NopLogger())
	p := New(testProgramID, handler, metrics.NewCollection(recorder)).WithLogger(logger)
	return p, recorder, &logs
}

func TestProcessRoutesEveryInstruction(t *testing.T) {
	fees := curve.Fees{
		TradeFeeNumerator:           25,
		TradeFeeDenominator:         10_000,
		OwnerTradeFeeNumerator:      5,
		OwnerTradeFeeDenominator:    10_000,
		OwnerWithdrawFeeNumerator:   0,
		OwnerWithdrawFeeDenominator: 10_000,
		HostFeeNumerator:            20,
		HostFeeDenominator:          100,
	}
	tests := []struct {
		name string
		ix   instruction.Instruction
	}{
		{"Initialize", &instruction.Initialize{Fees: fees, SwapCurve: curve.DefaultSwapCurve()}},
		{"Swap", &instruction.Swap{AmountIn: 1_000, MinimumAmountOut: 1}},
		{"DepositAllTokenTypes", &instruction.DepositAllTokenTypes{PoolTokenAmount: 1, MaximumTokenAAmount: 2, MaximumTokenBAmount: 3}},
		{"WithdrawAllTokenTypes", &instruction.WithdrawAllTokenTypes{PoolTokenAmount: 4, MinimumTokenAAmount: 5, MinimumTokenBAmount: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &recordingHandler{}
			p, recorder, _ := newTestProcessor(t, handler)
			accounts := []solana.PublicKey{solana.NewWallet().PublicKey()}

			require.NoError(t, p.Process(context.Background(), accounts, tt.ix.Pack()))

			require.Len(t, handler.calls, 1)
			assert.Equal(t, tt.name, handler.calls[0].name)
			assert.Equal(t, accounts, handler.calls[0].accounts)
			assert.Equal(t, tt.ix.Pack(), handler.calls[0].ix.Pack())

			assert.Equal(t, uint64(1), recorder.Counter(metrics.MetricInstructionsReceived))
			assert.Equal(t, uint64(1), recorder.Counter(metrics.MetricInstructionsSuccessful))
			assert.Equal(t, uint64(1), recorder.Counter(metrics.InstructionMetric(tt.name, metrics.MetricInstructionsSuccessful)))
			assert.Equal(t, uint64(1), recorder.Counter(metrics.InstructionMetric(tt.name, metrics.MetricInstructionsReceived)))
			assert.Zero(t, recorder.Counter(metrics.MetricInstructionsFailed))
		})
	}
}

func TestProcessLogsInstructionName(t *testing.T) {
	p, _, logs := newTestProcessor(t, NoopHandler{})
	fees := curve.Fees{
		TradeFeeDenominator:         1,
		OwnerTradeFeeDenominator:    1,
		OwnerWithdrawFeeDenominator: 1,
		HostFeeDenominator:          1,
	}
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, nil, (&instruction.Initialize{Fees: fees, SwapCurve: curve.DefaultSwapCurve()}).Pack()))
	require.NoError(t, p.Process(ctx, nil, (&instruction.Swap{AmountIn: 1}).Pack()))

	out := logs.String()
	assert.Contains(t, out, `"msg":"Instruction: Init"`)
	assert.Contains(t, out, `"msg":"Instruction: Swap"`)
	assert.Contains(t, out, `"request_id":`)
}

func TestProcessRejectsMalformedData(t *testing.T) {
	handler := &recordingHandler{}
	p, recorder, _ := newTestProcessor(t, handler)
	ctx := context.Background()

	for _, data := range [][]byte{nil, {0xFF}, {1, 0, 0}, {9}} {
		err := p.Process(ctx, nil, data)
		assert.ErrorIs(t, err, swaperrors.ErrInvalidInstruction)
	}

	assert.Empty(t, handler.calls)
	assert.Equal(t, uint64(4), recorder.Counter(metrics.MetricInstructionsRejected))
	assert.Equal(t, uint64(4), recorder.Counter(metrics.MetricInstructionsReceived))
}

func TestProcessReturnsHandlerError(t *testing.T) {
	handler := &recordingHandler{err: swaperrors.ErrExceededSlippage}
	p, recorder, _ := newTestProcessor(t, handler)

	err := p.Process(context.Background(), nil, (&instruction.Swap{AmountIn: 10, MinimumAmountOut: 10}).Pack())
	assert.ErrorIs(t, err, swaperrors.ErrExceededSlippage)
	assert.Equal(t, uint64(1), recorder.Counter(metrics.MetricInstructionsFailed))
	assert.Equal(t, uint64(1), recorder.Counter(metrics.InstructionMetric("Swap", metrics.MetricInstructionsFailed)))
}

func TestProcessInstruction(t *testing.T) {
	handler := &recordingHandler{}
	p, _, _ := newTestProcessor(t, handler)
	ctx := context.Background()

	accounts := instruction.SwapAccounts{
		Swap:                  solana.NewWallet().PublicKey(),
		Authority:             solana.NewWallet().PublicKey(),
		UserTransferAuthority: solana.NewWallet().PublicKey(),
		Source:                solana.NewWallet().PublicKey(),
		SwapSource:            solana.NewWallet().PublicKey(),
		SwapDestination:       solana.NewWallet().PublicKey(),
		Destination:           solana.NewWallet().PublicKey(),
		PoolMint:              solana.NewWallet().PublicKey(),
		PoolFeeAccount:        solana.NewWallet().PublicKey(),
		TokenProgram:          solana.TokenProgramID,
	}
	ix, err := instruction.NewSwapInstruction(testProgramID, accounts, 100, 90)
	require.NoError(t, err)

	require.NoError(t, p.ProcessInstruction(ctx, ix))
	require.Len(t, handler.calls, 1)
	assert.Equal(t, instruction.Keys(accounts.AccountMetas()), handler.calls[0].accounts)

	foreign, err := instruction.NewSwapInstruction(solana.NewWallet().PublicKey(), accounts, 100, 90)
	require.NoError(t, err)
	assert.ErrorIs(t, p.ProcessInstruction(ctx, foreign), swaperrors.ErrInvalidInstruction)
	assert.Len(t, handler.calls, 1)
}

func TestProcessBatchStopsAtFirstFailure(t *testing.T) {
	p, _, _ := newTestProcessor(t, NoopHandler{})
	ok := solana.NewInstruction(testProgramID, nil, (&instruction.Swap{AmountIn: 1}).Pack())
	bad := solana.NewInstruction(testProgramID, nil, []byte{0xFF})

	require.NoError(t, p.ProcessBatch(context.Background(), []solana.Instruction{ok, ok}))

	err := p.ProcessBatch(context.Background(), []solana.Instruction{ok, bad, ok})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruction 1")
	assert.ErrorIs(t, err, swaperrors.ErrInvalidInstruction)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.ProcessBatch(ctx, []solana.Instruction{ok}), context.Canceled)
}

func TestChainedHandler(t *testing.T) {
	first := &recordingHandler{}
	second := &recordingHandler{err: errors.New("stop")}
	third := &recordingHandler{}
	chain := NewChainedHandler(first, second)
	chain.Add(third)

	err := chain.Swap(context.Background(), nil, &instruction.Swap{AmountIn: 1})
	assert.EqualError(t, err, "stop")
	assert.Len(t, first.calls, 1)
	assert.Len(t, second.calls, 1)
	assert.Empty(t, third.calls)

	second.err = nil
	require.NoError(t, chain.WithdrawAllTokenTypes(context.Background(), nil, &instruction.WithdrawAllTokenTypes{}))
	assert.Len(t, third.calls, 1)
}
