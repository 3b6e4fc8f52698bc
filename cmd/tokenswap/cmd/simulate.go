package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-tokenswap/internal/config"
	"github.com/lugondev/go-tokenswap/internal/ledger"
	"github.com/lugondev/go-tokenswap/internal/metrics"
	"github.com/lugondev/go-tokenswap/internal/pool"
	"github.com/lugondev/go-tokenswap/internal/processor"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
)

var (
	simReserveA   uint64
	simReserveB   uint64
	simUserFunds  uint64
	simAmountIn   uint64
	simDeposit    uint64
	simWithdraw   uint64
	simHostFee    bool
	simMetricsOut string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a pool lifecycle against an in-memory ledger",
	Long: `Create a pool with the configured fees and curve, then swap, deposit and
withdraw through the instruction processor, printing balances after each step.

With the prometheus metrics backend, --metrics-out writes the collected
metrics in the text exposition format.

Example:
  tokenswap simulate --amount-in 2500000 --deposit 10000000
  tokenswap simulate --host-fee --metrics-out swap.prom`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Uint64Var(&simReserveA, "reserve-a", 1_000_000_000, "initial pool reserve of token A")
	simulateCmd.Flags().Uint64Var(&simReserveB, "reserve-b", 1_000_000_000, "initial pool reserve of token B")
	simulateCmd.Flags().Uint64Var(&simUserFunds, "user-funds", 100_000_000, "initial user balance of each token")
	simulateCmd.Flags().Uint64Var(&simAmountIn, "amount-in", 1_000_000, "token A amount to swap")
	simulateCmd.Flags().Uint64Var(&simDeposit, "deposit", 10_000_000, "pool tokens to deposit for")
	simulateCmd.Flags().Uint64Var(&simWithdraw, "withdraw", 10_000_000, "pool tokens to withdraw")
	simulateCmd.Flags().BoolVar(&simHostFee, "host-fee", false, "pass a host fee account with the swap")
	simulateCmd.Flags().StringVar(&simMetricsOut, "metrics-out", "", "write prometheus metrics to this file")
}

// newMetrics builds the configured metrics backends.
func newMetrics(cfg *config.Config) (*metrics.Collection, *metrics.PrometheusMetrics) {
	collection := metrics.NewCollection()
	if !cfg.Metrics.Enabled {
		return collection, nil
	}
	if cfg.Metrics.Backend == "prometheus" {
		prom := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
		collection.Add(prom)
		return collection, prom
	}
	collection.Add(metrics.NewLogMetrics(logger))
	return collection, nil
}

// simulation holds the ledger accounts of one simulated pool.
type simulation struct {
	ledger *ledger.Memory

	swap, authority        solana.PublicKey
	mintA, mintB, poolMint solana.PublicKey
	tokenA, tokenB         solana.PublicKey
	feeAccount, hostFee    solana.PublicKey

	user                   solana.PublicKey
	userA, userB, userPool solana.PublicKey
}

func newSimulation(programID solana.PublicKey, feeOwner solana.PublicKey) (*simulation, error) {
	key := func() solana.PublicKey { return solana.NewWallet().PublicKey() }
	s := &simulation{
		ledger:     ledger.NewMemory(),
		swap:       key(),
		mintA:      key(),
		mintB:      key(),
		poolMint:   key(),
		tokenA:     key(),
		tokenB:     key(),
		feeAccount: key(),
		hostFee:    key(),
		user:       key(),
		userA:      key(),
		userB:      key(),
		userPool:   key(),
	}
	authority, _, err := instruction.FindAuthority(programID, s.swap)
	if err != nil {
		return nil, err
	}
	s.authority = authority

	mintAuthority := key()
	steps := []func() error{
		func() error { return s.ledger.CreateMint(s.mintA, mintAuthority, 6) },
		func() error { return s.ledger.CreateMint(s.mintB, mintAuthority, 6) },
		func() error { return s.ledger.CreateMint(s.poolMint, authority, 9) },
		func() error { return s.ledger.CreateTokenAccount(s.tokenA, s.mintA, authority, simReserveA) },
		func() error { return s.ledger.CreateTokenAccount(s.tokenB, s.mintB, authority, simReserveB) },
		func() error { return s.ledger.CreateTokenAccount(s.feeAccount, s.poolMint, feeOwner, 0) },
		func() error { return s.ledger.CreateTokenAccount(s.hostFee, s.poolMint, key(), 0) },
		func() error { return s.ledger.CreateTokenAccount(s.userA, s.mintA, s.user, simUserFunds) },
		func() error { return s.ledger.CreateTokenAccount(s.userB, s.mintB, s.user, simUserFunds) },
		func() error { return s.ledger.CreateTokenAccount(s.userPool, s.poolMint, s.user, 0) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *simulation) instructions(programID solana.PublicKey, cfg *config.Config) ([]solana.Instruction, error) {
	swapCurve, err := cfg.SwapCurve()
	if err != nil {
		return nil, err
	}
	initialize, err := instruction.NewInitializeInstruction(programID, instruction.InitializeAccounts{
		Swap:         s.swap,
		Authority:    s.authority,
		TokenA:       s.tokenA,
		TokenB:       s.tokenB,
		PoolMint:     s.poolMint,
		FeeAccount:   s.feeAccount,
		Destination:  s.userPool,
		TokenProgram: solana.TokenProgramID,
	}, cfg.Fees, swapCurve)
	if err != nil {
		return nil, err
	}

	swapAccounts := instruction.SwapAccounts{
		Swap:                  s.swap,
		Authority:             s.authority,
		UserTransferAuthority: s.user,
		Source:                s.userA,
		SwapSource:            s.tokenA,
		SwapDestination:       s.tokenB,
		Destination:           s.userB,
		PoolMint:              s.poolMint,
		PoolFeeAccount:        s.feeAccount,
		TokenProgram:          solana.TokenProgramID,
	}
	if simHostFee {
		swapAccounts.HostFeeAccount = &s.hostFee
	}
	swap, err := instruction.NewSwapInstruction(programID, swapAccounts, simAmountIn, 0)
	if err != nil {
		return nil, err
	}

	deposit, err := instruction.NewDepositAllTokenTypesInstruction(programID, instruction.DepositAllTokenTypesAccounts{
		Swap:                  s.swap,
		Authority:             s.authority,
		UserTransferAuthority: s.user,
		DepositTokenA:         s.userA,
		DepositTokenB:         s.userB,
		SwapTokenA:            s.tokenA,
		SwapTokenB:            s.tokenB,
		PoolMint:              s.poolMint,
		Destination:           s.userPool,
		TokenProgram:          solana.TokenProgramID,
	}, simDeposit, simUserFunds, simUserFunds)
	if err != nil {
		return nil, err
	}

	withdraw, err := instruction.NewWithdrawAllTokenTypesInstruction(programID, instruction.WithdrawAllTokenTypesAccounts{
		Swap:                  s.swap,
		Authority:             s.authority,
		UserTransferAuthority: s.user,
		PoolMint:              s.poolMint,
		Source:                s.userPool,
		SwapTokenA:            s.tokenA,
		SwapTokenB:            s.tokenB,
		DestinationTokenA:     s.userA,
		DestinationTokenB:     s.userB,
		FeeAccount:            s.feeAccount,
		TokenProgram:          solana.TokenProgramID,
	}, simWithdraw, 0, 0)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{initialize, swap, deposit, withdraw}, nil
}

func (s *simulation) report(ctx context.Context, w io.Writer, step string) error {
	balances := []struct {
		name string
		key  solana.PublicKey
	}{
		{"pool A", s.tokenA},
		{"pool B", s.tokenB},
		{"user A", s.userA},
		{"user B", s.userB},
		{"user pool", s.userPool},
		{"fee account", s.feeAccount},
		{"host fee", s.hostFee},
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "== %s\n", step)
	for _, b := range balances {
		account, err := s.ledger.TokenAccount(ctx, b.key)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\n", b.name, account.Amount)
	}
	mint, err := s.ledger.Mint(ctx, s.poolMint)
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "pool supply\t%d\n", mint.Supply)
	return tw.Flush()
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	programID, err := appConfig.ProgramID()
	if err != nil {
		return err
	}
	constraints, err := appConfig.SwapConstraints()
	if err != nil {
		return err
	}
	feeOwner := solana.NewWallet().PublicKey()
	if constraints != nil {
		feeOwner = constraints.OwnerKey
	}

	sim, err := newSimulation(programID, feeOwner)
	if err != nil {
		return err
	}
	collection, prom := newMetrics(appConfig)
	if err := collection.Initialize(ctx); err != nil {
		return err
	}

	engine := pool.NewEngine(programID, sim.ledger,
		pool.WithConstraints(constraints),
		pool.WithMetrics(collection),
	).WithLogger(logger)
	p := processor.New(programID, engine, collection).WithLogger(logger)

	ixs, err := sim.instructions(programID, appConfig)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, ix := range ixs {
		if err := p.ProcessInstruction(ctx, ix); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		data, _ := ix.Data()
		tag, _ := instruction.UnpackTag(data)
		if err := sim.report(ctx, out, tag.String()); err != nil {
			return err
		}
	}

	if err := collection.Flush(ctx); err != nil {
		return err
	}
	if simMetricsOut != "" {
		if prom == nil {
			return fmt.Errorf("--metrics-out requires metrics.enabled with the prometheus backend")
		}
		if err := prometheus.WriteToTextfile(simMetricsOut, prom.Registry()); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return collection.Shutdown(ctx)
}
