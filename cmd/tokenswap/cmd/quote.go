package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-tokenswap/pkg/curve"
)

var (
	quoteAmountIn  uint64
	quoteReserveA  uint64
	quoteReserveB  uint64
	quoteDirection string
	quoteDecimalsA int32
	quoteDecimalsB int32
	quoteAmp       uint64
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote a swap against given reserves",
	Long: `Quote a swap with the configured fees and curve against the given reserves.

Example:
  tokenswap quote --amount-in 1000000 --reserve-a 1000000000 --reserve-b 1000000000
  tokenswap quote --amount-in 5000 --reserve-a 80000000 --reserve-b 120000000 --direction b-to-a --amp 400`,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().Uint64Var(&quoteAmountIn, "amount-in", 0, "source amount in base units, fees included")
	quoteCmd.Flags().Uint64Var(&quoteReserveA, "reserve-a", 0, "pool reserve of token A")
	quoteCmd.Flags().Uint64Var(&quoteReserveB, "reserve-b", 0, "pool reserve of token B")
	quoteCmd.Flags().StringVar(&quoteDirection, "direction", "a-to-b", "trade direction (a-to-b, b-to-a)")
	quoteCmd.Flags().Int32Var(&quoteDecimalsA, "decimals-a", 0, "decimals of token A, for the displayed price")
	quoteCmd.Flags().Int32Var(&quoteDecimalsB, "decimals-b", 0, "decimals of token B, for the displayed price")
	quoteCmd.Flags().Uint64Var(&quoteAmp, "amp", 0, "override the configured amplification")

	for _, name := range []string{"amount-in", "reserve-a", "reserve-b"} {
		cobra.CheckErr(quoteCmd.MarkFlagRequired(name))
	}
}

func parseDirection(name string) (curve.TradeDirection, error) {
	switch name {
	case "a-to-b", "a_to_b", "atob":
		return curve.AtoB, nil
	case "b-to-a", "b_to_a", "btoa":
		return curve.BtoA, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", name)
	}
}

// feeRate renders numerator/denominator as a percentage.
func feeRate(numerator, denominator uint64) string {
	if denominator == 0 {
		return "n/a"
	}
	rate := decimal.NewFromUint64(numerator).Div(decimal.NewFromUint64(denominator)).Shift(2)
	return rate.String() + "%"
}

// uiAmount scales a base unit amount down by decimals.
func uiAmount(amount *uint256.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount.ToBig(), -decimals)
}

func runQuote(cmd *cobra.Command, args []string) error {
	direction, err := parseDirection(quoteDirection)
	if err != nil {
		return err
	}
	cfg := *appConfig
	if quoteAmp != 0 {
		cfg.Curve.Amp = quoteAmp
	}
	swapCurve, err := cfg.SwapCurve()
	if err != nil {
		return err
	}
	if err := swapCurve.Validate(); err != nil {
		return err
	}

	source, destination := quoteReserveA, quoteReserveB
	sourceDecimals, destinationDecimals := quoteDecimalsA, quoteDecimalsB
	if direction == curve.BtoA {
		source, destination = destination, source
		sourceDecimals, destinationDecimals = destinationDecimals, sourceDecimals
	}

	result, ok := swapCurve.Swap(
		uint256.NewInt(quoteAmountIn),
		uint256.NewInt(source),
		uint256.NewInt(destination),
		direction,
		&cfg.Fees,
	)
	if !ok {
		return fmt.Errorf("no quote: the trade cannot be priced against these reserves")
	}

	in := uiAmount(result.SourceAmountSwapped, sourceDecimals)
	out := uiAmount(result.DestinationAmountSwapped, destinationDecimals)
	price := decimal.Zero
	if !in.IsZero() {
		price = out.Div(in)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "curve:\t%s\n", swapCurve)
	fmt.Fprintf(w, "direction:\t%s\n", direction)
	fmt.Fprintf(w, "amount in:\t%s\n", result.SourceAmountSwapped.Dec())
	fmt.Fprintf(w, "amount out:\t%s\n", result.DestinationAmountSwapped.Dec())
	fmt.Fprintf(w, "trade fee:\t%s (%s)\n", result.TradeFee.Dec(), feeRate(cfg.Fees.TradeFeeNumerator, cfg.Fees.TradeFeeDenominator))
	fmt.Fprintf(w, "owner fee:\t%s (%s)\n", result.OwnerFee.Dec(), feeRate(cfg.Fees.OwnerTradeFeeNumerator, cfg.Fees.OwnerTradeFeeDenominator))
	fmt.Fprintf(w, "execution price:\t%s\n", price.StringFixed(8))
	fmt.Fprintf(w, "new source reserve:\t%s\n", result.NewSwapSourceAmount.Dec())
	fmt.Fprintf(w, "new destination reserve:\t%s\n", result.NewSwapDestinationAmount.Dec())
	return w.Flush()
}
