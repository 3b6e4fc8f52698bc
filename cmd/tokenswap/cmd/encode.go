package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/lugondev/go-tokenswap/pkg/instruction"
)

var (
	encodeFile   string
	encodeFormat string
)

var encodeCmd = &cobra.Command{
	Use:   "encode [json]",
	Short: "Encode an instruction from a JSON request",
	Long: `Encode one of the four token-swap instructions from a JSON document.

The document names the instruction and its amounts. Initialize takes its
fees and curve from the configuration unless the document overrides them.

Example:
  tokenswap encode '{"instruction":"swap","amount_in":1000,"minimum_amount_out":1}'
  tokenswap encode -f deposit.json --format base58
  echo '{"instruction":"initialize","curve":{"amp":200}}' | tokenswap encode -f -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringVarP(&encodeFile, "file", "f", "", "read the request from a file, - for stdin")
	encodeCmd.Flags().StringVar(&encodeFormat, "format", formatHex, "output encoding (hex, base58, base64)")
}

func runEncode(cmd *cobra.Command, args []string) error {
	doc, err := readRequest(cmd, args)
	if err != nil {
		return err
	}
	ix, err := parseRequest(doc)
	if err != nil {
		return err
	}
	data := ix.Pack()
	if data == nil {
		return fmt.Errorf("cannot encode %s", ix.Tag())
	}
	out, err := encodeBytes(data, encodeFormat)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func readRequest(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case encodeFile == "-":
		raw, err := io.ReadAll(cmd.InOrStdin())
		return string(raw), err
	case encodeFile != "":
		raw, err := os.ReadFile(encodeFile)
		if err != nil {
			return "", fmt.Errorf("failed to read request: %w", err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("no request given: pass JSON as an argument or use --file")
	}
}

// parseTag accepts tag names in any case, with or without underscores.
func parseTag(name string) (instruction.Tag, error) {
	normalized := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	for tag := instruction.TagInitialize; tag <= instruction.TagWithdrawAllTokenTypes; tag++ {
		if strings.ToLower(tag.String()) == normalized {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("unknown instruction %q", name)
}

func requireUint(doc gjson.Result, path string) (uint64, error) {
	field := doc.Get(path)
	if !field.Exists() {
		return 0, fmt.Errorf("missing field %q", path)
	}
	if field.Type != gjson.Number || strings.ContainsAny(field.Raw, ".eE-") {
		return 0, fmt.Errorf("field %q must be an unsigned integer, got %s", path, field.Raw)
	}
	return field.Uint(), nil
}

func requireUints(doc gjson.Result, paths ...string) ([]uint64, error) {
	values := make([]uint64, len(paths))
	for i, path := range paths {
		v, err := requireUint(doc, path)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseRequest(text string) (instruction.Instruction, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("request is not valid JSON")
	}
	doc := gjson.Parse(text)
	tag, err := parseTag(doc.Get("instruction").String())
	if err != nil {
		return nil, err
	}

	switch tag {
	case instruction.TagInitialize:
		return parseInitialize(doc)
	case instruction.TagSwap:
		v, err := requireUints(doc, "amount_in", "minimum_amount_out")
		if err != nil {
			return nil, err
		}
		return &instruction.Swap{AmountIn: v[0], MinimumAmountOut: v[1]}, nil
	case instruction.TagDepositAllTokenTypes:
		v, err := requireUints(doc, "pool_token_amount", "maximum_token_a_amount", "maximum_token_b_amount")
		if err != nil {
			return nil, err
		}
		return &instruction.DepositAllTokenTypes{PoolTokenAmount: v[0], MaximumTokenAAmount: v[1], MaximumTokenBAmount: v[2]}, nil
	default:
		v, err := requireUints(doc, "pool_token_amount", "minimum_token_a_amount", "minimum_token_b_amount")
		if err != nil {
			return nil, err
		}
		return &instruction.WithdrawAllTokenTypes{PoolTokenAmount: v[0], MinimumTokenAAmount: v[1], MinimumTokenBAmount: v[2]}, nil
	}
}

func parseInitialize(doc gjson.Result) (instruction.Instruction, error) {
	cfg := *appConfig

	fees := doc.Get("fees")
	overrides := []struct {
		path  string
		field *uint64
	}{
		{"trade_fee_numerator", &cfg.Fees.TradeFeeNumerator},
		{"trade_fee_denominator", &cfg.Fees.TradeFeeDenominator},
		{"owner_trade_fee_numerator", &cfg.Fees.OwnerTradeFeeNumerator},
		{"owner_trade_fee_denominator", &cfg.Fees.OwnerTradeFeeDenominator},
		{"owner_withdraw_fee_numerator", &cfg.Fees.OwnerWithdrawFeeNumerator},
		{"owner_withdraw_fee_denominator", &cfg.Fees.OwnerWithdrawFeeDenominator},
		{"host_fee_numerator", &cfg.Fees.HostFeeNumerator},
		{"host_fee_denominator", &cfg.Fees.HostFeeDenominator},
	}
	for _, o := range overrides {
		if !fees.Get(o.path).Exists() {
			continue
		}
		v, err := requireUint(fees, o.path)
		if err != nil {
			return nil, fmt.Errorf("fees: %w", err)
		}
		*o.field = v
	}

	if t := doc.Get("curve.type"); t.Exists() {
		cfg.Curve.Type = t.String()
	}
	if doc.Get("curve.amp").Exists() {
		amp, err := requireUint(doc, "curve.amp")
		if err != nil {
			return nil, err
		}
		cfg.Curve.Amp = amp
	}
	if err := cfg.Fees.Validate(); err != nil {
		return nil, err
	}
	swapCurve, err := cfg.SwapCurve()
	if err != nil {
		return nil, err
	}
	if err := swapCurve.Validate(); err != nil {
		return nil, err
	}
	return &instruction.Initialize{Fees: cfg.Fees, SwapCurve: swapCurve}, nil
}
