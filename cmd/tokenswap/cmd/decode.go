package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-tokenswap/pkg/curve"
	"github.com/lugondev/go-tokenswap/pkg/decoder"
	"github.com/lugondev/go-tokenswap/pkg/instruction"
	"github.com/lugondev/go-tokenswap/pkg/view"
)

var (
	decodeFormat string
	decodeRecord bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <data>",
	Short: "Decode instruction data or a pool record",
	Long: `Decode token-swap instruction data, or a packed pool record with --record,
and print it as JSON.

Example:
  tokenswap decode 01e8030000000000000100000000000000
  tokenswap decode --format base58 23GBazHUgkwKXEyc9L9dfd1
  tokenswap decode --record --format base64 AQEA...

Several instruction payloads decode to a JSON array; the first malformed
payload fails the command with its position.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().StringVar(&decodeFormat, "format", formatHex, "input encoding (hex, base58, base64)")
	decodeCmd.Flags().BoolVar(&decodeRecord, "record", false, "decode a pool record instead of instruction data")
}

type curveJSON struct {
	Type string `json:"type"`
	Amp  uint64 `json:"amp,omitempty"`
}

func newCurveJSON(swapCurve *curve.SwapCurve) *curveJSON {
	out := &curveJSON{Type: swapCurve.CurveType().String()}
	if stable, ok := swapCurve.Calculator().(*curve.StableCurve); ok {
		out.Amp = stable.Amp
	}
	return out
}

type instructionJSON struct {
	Instruction string     `json:"instruction"`
	Tag         uint8      `json:"tag"`
	Data        any        `json:"data"`
	Curve       *curveJSON `json:"curve,omitempty"`
}

type recordJSON struct {
	Version        uint8      `json:"version"`
	IsInitialized  bool       `json:"is_initialized"`
	BumpSeed       uint8      `json:"bump_seed"`
	TokenProgramID string     `json:"token_program_id"`
	TokenA         string     `json:"token_a"`
	TokenB         string     `json:"token_b"`
	PoolMint       string     `json:"pool_mint"`
	TokenAMint     string     `json:"token_a_mint"`
	TokenBMint     string     `json:"token_b_mint"`
	PoolFeeAccount string     `json:"pool_fee_account"`
	Fees           curve.Fees `json:"fees"`
	Curve          *curveJSON `json:"curve"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		if decodeRecord {
			return fmt.Errorf("--record takes a single record")
		}
		out, err := decodeInstructionBatchJSON(args)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	}

	data, err := decodeBytes(args[0], decodeFormat)
	if err != nil {
		return err
	}

	var out any
	if decodeRecord {
		out, err = decodeRecordJSON(data)
	} else {
		out, err = decodeInstructionJSON(data)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}

func newRegistry() (*decoder.Registry, solana.PublicKey, error) {
	programID, err := appConfig.ProgramID()
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	registry := decoder.NewRegistry()
	registry.RegisterForProgram(programID, decoder.NewTokenSwapDecoder(programID))
	return registry, programID, nil
}

func newInstructionJSON(event *decoder.Event) *instructionJSON {
	out := &instructionJSON{Instruction: event.Name, Tag: event.Tag, Data: event.Data}
	if ix, ok := event.Data.(*instruction.Initialize); ok {
		out.Curve = newCurveJSON(ix.SwapCurve)
	}
	return out
}

func decodeInstructionJSON(data []byte) (*instructionJSON, error) {
	registry, programID, err := newRegistry()
	if err != nil {
		return nil, err
	}
	event, err := registry.Decode(data, &programID)
	if err != nil {
		// surface the codec error rather than the registry miss
		if _, uerr := instruction.Unpack(data); uerr != nil {
			return nil, uerr
		}
		return nil, err
	}
	logger.Debug("decoded instruction", "instruction", event.Name, "length", len(data))
	return newInstructionJSON(event), nil
}

func decodeInstructionBatchJSON(args []string) ([]*instructionJSON, error) {
	payloads := make([][]byte, len(args))
	for i, arg := range args {
		data, err := decodeBytes(arg, decodeFormat)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		payloads[i] = data
	}

	registry, programID, err := newRegistry()
	if err != nil {
		return nil, err
	}
	result := decoder.NewBatchDecoder(registry).DecodeAllWithOptions(payloads, &programID, &decoder.BatchOptions{
		CollectErrors: true,
		MaxErrors:     1,
	})
	if len(result.Errors) > 0 {
		return nil, result.Errors[0]
	}

	out := make([]*instructionJSON, 0, len(result.Events))
	for _, event := range result.Events {
		out = append(out, newInstructionJSON(event))
	}
	logger.Debug("decoded instructions", "count", len(out))
	return out, nil
}

func decodeRecordJSON(data []byte) (*recordJSON, error) {
	v, err := view.NewSwapView(data)
	if err != nil {
		return nil, err
	}
	fees, err := curve.UnpackFees(v.FeesData())
	if err != nil {
		return nil, err
	}
	swapCurve, err := curve.UnpackSwapCurve(v.CurveData())
	if err != nil {
		return nil, err
	}
	return &recordJSON{
		Version:        v.Version(),
		IsInitialized:  v.IsInitialized(),
		BumpSeed:       v.BumpSeed(),
		TokenProgramID: v.TokenProgramID().String(),
		TokenA:         v.TokenA().String(),
		TokenB:         v.TokenB().String(),
		PoolMint:       v.PoolMint().String(),
		TokenAMint:     v.TokenAMint().String(),
		TokenBMint:     v.TokenBMint().String(),
		PoolFeeAccount: v.PoolFeeAccount().String(),
		Fees:           fees,
		Curve:          newCurveJSON(swapCurve),
	}, nil
}
