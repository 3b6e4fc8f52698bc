package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lugondev/go-tokenswap/internal/common"
	"github.com/lugondev/go-tokenswap/pkg/curve"
	"github.com/lugondev/go-tokenswap/pkg/state"
)

// DefaultProgramID is the deployed SPL token-swap program.
const DefaultProgramID = "SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8"

// EnvPrefix prefixes every environment override, e.g. TOKENSWAP_CURVE_AMP.
const EnvPrefix = "TOKENSWAP"

// Config holds all configuration for the application
type Config struct {
	Log         common.LogConfig  `mapstructure:"log" yaml:"log"`
	Program     ProgramConfig     `mapstructure:"program" yaml:"program"`
	Fees        curve.Fees        `mapstructure:"fees" yaml:"fees"`
	Curve       CurveConfig       `mapstructure:"curve" yaml:"curve"`
	Constraints ConstraintsConfig `mapstructure:"constraints" yaml:"constraints"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

// ProgramConfig identifies the token-swap program.
type ProgramConfig struct {
	ID string `mapstructure:"id" yaml:"id"`
}

// CurveConfig describes the default curve for new pools.
type CurveConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Amp  uint64 `mapstructure:"amp" yaml:"amp"`
}

// ConstraintsConfig restricts pool creation when Enabled.
type ConstraintsConfig struct {
	Enabled    bool       `mapstructure:"enabled" yaml:"enabled"`
	OwnerKey   string     `mapstructure:"owner_key" yaml:"owner_key"`
	CurveTypes []string   `mapstructure:"curve_types" yaml:"curve_types"`
	Fees       curve.Fees `mapstructure:"fees" yaml:"fees"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Backend   string `mapstructure:"backend" yaml:"backend"` // log or prometheus
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
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
	return &Config{
		Log: common.LogConfig{
			Level:  "info",
			Format: "text",
		},
		Program: ProgramConfig{
			ID: DefaultProgramID,
		},
		Fees: fees,
		Curve: CurveConfig{
			Type: curve.CurveTypeStable.String(),
			Amp:  curve.DefaultAmp,
		},
		Constraints: ConstraintsConfig{
			Enabled:    false,
			CurveTypes: []string{curve.CurveTypeStable.String()},
			Fees:       fees,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Backend:   "log",
			Namespace: "tokenswap",
		},
	}
}

// setDefaults registers every key so that environment variables can
// override values that are absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	defaults := viper.New()
	defaults.SetConfigType("yaml")
	if err := defaults.ReadConfig(bytes.NewReader(raw)); err != nil {
		return err
	}
	for _, key := range defaults.AllKeys() {
		v.SetDefault(key, defaults.Get(key))
	}
	return nil
}

// Load loads configuration from file and environment. An empty configPath
// searches for .tokenswap.yaml in the working and home directories; a missing
// file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if err := setDefaults(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to set defaults: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".tokenswap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Write encodes cfg as YAML to w.
func Write(w io.Writer, cfg *Config) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}

// Validate checks that every section can be turned into domain values.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if _, err := c.ProgramID(); err != nil {
		return err
	}
	if err := c.Fees.Validate(); err != nil {
		return fmt.Errorf("fees: %w", err)
	}
	swapCurve, err := c.SwapCurve()
	if err != nil {
		return err
	}
	if err := swapCurve.Validate(); err != nil {
		return fmt.Errorf("curve: %w", err)
	}
	if _, err := c.SwapConstraints(); err != nil {
		return err
	}
	switch c.Metrics.Backend {
	case "log", "prometheus":
	default:
		return fmt.Errorf("metrics: unknown backend %q", c.Metrics.Backend)
	}
	return nil
}

// ProgramID parses the configured program ID.
func (c *Config) ProgramID() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(c.Program.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("program: invalid id %q: %w", c.Program.ID, err)
	}
	return id, nil
}

// SwapCurve builds the configured default curve.
func (c *Config) SwapCurve() (*curve.SwapCurve, error) {
	curveType, err := curve.ParseCurveType(c.Curve.Type)
	if err != nil {
		return nil, fmt.Errorf("curve: %w", err)
	}
	switch curveType {
	case curve.CurveTypeStable:
		return curve.NewSwapCurve(curve.NewStableCurve(c.Curve.Amp)), nil
	default:
		return nil, fmt.Errorf("curve: no builder for %s", curveType)
	}
}

// SwapConstraints returns nil when constraints are disabled.
func (c *Config) SwapConstraints() (*state.SwapConstraints, error) {
	if !c.Constraints.Enabled {
		return nil, nil
	}
	owner, err := solana.PublicKeyFromBase58(c.Constraints.OwnerKey)
	if err != nil {
		return nil, fmt.Errorf("constraints: invalid owner key %q: %w", c.Constraints.OwnerKey, err)
	}
	curveTypes := make([]curve.CurveType, 0, len(c.Constraints.CurveTypes))
	for _, name := range c.Constraints.CurveTypes {
		curveType, err := curve.ParseCurveType(name)
		if err != nil {
			return nil, fmt.Errorf("constraints: %w", err)
		}
		curveTypes = append(curveTypes, curveType)
	}
	return &state.SwapConstraints{
		OwnerKey:        owner,
		ValidCurveTypes: curveTypes,
		Fees:            c.Constraints.Fees,
	}, nil
}
