// Package config provides a reusable loader for the kernel's configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/valence-kernel/valence/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Limits carries the implementation-defined bounds (§9) left to the
// deployment: ALT capacity, operation-program size, and guard VM budgets.
// Defaults below match the illustrative values in §2-§4.
type Limits struct {
	ALTCapacity     int `mapstructure:"alt_capacity" json:"alt_capacity"`           // B_alt
	MaxOps          int `mapstructure:"max_ops" json:"max_ops"`                     // K_ops
	GuardStackDepth int `mapstructure:"guard_stack_depth" json:"guard_stack_depth"` // S_g
	GuardStepBudget int `mapstructure:"guard_step_budget" json:"guard_step_budget"` // N_g
	InvokeCost      int `mapstructure:"invoke_cost" json:"invoke_cost"`             // Invoke opcode cost; not read by core, whose costs come from core.OpcodeCost
	DefaultOpCost   int `mapstructure:"default_op_cost" json:"default_op_cost"`     // non-Invoke opcode cost; not read by core, whose costs come from core.OpcodeCost
}

// Config is the unified configuration for a kernel process (CLI tool or dev
// introspection server). It mirrors the YAML files under config/.
type Config struct {
	Kernel Limits `mapstructure:"kernel" json:"kernel"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	Explorer struct {
		BindAddr string `mapstructure:"bind_addr" json:"bind_addr"`
	} `mapstructure:"explorer" json:"explorer"`
}

// Default returns the built-in fallback configuration, used when no config
// file is present (e.g. in tests or a first `kernelctl` invocation).
func Default() Config {
	var c Config
	c.Kernel = Limits{
		ALTCapacity:     32,
		MaxOps:          16,
		GuardStackDepth: 16,
		GuardStepBudget: 2048,
		InvokeCost:      200,
		DefaultOpCost:   1,
	}
	c.Logging.Level = "info"
	c.Explorer.BindAddr = ":8090"
	return c
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig = Default()

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// If no config file is found on the search path, the built-in defaults are
// used silently — this keeps `kernelctl`/`kernelexplorer` usable without a
// config directory for local experimentation, the same tolerance extended
// to a missing `.env` file.
func Load(env string) (*Config, error) {
	AppConfig = Default()

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	} else if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the VALENCE_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("VALENCE_ENV", ""))
}
