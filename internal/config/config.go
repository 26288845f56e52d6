// Package config loads and validates parapet configuration from YAML
// files via viper. Configuration covers the executor, the goal-seeking
// budget, and the optional LLM planner backend.
package config

import (
	"fmt"
	"time"

	"github.com/OpenSymbolicAI/parapet/internal/plan"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Config is the root configuration.
type Config struct {
	Executor    ExecutorConfig    `mapstructure:"executor"`
	GoalSeeking GoalSeekingConfig `mapstructure:"goal_seeking"`
	LLM         LLMConfig         `mapstructure:"llm"`
}

// ExecutorConfig configures the plan executor.
type ExecutorConfig struct {
	// StepTimeout bounds a single primitive invocation.
	StepTimeout time.Duration `mapstructure:"step_timeout"`

	// Coercion is the literal coercion policy: "strict" or "permissive".
	Coercion string `mapstructure:"coercion"`

	// MaxParallel allows up to n independent read-only steps to overlap.
	MaxParallel int `mapstructure:"max_parallel"`
}

// GoalSeekingConfig bounds the goal-seeking blueprint.
type GoalSeekingConfig struct {
	MaxRounds   int           `mapstructure:"max_rounds"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

// LLMConfig selects the planner model backend.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Executor: ExecutorConfig{
			StepTimeout: time.Minute,
			Coercion:    "strict",
			MaxParallel: 1,
		},
		GoalSeeking: GoalSeekingConfig{
			MaxRounds:   5,
			MaxDuration: 10 * time.Minute,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Executor.StepTimeout <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "executor.step_timeout must be positive")
	}
	if _, err := c.CoercionPolicy(); err != nil {
		return err
	}
	if c.Executor.MaxParallel < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "executor.max_parallel cannot be negative")
	}
	if c.GoalSeeking.MaxRounds < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "goal_seeking.max_rounds cannot be negative")
	}
	if c.GoalSeeking.MaxRounds == 0 && c.GoalSeeking.MaxDuration <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "goal_seeking must bound rounds or duration")
	}
	return nil
}

// CoercionPolicy maps the configured coercion name to the validator policy.
func (c *Config) CoercionPolicy() (plan.CoercionPolicy, error) {
	switch c.Executor.Coercion {
	case "", "strict":
		return plan.CoerceStrict, nil
	case "permissive":
		return plan.CoercePermissive, nil
	default:
		return plan.CoerceStrict, types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("executor.coercion must be strict or permissive, got %q", c.Executor.Coercion))
	}
}
