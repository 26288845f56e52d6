package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenSymbolicAI/parapet/internal/blueprint"
	"github.com/OpenSymbolicAI/parapet/internal/config"
	"github.com/OpenSymbolicAI/parapet/internal/exec"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/primitive/builtins"
)

var linearOnly bool

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Validate and execute a plan document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		doc, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		reg, err := buildRegistry()
		if err != nil {
			return err
		}

		runner, err := buildRunner(cfg, reg)
		if err != nil {
			return err
		}

		var result *blueprint.Result
		if linearOnly {
			result, err = runner.PlanExecute(cmd.Context(), doc)
		} else {
			result, err = runner.DesignExecute(cmd.Context(), doc)
		}
		if result != nil {
			fmt.Println(renderResult(result))
		}
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&linearOnly, "linear", false, "reject conditional and loop steps (PlanExecute strategy)")
}

// buildRegistry assembles and freezes the builtin primitive catalog.
func buildRegistry() (primitive.Registry, error) {
	reg := primitive.NewRegistry()
	if err := builtins.Register(reg, builtins.Config{EmitWriter: os.Stdout}); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}

func buildRunner(cfg *config.Config, reg primitive.Registry) (*blueprint.Runner, error) {
	policy, err := cfg.CoercionPolicy()
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	executor := exec.New(
		exec.WithLogger(logger),
		exec.WithStepTimeout(cfg.Executor.StepTimeout),
		exec.WithCoercion(policy),
		exec.WithMaxParallel(cfg.Executor.MaxParallel),
	)

	return blueprint.NewRunner(reg,
		blueprint.WithExecutor(executor),
		blueprint.WithCoercionPolicy(policy),
		blueprint.WithRunnerLogger(logger),
	), nil
}
