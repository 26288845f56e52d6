package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenSymbolicAI/parapet/internal/blueprint"
	"github.com/OpenSymbolicAI/parapet/internal/planner"
)

var llmEvaluator bool

var seekCmd = &cobra.Command{
	Use:   "seek <goal>",
	Short: "Iteratively plan and execute toward a goal using the configured LLM",
	Long: `seek asks the configured LLM planner for a plan, validates and executes
it, and keeps iterating until the evaluator is satisfied or the budget is
exhausted. The model only ever sees primitive signatures, plan structure,
and scrubbed outcomes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
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

		model, err := planner.NewModel(planner.ModelConfig{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
		if err != nil {
			return err
		}

		var evaluator blueprint.Evaluator = planner.SuccessEvaluator()
		if llmEvaluator {
			evaluator = planner.NewLLMEvaluator(model)
		}

		seeker, err := blueprint.NewGoalSeeker(
			runner,
			planner.NewLLM(model, planner.WithLLMLogger(newLogger())),
			evaluator,
			blueprint.Budget{
				MaxRounds:   cfg.GoalSeeking.MaxRounds,
				MaxDuration: cfg.GoalSeeking.MaxDuration,
			},
			blueprint.WithGoalSeekerLogger(newLogger()),
		)
		if err != nil {
			return err
		}

		result, seekErr := seeker.Seek(cmd.Context(), args[0])
		if result != nil {
			fmt.Println(renderSeekResult(result))
		}
		return seekErr
	},
}

func init() {
	seekCmd.Flags().BoolVar(&llmEvaluator, "llm-evaluator", false, "judge goal satisfaction with the LLM instead of the success heuristic")
}
