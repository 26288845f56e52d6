package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenSymbolicAI/parapet/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan.yaml>",
	Short: "Parse and statically validate a plan document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		policy, err := cfg.CoercionPolicy()
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

		p, err := plan.Parse(doc)
		if err != nil {
			return err
		}
		if err := plan.Validate(p, reg, plan.WithCoercion(policy)); err != nil {
			return err
		}

		fmt.Printf("plan is valid: %d top-level steps, primitives %v\n", len(p.Steps), p.Primitives())
		return nil
	},
}
