package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var primitivesCmd = &cobra.Command{
	Use:   "primitives",
	Short: "List the declared primitive catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildRegistry()
		if err != nil {
			return err
		}
		fmt.Println(renderCatalog(reg.List()))
		return nil
	},
}
