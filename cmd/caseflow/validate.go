package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [plan-dir]",
	Short: "Check plan models for consistency",
	Long:  `Parses every YAML plan model in the directory and reports structural problems: unknown children, dangling sentry sources, missing roots.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		plans, err := loadPlans(dir)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		if len(plans) == 0 {
			fmt.Printf("No plan models found in %s\n", dir)
			os.Exit(1)
		}
		for _, p := range plans {
			fmt.Printf("%s (%s): %d nodes ✅\n", p.Key, p.ID, len(p.Nodes))
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
