package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/caseflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of caseflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("caseflow version %s\n", strings.TrimSpace(caseflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
