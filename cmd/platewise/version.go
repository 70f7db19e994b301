package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platewise/internal/api"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "platewise %s\n", api.Version)
	},
}
