package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "veldt",
	Short: "Veldt is a JMAP server",
	Long:  `Veldt serves the JMAP (RFC 8620) API: batched method calls with result references, a session resource, and pluggable data-type extensions.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the config file (eg. config.yaml)")
}
