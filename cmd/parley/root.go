package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a reentrant dialog engine for conversational assistants",
	Long:  `Parley runs multi-turn dialog flows whose state survives process restarts, declared in YAML or built with the Go library.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dialogs", "dialogs.yaml", "Path to the YAML dialog definition")
	rootCmd.PersistentFlags().String("config", "", "Path to the server configuration file")
}
