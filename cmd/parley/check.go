package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/parleyio/parley/pkg/declarative"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a YAML dialog definition",
	Long:  `Loads the dialog definition and reports authoring errors without starting a server.`,
	Run: func(cmd *cobra.Command, args []string) {
		dialogs, _ := cmd.Flags().GetString("dialogs")
		if len(args) > 0 {
			dialogs = args[0]
		}

		bundle, err := declarative.LoadFile(dialogs)
		if err != nil {
			fmt.Printf("Invalid: %v\n", err)
			os.Exit(1)
		}

		ids := bundle.Registry.IDs()
		sort.Strings(ids)

		fmt.Printf("OK: %s\n", dialogs)
		fmt.Printf("  root: %s\n", bundle.Root)
		fmt.Printf("  dialogs: %d\n", len(ids))
		for _, id := range ids {
			fmt.Printf("    - %s\n", id)
		}
		if len(bundle.Actions) > 0 {
			fmt.Printf("  actions: %d\n", len(bundle.Actions))
			events := make([]string, 0, len(bundle.Actions))
			for event := range bundle.Actions {
				events = append(events, event)
			}
			sort.Strings(events)
			for _, event := range events {
				fmt.Printf("    - %s -> %s\n", event, bundle.Actions[event])
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
