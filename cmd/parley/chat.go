package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/parleyio/parley"
	"github.com/parleyio/parley/internal/logging"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/parleyio/parley/pkg/recognize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a dialog flow interactively",
	Long:  `Runs a dialog flow in the terminal with in-memory state, for authoring and debugging.`,
	Run: func(cmd *cobra.Command, args []string) {
		dialogs, _ := cmd.Flags().GetString("dialogs")
		plain, _ := cmd.Flags().GetBool("plain")

		engine, err := parley.NewFromFile(dialogs,
			parley.WithLogger(logging.NewNop()),
			parley.WithRecognizer(recognize.NewKeyword(recognize.DefaultRules()...)),
		)
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}

		render := newRenderer(plain)
		conversationID := uuid.NewString()
		ctx := context.Background()
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("--- Parley Chat (type 'exit' to quit) ---")

		// Open the conversation so the root dialog can greet first.
		deliver(render, mustTurn(ctx, engine, conversationID, domain.Activity{Type: domain.ActivityConversationUpdate}))

		for {
			fmt.Print("> ")
			line, err := reader.ReadString('\n')
			if err != nil {
				fmt.Println("\nBye!")
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "exit" || text == "quit" {
				fmt.Println("Bye!")
				return
			}

			deliver(render, mustTurn(ctx, engine, conversationID, domain.NewMessage(text)))
		}
	},
}

func mustTurn(ctx context.Context, engine *parley.Engine, conversationID string, activity domain.Activity) []domain.Activity {
	out, err := engine.OnTurn(ctx, conversationID, activity)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return out
}

func deliver(render func(string) string, out []domain.Activity) {
	for _, activity := range out {
		if activity.Type != domain.ActivityMessage || activity.Text == "" {
			continue
		}
		fmt.Print(render(activity.Text))
	}
}

// newRenderer returns a markdown renderer when Stdout is a terminal, plain
// text otherwise.
func newRenderer(plain bool) func(string) string {
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return func(s string) string { return s + "\n" }
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return func(s string) string { return s + "\n" }
	}
	return func(s string) string {
		rendered, err := r.Render(s)
		if err != nil {
			return s + "\n"
		}
		return rendered
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("plain", false, "Disable markdown rendering")
}
