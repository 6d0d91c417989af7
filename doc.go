/*
Package parley is a reentrant dialog engine for building multi-turn conversational
assistants that survive process restarts.

It models a conversation as a persisted stack of dialog frames. Each inbound
activity hydrates the stack from a state store, drives exactly one turn of the
active dialog, and writes the stack back before replying. Because nothing
lives in process memory between turns, any replica can serve any turn.

# Concept

Dialogs are registered by ID in a registry and come in three shapes: waterfalls
(ordered step sequences with a persisted cursor), prompts (ask, validate,
retry), and components (composite dialogs carrying their own registry and
child stack). A turn driver sits in front, handling recognition, interruption
signals like cancel and help, skill actions, and optimistic-concurrency
conflicts against the store.

# Usage

Build a registry, then hand it to the Engine:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/parleyio/parley"
		"github.com/parleyio/parley/pkg/dialog"
		"github.com/parleyio/parley/pkg/domain"
	)

	func main() {
		registry := dialog.NewRegistry().MustRegister(
			dialog.NewPrompt("ask-name", "What is your name?"),
			dialog.NewWaterfall("main",
				func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
					if !step.Resumed {
						return step.Prompt(ctx, "ask-name", dialog.PromptOptions{})
					}
					return step.Next(ctx, step.Result)
				},
				func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
					step.SendText(fmt.Sprintf("Hello, %v!", step.Result))
					return step.EndDialog(ctx, step.Result)
				},
			),
		)

		engine, err := parley.New(registry, "main")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		out, _ := engine.OnTurn(ctx, "conv-1", domain.NewMessage("hi"))
		for _, activity := range out {
			fmt.Println(activity.Text)
		}
	}

Simple skills can skip Go entirely and load a YAML definition with
NewFromFile. Persistent deployments swap the default in-memory store for the
Redis adapter via WithStore.
*/
package parley
