package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parleyio/parley"
	"github.com/parleyio/parley/internal/config"
	"github.com/parleyio/parley/internal/logging"
	"github.com/parleyio/parley/pkg/adapters/httpapi"
	redisstore "github.com/parleyio/parley/pkg/adapters/redis"
	"github.com/parleyio/parley/pkg/recognize"
	"github.com/parleyio/parley/pkg/turn"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the dialog engine in server mode, exposing conversations and skill actions over a JSON API.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		dialogs, _ := cmd.Flags().GetString("dialogs")
		if cfg.Dialogs != "" && !cmd.Flags().Changed("dialogs") {
			dialogs = cfg.Dialogs
		}

		logger := logging.New(logging.ParseLevel(cfg.LogLevel))
		engine, closeStore, err := buildEngine(cfg, dialogs, logger)
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}
		defer closeStore()

		handler := httpapi.NewHandler(engine,
			httpapi.WithActions(engine),
			httpapi.WithResetter(engine),
			httpapi.WithLogger(logger),
			httpapi.WithMetricsGatherer(engine.Metrics()),
		)

		srv := &http.Server{
			Addr:    cfg.Addr,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Parley Server on %s\n", srv.Addr)
			fmt.Printf("Serving dialogs from: %s\n", dialogs)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Parley Server stopped gracefully")
		}
	},
}

// buildEngine assembles an Engine from the config file, returning a closer
// for the backing store.
func buildEngine(cfg config.Config, dialogs string, logger *slog.Logger) (*parley.Engine, func(), error) {
	opts := []parley.Option{
		parley.WithLogger(logger),
		parley.WithRecognizer(recognize.NewKeyword(recognize.DefaultRules()...)),
		parley.WithRouter(turn.NewRouter(turn.WithThreshold(cfg.Turn.InterruptionThreshold))),
		parley.WithCallTimeout(cfg.Turn.CallTimeout),
	}
	if cfg.Root != "" {
		opts = append(opts, parley.WithRoot(cfg.Root))
	}

	closeStore := func() {}
	if cfg.Redis != nil {
		store := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithTTL(cfg.Redis.TTL))
		opts = append(opts, parley.WithStore(store))
		closeStore = func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing redis store", "err", err)
			}
		}
	}

	engine, err := parley.NewFromFile(dialogs, opts...)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return engine, closeStore, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
