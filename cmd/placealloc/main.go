package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ougirez/placealloc/internal/api"
	"github.com/ougirez/placealloc/internal/pkg/config"
	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/logger"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "placealloc",
		Short:         "Place based allocation tool for ICB weighted populations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := config.Init(configPath); err != nil {
				return err
			}
			return logger.Init(viper.GetString(constants.ViperLoggerModeKey))
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(calculateCmd())
	rootCmd.AddCommand(backfillCmd())

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				viper.Set(constants.ViperHTTPAddrKey, addr)
			}
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address, overrides http.addr")
	return cmd
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.validate(ctx); err != nil {
		return err
	}

	svc, err := api.NewAPIService(deps.practices, deps.sessions, deps.allocation, deps.auth)
	if err != nil {
		return err
	}

	addr := viper.GetString(constants.ViperHTTPAddrKey)
	logger.Infof(ctx, "listening on %s", addr)
	go svc.Serve(addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return svc.Shutdown(shutdownCtx)
}
