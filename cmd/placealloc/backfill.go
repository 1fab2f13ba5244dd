package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ougirez/placealloc/internal/pkg/logger"
	"github.com/ougirez/placealloc/internal/pkg/store"
	"github.com/ougirez/placealloc/internal/service/practices"
)

func backfillCmd() *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "backfill [practice-file]",
		Short: "Load a practice file (csv or xlsx) into postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd.Context(), args[0], sheet)
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "xlsx sheet, the first one when empty")
	return cmd
}

func runBackfill(ctx context.Context, path, sheet string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := connectPostgres(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := practices.NewPracticesService(store.NewStore(pool), practicesConfig())
	n, err := svc.Backfill(ctx, path, sheet)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "backfill done: %d practices", n)
	return nil
}
