package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/manojoshi/querykit/config"
)

func newSeedCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write demo orders as hashes and create the search index when needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be >= 1")
			}
			ctx := cmd.Context()
			hashes, err := a.hashStore()
			if err != nil {
				return err
			}
			if a.cfg.Backend == config.BackendSearch {
				src, err := a.searchSource()
				if err != nil {
					return err
				}
				if err := src.EnsureIndex(ctx); err != nil {
					return err
				}
				a.logger.Info("index ready", zap.String("index", src.Index()))
			}

			rows := demoOrders(count, time.Now())
			if err := hashes.SaveAll(ctx, rows); err != nil {
				return err
			}
			a.logger.Info("seeded orders", zap.Int("count", len(rows)), zap.String("prefix", hashes.Prefix()))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d orders under %s\n", len(rows), hashes.Prefix())
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 50, "number of orders to write")
	return cmd
}
