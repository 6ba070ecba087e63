package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/manojoshi/querykit/config"
	"github.com/manojoshi/querykit/driver"
	"github.com/manojoshi/querykit/log"
	"github.com/manojoshi/querykit/repository"
	"github.com/manojoshi/querykit/schema"
	"github.com/manojoshi/querykit/store"
	"github.com/manojoshi/querykit/store/redisearch"
	"github.com/manojoshi/querykit/store/redishash"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	envFile string

	cfg    *config.Config
	logger *zap.Logger
	rdb    redis.UniversalClient
	reg    *schema.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{reg: schema.NewRegistry()}

	root := &cobra.Command{
		Use:           "querykit",
		Short:         "Filter, sort and page demo orders stored in Redis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")

	root.AddCommand(newSeedCmd(a), newSearchCmd(a), newExplainCmd(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	logger, err := log.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	a.rdb = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Debug("connected",
		zap.String("addr", cfg.Redis.Addr),
		zap.String("backend", cfg.Backend))
	return nil
}

func (a *app) close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}

func (a *app) hashStore() (*redishash.Store[Order], error) {
	return redishash.New[Order](a.rdb, a.reg, a.cfg.Prefix)
}

func (a *app) searchSource() (*redisearch.Source[Order], error) {
	hashes, err := a.hashStore()
	if err != nil {
		return nil, err
	}
	return redisearch.New[Order](driver.NewConn(a.rdb), a.reg, a.cfg.Index,
		redisearch.WithPrefix(a.cfg.Prefix),
		redisearch.WithMaterializer[Order](hashes),
	)
}

// source returns the store.Source for the configured backend.
func (a *app) source() (store.Source[Order], error) {
	switch a.cfg.Backend {
	case config.BackendHash:
		return a.hashStore()
	case config.BackendSearch:
		return a.searchSource()
	}
	return nil, fmt.Errorf("querykit: unknown backend %q", a.cfg.Backend)
}

func (a *app) repoOptions() []repository.Opt {
	opts := []repository.Opt{repository.WithLogger(a.logger)}
	if a.cfg.Fallback {
		opts = append(opts, repository.WithInMemoryFallback())
	}
	return opts
}
