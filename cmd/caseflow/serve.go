package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/caseflow"
	"github.com/aretw0/caseflow/internal/logging"
	httpadapter "github.com/aretw0/caseflow/pkg/adapters/http"
	"github.com/aretw0/caseflow/pkg/adapters/postgres"
	redisadapter "github.com/aretw0/caseflow/pkg/adapters/redis"
	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/dsl"
	"github.com/aretw0/caseflow/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve [plan-dir]",
	Short: "Serve the engine over HTTP",
	Long:  `Loads YAML plan models from the given directory (default ".") and serves the JSON API. Without --redis-addr or --database-url, state lives in memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		return runServe(cmd, dir)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("redis-addr", "", "Redis address for state storage")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database")
	serveCmd.Flags().String("database-url", "", "PostgreSQL URL for state storage")
	serveCmd.Flags().Int("retry-attempts", 3, "Optimistic lock retries per command")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, dir string) error {
	logger := newLogger(cmd)

	plans, err := loadPlans(dir)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return fmt.Errorf("no plan models found in %s", dir)
	}

	retries, _ := cmd.Flags().GetInt("retry-attempts")
	metrics := observability.New()
	opts := []caseflow.Option{
		caseflow.WithPlans(plans...),
		caseflow.WithLogger(logger),
		caseflow.WithMetrics(metrics),
		caseflow.WithLifecycleHooks(metrics.Hooks()),
		caseflow.WithRetryAttempts(retries),
	}

	redisAddr, _ := cmd.Flags().GetString("redis-addr")
	databaseURL, _ := cmd.Flags().GetString("database-url")
	switch {
	case redisAddr != "" && databaseURL != "":
		return fmt.Errorf("--redis-addr and --database-url are mutually exclusive")
	case redisAddr != "":
		password, _ := cmd.Flags().GetString("redis-password")
		db, _ := cmd.Flags().GetInt("redis-db")
		store := redisadapter.New(redisAddr, password, db)
		defer store.Close()
		opts = append(opts, caseflow.WithStore(store))
		logger.Info("using redis state store", "addr", redisAddr)
	case databaseURL != "":
		db, err := postgres.Open(cmd.Context(), databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer db.Close()
		if err := postgres.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		opts = append(opts, caseflow.WithStore(postgres.NewStore(db)))
		logger.Info("using postgres state store")
	default:
		logger.Info("using in-memory state store")
	}

	eng, err := caseflow.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to init engine: %w", err)
	}

	handler, err := httpadapter.NewHandler(eng,
		httpadapter.WithLogger(logger),
		httpadapter.WithMetricsHandler(metrics.Handler()),
	)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", addr, "plans", len(plans))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

// loadPlans parses every .yaml/.yml file in dir as a plan model.
func loadPlans(dir string) ([]*domain.PlanModel, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan directory: %w", err)
	}

	var plans []*domain.PlanModel
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		plan, err := dsl.ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}
	return logging.New(level)
}
