package main

import (
	"context"
	"errors"
	"flag"

	"github.com/lintang-b-s/graphcut/pkg/http"
	"github.com/lintang-b-s/graphcut/pkg/http/usecases"
	"github.com/lintang-b-s/graphcut/pkg/logger"
	"github.com/lintang-b-s/graphcut/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath   = flag.String("config", "", "config file, default ./data/config.*")
	useRateLimit = flag.Bool("rate_limit", false, "limit requests per client ip (API_RATE_LIMIT, API_RATE_BURST)")
)

func main() {
	flag.Parse()
	if err := util.ReadConfig(*configPath); err != nil {
		panic(err)
	}
	viper.SetDefault("LOG_LEVEL", "info")
	logger, err := logger.NewWithLevel(viper.GetString("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}

	viper.SetDefault("SOLVER_MAX_CONCURRENT", 4)
	viper.SetDefault("SOLVER_MAX_SITES", 1_000_000)
	viper.SetDefault("SOLVER_MAX_LABELS", 256)
	viper.SetDefault("SOLVER_MAX_ENTRIES", 1<<24)
	viper.SetDefault("SOLVER_MAX_ITERATIONS", 1000)

	solverService := usecases.NewSolverService(logger, usecases.Limits{
		MaxConcurrent: viper.GetInt("SOLVER_MAX_CONCURRENT"),
		MaxSites:      viper.GetInt("SOLVER_MAX_SITES"),
		MaxLabels:     viper.GetInt("SOLVER_MAX_LABELS"),
		MaxEntries:    viper.GetInt("SOLVER_MAX_ENTRIES"),
		MaxIterations: viper.GetInt("SOLVER_MAX_ITERATIONS"),
	})

	api := http.NewServer(logger)

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}
	api.Use(ctx,
		logger, *useRateLimit, solverService)

	signal := http.GracefulShutdown()

	logger.Info("graphcut Solver Server Stopped", zap.String("signal", signal.String()))
	cleanup()
	if err := api.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("api stopped with error", zap.Error(err))
	}
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
