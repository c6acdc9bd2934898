package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/instance"
	"github.com/lintang-b-s/graphcut/pkg/logger"
	"github.com/lintang-b-s/graphcut/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	instanceFiles = flag.String("instance", "", "comma separated instance files (.json or .json.bz2), more can be given as arguments")
	algorithm     = flag.String("algorithm", "", "expansion or swap (default SOLVER_ALGORITHM or expansion)")
	maxIter       = flag.Int("max_iter", pkg.UNBOUNDED_ITERATIONS, "max cycles per instance, negative runs until convergence")
	randomOrder   = flag.Bool("random_order", false, "visit labels in a seeded random order")
	seed          = flag.Uint64("seed", pkg.DEFAULT_SEED, "seed of the random label order")
	solverName    = flag.String("solver", "", "max-flow solver: bk or dinic (default SOLVER_MAXFLOW or bk)")
	strict        = flag.Bool("strict", false, "fail on energy terms the move graph cannot represent exactly")
	checkCuts     = flag.Bool("check_cuts", false, "check every cut against its flow value")
	workers       = flag.Int("workers", 0, "instances solved in parallel (default SOLVER_WORKERS or 4)")
	out           = flag.String("out", "", "write the results to this file (.json or .json.bz2) instead of stdout")
	configPath    = flag.String("config", "", "config file, default ./data/config.*")
	verbosity     = flag.Int("verbosity", pkg.VERBOSITY_SILENT, "0 silent, 1 log every cycle, 2 log every move")
	logLevel      = flag.String("log_level", "info", "debug, info, warn or error")
)

type result struct {
	Name     string             `json:"name"`
	Solution *instance.Solution `json:"solution,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func main() {
	flag.Parse()
	logger, err := logger.NewWithLevel(*logLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync

	if err := util.ReadConfig(*configPath); err != nil {
		logger.Fatal("read config", zap.Error(err))
	}
	viper.SetDefault("SOLVER_ALGORITHM", "expansion")
	viper.SetDefault("SOLVER_MAXFLOW", "bk")
	viper.SetDefault("SOLVER_WORKERS", 4)

	opts, err := solveOptions()
	if err != nil {
		logger.Fatal("invalid options", zap.Error(err))
	}

	files := flag.Args()
	if *instanceFiles != "" {
		files = append(strings.Split(*instanceFiles, ","), files...)
	}
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	batch := make([]instance.NamedInstance, 0, len(files))
	for _, f := range files {
		inst, err := instance.ReadFile(f)
		if err != nil {
			logger.Fatal("read instance", zap.String("file", f), zap.Error(err))
		}
		batch = append(batch, instance.NamedInstance{Name: filepath.Base(f), Instance: inst})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	numWorkers := *workers
	if numWorkers <= 0 {
		numWorkers = viper.GetInt("SOLVER_WORKERS")
	}
	results, err := instance.SolveBatch(ctx, batch, opts, numWorkers, logger)
	if err != nil {
		logger.Fatal("solve batch", zap.Error(err))
	}

	failed := 0
	output := make([]result, len(results))
	for i, res := range results {
		output[i] = result{Name: res.Name, Solution: res.Solution}
		if res.Err != nil {
			output[i].Error = res.Err.Error()
			failed++
			continue
		}
		logger.Info("solved", zap.String("instance", res.Name), zap.Int64("energy", res.Solution.Energy),
			zap.Int("cycles", res.Solution.Cycles), zap.Bool("converged", res.Solution.Converged))
	}

	if *out != "" {
		err = instance.WriteFile(*out, output)
	} else {
		err = instance.Encode(os.Stdout, output)
	}
	if err != nil {
		logger.Fatal("write results", zap.Error(err))
	}
	if failed > 0 {
		logger.Error(fmt.Sprintf("%d of %d instances failed", failed, len(results)))
		os.Exit(1)
	}
}

func solveOptions() (instance.SolveOptions, error) {
	opts := instance.DefaultSolveOptions()

	algo := *algorithm
	if algo == "" {
		algo = viper.GetString("SOLVER_ALGORITHM")
	}
	moveType, ok := pkg.GetMoveType(algo)
	if !ok {
		return opts, fmt.Errorf("%w: unknown algorithm %q", pkg.ErrInvalidArgument, algo)
	}
	name := *solverName
	if name == "" {
		name = viper.GetString("SOLVER_MAXFLOW")
	}
	solverType, ok := pkg.GetSolverType(name)
	if !ok {
		return opts, fmt.Errorf("%w: unknown max-flow solver %q", pkg.ErrInvalidArgument, name)
	}

	opts.Algorithm = moveType
	opts.MaxIterations = *maxIter
	opts.Optimizer.Solver = solverType
	opts.Optimizer.RandomOrder = *randomOrder
	opts.Optimizer.Seed = *seed
	opts.Optimizer.Strict = *strict
	opts.Optimizer.Debug = *checkCuts
	opts.Optimizer.Verbosity = *verbosity
	return opts, nil
}
