package usecases

import (
	"github.com/lintang-b-s/graphcut/pkg/instance"
	"go.uber.org/zap"
)

// SolveFunc solves one instance. instance.Solve satisfies it.
type SolveFunc func(inst *instance.Instance, opts instance.SolveOptions, log *zap.Logger) (*instance.Solution, error)
