package util

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lintang-b-s/graphcut/pkg"
	"golang.org/x/exp/constraints"
)

// error

type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}

	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Code() error {
	return e.code
}

var (
	ErrInternalServerError = errors.New("internal Server Error")
	ErrNotFound            = errors.New("your requested Item is not found")
	ErrBadParamInput       = errors.New("given Param is not valid")
	ErrUnprocessable       = errors.New("given Param cannot be processed")
)

var MessageInternalServerError string = "internal server error"

func StopConcurrentOperation(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Abs[T constraints.Signed](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

// AddInt64 returns a+b, or pkg.ErrOverflow when the sum does not fit in int64.
func AddInt64(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %d + %d", pkg.ErrOverflow, a, b)
	}
	return a + b, nil
}

// MulInt64 returns a*b for non-negative operands, or pkg.ErrOverflow.
func MulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: negative operand %d * %d", pkg.ErrInvalidArgument, a, b)
	}
	if a > math.MaxInt64/b {
		return 0, fmt.Errorf("%w: %d * %d", pkg.ErrOverflow, a, b)
	}
	return a * b, nil
}

// SumInt64 adds all values with overflow checking.
func SumInt64(values ...int64) (int64, error) {
	var (
		total int64
		err   error
	)
	for _, v := range values {
		total, err = AddInt64(total, v)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
