package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs longer than EvalTimeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned to callers whose evaluation was overtaken
	// by a newer one on the same Engine.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

// evalResult passes evaluation results through channels.
type evalResult struct {
	program *Program
	errors  []EvalError
	err     error
}

// waitWithTimeout waits for a result from ch, but returns ErrTimeout if the
// evaluation exceeds EvalTimeout. A generation counter discards stale
// results: on timeout the goroutine may still be running, and its result
// is dropped when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Program, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.program, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, EvalTimeout)
	}
}
