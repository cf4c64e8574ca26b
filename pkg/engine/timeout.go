package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/brepfacade/pkg/model"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// ErrSuperseded is returned when a newer evaluation started while this one
// was running.
var ErrSuperseded = errors.New("evaluation superseded by newer request")

type evalResult struct {
	model  *model.Model
	errors []EvalError
	err    error
}

// waitWithTimeout waits up to timeout for a result on ch. A result whose
// generation is no longer current is discarded.
//
// On timeout the evaluating goroutine keeps running; its result lands in
// the buffered channel and is dropped.
func waitWithTimeout(
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*model.Model, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.model, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
