package launch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Launch is one child invocation inside a sweep.
type Launch struct {
	Seed    int
	Command Command
}

// Result is the outcome of one Launch.
type Result struct {
	Launch Launch
	Code   int
	Err    error
}

// Hooks observe a sweep. Both functions are optional and may be called from
// multiple goroutines when the sweep runs in parallel.
type Hooks struct {
	// Started is called before a launch starts and returns an opaque token
	// handed back to Finished (e.g. a ledger run id).
	Started  func(Launch) string
	Finished func(token string, r Result)
}

// Pacer gates each child start. *ratelimit.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SweepOptions configure Sweep.
type SweepOptions struct {
	// Parallel bounds concurrent children. Values below 1 mean 1.
	Parallel int

	// Pacer, when set, is waited on before every start.
	Pacer Pacer

	Hooks Hooks
}

// ExitInterrupted is the status for a sweep cut short by an interrupt.
const ExitInterrupted = 130

// errChildFailed cancels the remaining sweep once a child reports non-zero.
var errChildFailed = errors.New("child failed")

// Sweep runs launches with at most opts.Parallel children at a time and stops
// starting new ones after the first failure. Running siblings are
// interrupted through ctx when that happens.
//
// The returned status is the status of the first launch observed to fail,
// or 0. The error is the first start failure, if any.
func Sweep(ctx context.Context, runner Runner, launches []Launch, opts SweepOptions) (int, error) {
	parallel, hooks := opts.Parallel, opts.Hooks
	if parallel < 1 {
		parallel = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	var (
		once     sync.Once
		status   int
		startErr error
		mu       sync.Mutex
		ran      int
	)
	fail := func(code int, err error) {
		once.Do(func() {
			status = code
			startErr = err
		})
	}

	for _, l := range launches {
		l := l // per-iteration copy; go.mod targets go1.21 loop semantics
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if opts.Pacer != nil {
				if err := opts.Pacer.Wait(gctx); err != nil {
					return nil
				}
			}
			mu.Lock()
			ran++
			mu.Unlock()
			var token string
			if hooks.Started != nil {
				token = hooks.Started(l)
			}
			code, err := runner.Run(gctx, l.Command)
			if hooks.Finished != nil {
				hooks.Finished(token, Result{Launch: l, Code: code, Err: err})
			}
			if err != nil || code != 0 {
				fail(code, err)
				if err != nil {
					return fmt.Errorf("seed %d: %w", l.Seed, err)
				}
				return errChildFailed
			}
			return nil
		})
	}
	_ = g.Wait()

	if status == 0 && startErr == nil && ran < len(launches) && ctx.Err() != nil {
		// Interrupted before every launch got to run.
		return ExitInterrupted, nil
	}
	return status, startErr
}
