// Package probe polls a service until it reports ready or a deadline passes.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// minAttemptTimeout bounds a single check when the poll interval is very short.
const minAttemptTimeout = time.Second

// ErrServiceNotReady is matched by every *ServiceNotReadyError.
var ErrServiceNotReady = errors.New("service not ready")

// ServiceNotReadyError is returned when a service did not become ready within the probe's MaxElapsed.
type ServiceNotReadyError struct {
	Service string
	Elapsed time.Duration
	LastErr error
}

func (e *ServiceNotReadyError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("%s not ready after %s", e.Service, e.Elapsed.Round(time.Millisecond))
	}

	return fmt.Sprintf("%s not ready after %s: %v", e.Service, e.Elapsed.Round(time.Millisecond), e.LastErr)
}

// Is makes errors.Is(err, ErrServiceNotReady) hold.
func (e *ServiceNotReadyError) Is(target error) bool {
	return target == ErrServiceNotReady
}

func (e *ServiceNotReadyError) Unwrap() error {
	return e.LastErr
}

// Status is the health of a service as seen by the last poll.
type Status struct {
	Name      string
	Ready     bool
	LastError error
	Attempts  int
	Elapsed   time.Duration
}

// Check reports nil when the service is ready.
type Check func(ctx context.Context) error

// Probe polls a Check at a constant interval.
type Probe struct {
	Name       string
	Interval   time.Duration
	MaxElapsed time.Duration
	// Progress receives the percentage of MaxElapsed spent so far. It never decreases and is 100 on success.
	Progress func(pct int)
	Log      *zap.Logger
}

// Wait polls check until it succeeds, MaxElapsed passes or ctx is done.
func (p Probe) Wait(ctx context.Context, check Check) (Status, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	log = log.With(zap.String("service", p.Name))

	var (
		st    = Status{Name: p.Name}
		start = time.Now()
		b     = backoff.NewConstantBackOff(p.Interval)
		pct   = -1
	)

	report := func(v int) {
		if v > pct {
			pct = v

			if p.Progress != nil {
				p.Progress(v)
			}
		}
	}

	for {
		st.Attempts++

		actx, cancel := context.WithTimeout(ctx, p.attemptTimeout())
		err := check(actx)

		cancel()

		st.Elapsed = time.Since(start)

		if err == nil {
			st.Ready, st.LastError = true, nil
			report(100)
			log.Info("service ready", zap.Int("attempts", st.Attempts), zap.Duration("elapsed", st.Elapsed))

			return st, nil
		}

		st.LastError = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return st, ctxErr
		}

		if st.Elapsed >= p.MaxElapsed {
			log.Error("service not ready", zap.Duration("elapsed", st.Elapsed), zap.Error(err))

			return st, &ServiceNotReadyError{Service: p.Name, Elapsed: st.Elapsed, LastErr: err}
		}

		report(p.percent(st.Elapsed))
		log.Debug("service not ready yet", zap.Int("attempt", st.Attempts), zap.Error(err))

		wait := b.NextBackOff()
		if remaining := p.MaxElapsed - st.Elapsed; wait > remaining {
			wait = remaining
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()

			return st, ctx.Err()
		case <-t.C:
		}
	}
}

func (p Probe) attemptTimeout() time.Duration {
	if p.Interval < minAttemptTimeout {
		return minAttemptTimeout
	}

	return p.Interval
}

func (p Probe) percent(elapsed time.Duration) int {
	if p.MaxElapsed <= 0 {
		return 99
	}

	v := int(elapsed * 100 / p.MaxElapsed)
	if v > 99 {
		v = 99
	}

	return v
}
