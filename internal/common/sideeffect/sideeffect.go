// internal/common/sideeffect/sideeffect.go
package sideeffect

import (
	"context"
	"sync"
	"time"

	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"
	"jelita/internal/common/metrics"
	"jelita/internal/common/observability"
)

// Criticality decides whether a failed cross-service call reaches the caller.
type Criticality int

const (
	// BestEffort effects are attempted once; failure is logged and swallowed.
	BestEffort Criticality = iota
	// Critical effects propagate failure as a DownstreamError.
	Critical
)

func (c Criticality) String() string {
	if c == Critical {
		return "critical"
	}
	return "best_effort"
}

type Effect struct {
	Name        string
	Criticality Criticality
	// Async detaches a best-effort effect from the request so the response is not delayed.
	Async   bool
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Dispatcher struct {
	logger         logger.Logger
	obs            *observability.Observability
	defaultTimeout time.Duration
	wg             sync.WaitGroup
}

func NewDispatcher(log logger.Logger, obs *observability.Observability, defaultTimeout time.Duration) *Dispatcher {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	return &Dispatcher{logger: log, obs: obs, defaultTimeout: defaultTimeout}
}

func (d *Dispatcher) Dispatch(ctx context.Context, e Effect) error {
	if e.Criticality == BestEffort && e.Async {
		detached := context.WithoutCancel(ctx)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			_ = d.run(detached, e)
		}()
		return nil
	}
	return d.run(ctx, e)
}

func (d *Dispatcher) run(ctx context.Context, e Effect) error {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := e.Run(runCtx)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	metrics.SideEffectsTotal.WithLabelValues(e.Name, e.Criticality.String(), outcome).Inc()
	d.obs.RecordSideEffect(ctx, e.Name, outcome, elapsed)

	if err == nil {
		return nil
	}

	fields := map[string]interface{}{
		"sideEffect":  e.Name,
		"criticality": e.Criticality.String(),
		"durationMs":  elapsed.Milliseconds(),
		"error":       err.Error(),
	}
	log := logger.FromContext(ctx, d.logger)
	if e.Criticality == Critical {
		log.Error("critical side effect failed", fields)
		if stdErr, ok := apperrors.As(err); ok && stdErr.Code == apperrors.ErrCodeDownstream {
			return stdErr
		}
		return apperrors.NewDownstreamError(e.Name, err)
	}

	log.Warn("best-effort side effect failed", fields)
	return nil
}

// Wait blocks until detached effects finish; used on shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
