package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/observability"
	"github.com/fxops/backoffice/internal/service"
)

// ProfitWorker periodically recomputes the default profit calculation and
// publishes the figure as a gauge. Balances move outside the API surface, so
// the dashboard number stays fresh without a request triggering it.
type ProfitWorker struct {
	svc      *service.ProfitService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewProfitWorker constructs a worker with a default one-minute interval.
func NewProfitWorker(svc *service.ProfitService) *ProfitWorker {
	return &ProfitWorker{
		svc:      svc,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *ProfitWorker) WithInterval(interval time.Duration) *ProfitWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and recomputes at the configured interval.
func (w *ProfitWorker) Start(ctx context.Context) {
	zap.L().Info("profit worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately at startup.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("profit worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("profit worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *ProfitWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ProfitWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *ProfitWorker) runOnce(ctx context.Context) {
	summary, err := w.svc.DefaultSummary(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// No default calculation configured yet.
			observability.IncrementWorkerRun("profit", "skipped")
			return
		}
		observability.IncrementWorkerRun("profit", "failed")
		zap.L().Error("profit recompute failed", zap.Error(err))
		return
	}

	figure := domain.NewMoney(summary.Profit, summary.TargetCurrency)
	zap.L().Debug("default profit recomputed", zap.String("profit", figure.String()))

	profit, _ := summary.Profit.Float64()
	observability.SetDefaultProfit(profit)
	observability.IncrementWorkerRun("profit", "success")
}
