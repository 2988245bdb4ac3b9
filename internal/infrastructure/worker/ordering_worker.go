package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/garyjia/billing-engine/internal/application/service"
)

// OrderingWorker periodically orders planned invoices whose order date has
// been reached
type OrderingWorker struct {
	ordering service.OrderingService
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	cron *cron.Cron
	ctx  context.Context
}

// NewOrderingWorker creates a new ordering worker running on the given cron
// schedule
func NewOrderingWorker(ordering service.OrderingService, schedule string, timeout time.Duration, logger *zap.Logger) *OrderingWorker {
	return &OrderingWorker{
		ordering: ordering,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
	}
}

// Name implements Worker
func (w *OrderingWorker) Name() string {
	return "invoice-ordering"
}

// Start implements Worker. The first run happens immediately so invoices due
// before a restart are not delayed a full schedule tick.
func (w *OrderingWorker) Start(ctx context.Context) error {
	w.ctx = ctx
	w.cron = cron.New()

	if _, err := w.cron.AddFunc(w.schedule, w.run); err != nil {
		return err
	}
	w.cron.Start()

	go w.run()
	return nil
}

// Stop implements Worker
func (w *OrderingWorker) Stop() error {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	return nil
}

func (w *OrderingWorker) run() {
	if w.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	ordered, err := w.ordering.ProcessDueInvoices(ctx, time.Now().UTC())
	if err != nil {
		w.logger.Error("Invoice ordering run failed", zap.Error(err))
		return
	}
	if ordered > 0 {
		w.logger.Info("Invoice ordering run completed", zap.Int("ordered", ordered))
	}
}
