// Package worker holds the consumers run by cmd/bilancio-alerts.
package worker

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

// AlertWorker turns budget change notifications into log alerts. A category
// is alerted once per escalation: the first time it goes near its limit and
// the first time it goes over. Spending back under the limit re-arms it.
type AlertWorker struct {
	logger *log.Logger

	mu       sync.Mutex
	statuses map[string]core.LimitStatus // period/category -> last status seen

	handled int64
	alerts  int64
	skipped int64
}

// Metrics is a snapshot of the worker counters.
type Metrics struct {
	Handled int64
	Alerts  int64
	Skipped int64
}

func NewAlertWorker(logger *log.Logger) *AlertWorker {
	if logger == nil {
		logger = log.NewNop()
	}
	return &AlertWorker{
		logger:   logger.WithComponent(log.ComponentAlerts),
		statuses: make(map[string]core.LimitStatus),
	}
}

// HandleChange processes one notification. It never fails: a message the
// worker cannot use is logged and skipped, so it is acked rather than
// redelivered forever.
func (w *AlertWorker) HandleChange(ctx context.Context, msg *amqp.BudgetChangeMessage) error {
	atomic.AddInt64(&w.handled, 1)

	if msg == nil || msg.Period == "" || msg.Op == "" {
		atomic.AddInt64(&w.skipped, 1)
		w.logger.WarnContext(ctx, "Skipping incomplete budget change message")
		return nil
	}

	fields := log.NewFields().WithOperation(string(msg.Op)).WithPeriod(msg.Period)

	switch msg.Op {
	case core.OpRollover:
		w.forget(func(string) bool { return true })
		w.logger.InfoContext(ctx, "New budget month started", fields.ToSlice()...)
		return nil
	case core.OpReset:
		w.forget(func(key string) bool { return periodOf(key) == msg.Period })
		w.logger.InfoContext(ctx, "Budget reset", fields.ToSlice()...)
		return nil
	}

	if msg.ExpenseID != "" {
		fields = fields.WithExpense(msg.ExpenseID, msg.Category, msg.Amount.String())
	} else {
		if msg.Category != "" {
			fields[log.FieldCategory] = msg.Category
		}
		fields[log.FieldAmount] = msg.Amount.String()
	}

	if msg.Category == "" {
		w.logger.InfoContext(ctx, "Budget changed", fields.ToSlice()...)
		return nil
	}

	fields[log.FieldStatus] = string(msg.Status)
	if w.escalated(msg.Period, msg.Category, msg.Status) {
		atomic.AddInt64(&w.alerts, 1)
		msgText := "Category is near its limit"
		if msg.Status == core.Over {
			msgText = "Category is over its limit"
		}
		w.logger.WarnContext(ctx, msgText, fields.ToSlice()...)
		return nil
	}
	w.logger.InfoContext(ctx, "Budget changed", fields.ToSlice()...)
	return nil
}

// escalated records status for the category and reports whether it is worse
// than the last one seen.
func (w *AlertWorker) escalated(period, category string, status core.LimitStatus) bool {
	key := period + "/" + category

	w.mu.Lock()
	defer w.mu.Unlock()

	prev := w.statuses[key]
	w.statuses[key] = status
	return status.Warns() && severity(status) > severity(prev)
}

func (w *AlertWorker) forget(match func(key string) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.statuses {
		if match(key) {
			delete(w.statuses, key)
		}
	}
}

// GetMetrics returns the worker counters.
func (w *AlertWorker) GetMetrics() Metrics {
	return Metrics{
		Handled: atomic.LoadInt64(&w.handled),
		Alerts:  atomic.LoadInt64(&w.alerts),
		Skipped: atomic.LoadInt64(&w.skipped),
	}
}

func severity(s core.LimitStatus) int {
	switch s {
	case core.Near:
		return 1
	case core.Over:
		return 2
	default:
		return 0
	}
}

func periodOf(key string) string {
	period, _, _ := strings.Cut(key, "/")
	return period
}
