package workers

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"time"
)

// Gauge is a named reading sampled by the BacklogWorker. Threshold overrides
// the worker's threshold when positive; a negative one never warns. Negative
// readings mean the value is unavailable.
type Gauge struct {
	Name      string
	Read      func() int
	Threshold int
}

// BacklogWorker periodically samples gauges such as bus backlog or live rooms.
// Readings at or above threshold are logged as warnings, the rest at debug.
// A threshold <= 0 never warns.
type BacklogWorker struct {
	log       *slog.Logger
	gauges    []Gauge
	interval  time.Duration
	threshold int
}

var _ contract.Worker = (*BacklogWorker)(nil)

func NewBacklogWorker(log *slog.Logger, gauges []Gauge, interval time.Duration, threshold int) *BacklogWorker {
	return &BacklogWorker{log: log, gauges: gauges, interval: interval, threshold: threshold}
}

func (w *BacklogWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *BacklogWorker) sample() {
	for _, g := range w.gauges {
		value := g.Read()
		if value < 0 {
			w.log.Debug("Gauge unavailable", "name", g.Name)
			continue
		}
		threshold := w.threshold
		if g.Threshold != 0 {
			threshold = g.Threshold
		}
		if threshold > 0 && value >= threshold {
			w.log.Warn("Backlog above threshold", "name", g.Name, "value", value, "threshold", threshold)
			continue
		}
		w.log.Debug("Backlog sample", "name", g.Name, "value", value)
	}
}
