package workers

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestBacklogWorker_SamplesUntilCanceled(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Given a gauge counting its own reads
	var reads atomic.Int32
	gauge := Gauge{Name: "bus:user_messages/ai-worker-group", Read: func() int {
		return int(reads.Add(1))
	}}
	w := NewBacklogWorker(logs.GetLoggerFromLevel(slog.LevelDebug), []Gauge{gauge}, 5*time.Millisecond, 2)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// When a few intervals elapse
	req.Eventually(func() bool { return reads.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	// Then the worker stops with the context error
	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("worker did not stop")
	}
}

func TestBacklogWorker_Thresholds(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Given gauges using the worker threshold, their own, none, and a failing read
	w := NewBacklogWorker(log, []Gauge{
		{Name: "pending", Read: func() int { return 10 }},
		{Name: "rss_mb", Read: func() int { return 10 }, Threshold: 50},
		{Name: "cpu_percent", Read: func() int { return 400 }, Threshold: -1},
		{Name: "broken", Read: func() int { return -1 }},
	}, time.Hour, 5)

	// When sampling once
	w.sample()

	// Then only the gauge above its effective threshold warns
	logged := out.String()
	req.Contains(logged, `level=WARN msg="Backlog above threshold" name=pending value=10 threshold=5`)
	req.Contains(logged, `level=DEBUG msg="Backlog sample" name=rss_mb value=10`)
	req.Contains(logged, `level=DEBUG msg="Backlog sample" name=cpu_percent value=400`)
	req.Contains(logged, `level=DEBUG msg="Gauge unavailable" name=broken`)
}

func TestProcessGauges(t *testing.T) {
	req := require.New(t)

	// Given the gauges of the test process
	gauges, err := ProcessGauges(1024)
	req.NoError(err)

	// Then memory and goroutines are readable
	byName := make(map[string]Gauge, len(gauges))
	for _, g := range gauges {
		byName[g.Name] = g
	}
	req.Len(byName, 3)
	req.GreaterOrEqual(byName["rss_mb"].Read(), 0)
	req.Equal(1024, byName["rss_mb"].Threshold)
	req.Positive(byName["goroutines"].Read())
	req.Equal(-1, byName["cpu_percent"].Threshold)
}
