package sheets

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sheetsdb",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Grid store operations by backend, operation and outcome.",
	}, []string{"backend", "op", "outcome"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sheetsdb",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Grid store operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "op"})
)

// instrumented records metrics around every Store call
type instrumented struct {
	Store
}

// Instrument wraps a store with operation metrics
func Instrument(s Store) Store {
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{Store: s}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	backend := i.Store.Backend()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOperations.WithLabelValues(backend, op, outcome).Inc()
	storeDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

func (i *instrumented) ReadAll(ctx context.Context, ref Ref) (Grid, error) {
	start := time.Now()
	grid, err := i.Store.ReadAll(ctx, ref)
	i.observe("read_all", start, err)
	return grid, err
}

func (i *instrumented) Append(ctx context.Context, ref Ref, rows [][]any) error {
	start := time.Now()
	err := i.Store.Append(ctx, ref, rows)
	i.observe("append", start, err)
	return err
}

func (i *instrumented) UpdateAt(ctx context.Context, ref Ref, pos int, row []any) error {
	start := time.Now()
	err := i.Store.UpdateAt(ctx, ref, pos, row)
	i.observe("update", start, err)
	return err
}

func (i *instrumented) ClearAt(ctx context.Context, ref Ref, pos int) error {
	start := time.Now()
	err := i.Store.ClearAt(ctx, ref, pos)
	i.observe("clear", start, err)
	return err
}

func (i *instrumented) SheetNames(ctx context.Context, spreadsheetID, credential string) ([]string, error) {
	start := time.Now()
	names, err := i.Store.SheetNames(ctx, spreadsheetID, credential)
	i.observe("sheet_names", start, err)
	return names, err
}
