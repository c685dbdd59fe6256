// Package ingest turns raw orders into daily demand records and loads them into a store.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/observability"
	"demand-forecast/internal/storage"
)

// Runner aggregates orders and writes the result to a DemandStore.
type Runner struct {
	store     storage.DemandStore
	storeName string
	logger    *log.Logger
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Store storage.DemandStore
	// StoreName labels ingestion metrics (e.g. "clickhouse").
	StoreName string
	Logger    *log.Logger
}

// NewRunner creates a new ingest runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	name := opts.StoreName
	if name == "" {
		name = "store"
	}
	return &Runner{store: opts.Store, storeName: name, logger: logger}
}

// Run processes a batch of orders.
// Steps:
//  1. Sort by (order_date, order_id)
//  2. Explode product lists and count per (day, product)
//  3. Join event, user and price context
//  4. Insert into the store in one batch
//
// It returns the number of demand records written.
func (r *Runner) Run(ctx context.Context, orders []*domain.Order, c Context) (int, error) {
	SortOrders(orders)

	records := AggregateOrders(orders)
	if len(records) == 0 {
		r.logger.Printf("no demand in %d orders", len(orders))
		return 0, nil
	}

	Enrich(records, c)

	if err := r.store.InsertBulk(ctx, records); err != nil {
		return 0, fmt.Errorf("insert demand: %w", err)
	}
	observability.RecordIngested(r.storeName, len(records))

	first, last := dateRange(records)
	r.logger.Printf("ingested %d orders into %d demand records (%s to %s)",
		len(orders), len(records), first.Format(domain.DateLayout), last.Format(domain.DateLayout))
	return len(records), nil
}

func dateRange(records []*domain.DemandRecord) (first, last time.Time) {
	for i, r := range records {
		if i == 0 || r.Date.Before(first) {
			first = r.Date
		}
		if i == 0 || r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last
}
