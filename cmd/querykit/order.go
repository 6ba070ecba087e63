package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order is the demo row the CLI reads and writes.
type Order struct {
	ID        string     `querykit:"@order_id,PK,SORTABLE"`
	Status    string     `querykit:"@status,TAG"`
	Warehouse int        `querykit:"@warehouse_id,NUMERIC,SORTABLE"`
	Title     string     `querykit:"@title,TEXT"`
	Qty       int        `querykit:"@qty,NUMERIC,SORTABLE"`
	Priority  bool       `querykit:"@priority"`
	PromiseAt time.Time  `querykit:"@promise_ts,SORTABLE"`
	ShippedAt *time.Time `querykit:"@shipped_at"`
}

var (
	orderNamespace = uuid.MustParse("6f1c2a7e-4a55-4a0e-9d4e-0b7d3c1f8e21")

	statuses = []string{"PENDING", "PICKING", "PACKED", "SHIPPED"}
	items    = []string{"desk lamp", "office chair", "standing desk", "monitor arm", "cable tray"}
)

// demoOrders returns n orders derived from their position, so seeding
// twice rewrites the same keys.
func demoOrders(n int, now time.Time) []Order {
	now = now.UTC().Truncate(time.Millisecond)
	out := make([]Order, n)
	for i := range out {
		o := Order{
			ID:        uuid.NewSHA1(orderNamespace, []byte(fmt.Sprintf("order-%d", i))).String(),
			Status:    statuses[i%len(statuses)],
			Warehouse: 40 + i%7,
			Title:     items[i%len(items)],
			Qty:       1 + (i*7)%12,
			Priority:  i%5 == 0,
			PromiseAt: now.Add(time.Duration(i) * time.Hour),
		}
		if o.Status == "SHIPPED" {
			t := now.Add(-time.Duration(i) * time.Minute)
			o.ShippedAt = &t
		}
		out[i] = o
	}
	return out
}
