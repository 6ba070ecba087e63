// Package index turns entity descriptors into RediSearch FT.CREATE
// statements. AutoCreate checks whether an index exists and creates it if
// missing.
//
//	type Order struct {
//	    ID        string     `querykit:"@order_id,PK"`
//	    Status    string     `querykit:"@status,TAG"`
//	    Qty       int        `querykit:"@qty,NUMERIC,SORTABLE"`
//	    ShippedAt *time.Time `querykit:"@shipped_at"`
//	}
//
//	ent, _ := schema.Of[Order](reg)
//	if err := index.AutoCreate(ctx, conn, ent,
//	    index.WithName("idx:orders"),
//	    index.WithPrefixes("order:"),
//	); err != nil {
//	    log.Fatal(err)
//	}
package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/manojoshi/querykit/driver"
	"github.com/manojoshi/querykit/schema"
)

type CreateOpt func(*createCfg)

type createCfg struct {
	name      string   // FT index name
	prefixes  []string // HASH key prefixes
	stopwords []string
	setStop   bool // STOPWORDS 0 disables the default list
}

func WithName(name string) CreateOpt     { return func(c *createCfg) { c.name = name } }
func WithPrefixes(p ...string) CreateOpt { return func(c *createCfg) { c.prefixes = p } }
func WithStopwords(words ...string) CreateOpt {
	return func(c *createCfg) { c.stopwords, c.setStop = words, true }
}

// AutoCreate builds a schema from ent and invokes FT.CREATE. An existing
// index with the same name is left untouched, so concurrent callers are
// safe.
func AutoCreate(ctx context.Context, exec driver.Executor, ent *schema.Entity, opts ...CreateOpt) error {
	args := CreateArgs(ent, opts...)
	if _, err := exec.Do(ctx, args...); err != nil &&
		!strings.Contains(err.Error(), "Index already exists") {
		return fmt.Errorf("index: FT.CREATE failed: %w", err)
	}
	return nil
}

// CreateArgs returns the complete FT.CREATE command for ent.
func CreateArgs(ent *schema.Entity, opts ...CreateOpt) []interface{} {
	cfg := &createCfg{name: Name(ent)}
	for _, o := range opts {
		o(cfg)
	}

	args := []interface{}{"FT.CREATE", cfg.name, "ON", "HASH"}
	if len(cfg.prefixes) > 0 {
		args = append(args, "PREFIX", len(cfg.prefixes))
		for _, p := range cfg.prefixes {
			args = append(args, p)
		}
	}
	if cfg.setStop {
		args = append(args, "STOPWORDS", len(cfg.stopwords))
		for _, s := range cfg.stopwords {
			args = append(args, s)
		}
	}
	args = append(args, "SCHEMA")
	return append(args, BuildSchema(ent)...)
}

// BuildSchema returns the tail of the SCHEMA clause. Tag fields are case
// sensitive and sortable strings unnormalized (UNF) so equality and order
// match the in-process comparison; nullable fields index their absence so
// IsNull can be pushed down.
func BuildSchema(ent *schema.Entity) []interface{} {
	var out []interface{}
	for _, f := range ent.Fields() {
		out = append(out, f.Column, string(f.Search))
		if f.Search == schema.SearchTag {
			out = append(out, "CASESENSITIVE")
		}
		if f.Nullable {
			out = append(out, "INDEXMISSING")
		}
		if f.Sortable {
			out = append(out, "SORTABLE")
			if f.Kind == schema.KindString {
				out = append(out, "UNF")
			}
		}
	}
	return out
}

// Name defaults to the entity type name snake_cased + "_idx".
func Name(ent *schema.Entity) string {
	return schema.SnakeCase(ent.Type().Name()) + "_idx"
}

// Drop removes the index; documents are kept.
func Drop(ctx context.Context, exec driver.Executor, name string) error {
	if _, err := exec.Do(ctx, "FT.DROPINDEX", name); err != nil {
		return fmt.Errorf("index: FT.DROPINDEX failed: %w", err)
	}
	return nil
}
