package query

import (
	"context"
	"errors"
	"strconv"

	"github.com/manojoshi/querykit/driver"
)

type Dir string

const (
	Asc  Dir = "ASC"
	Desc Dir = "DESC"
)

// SearchBuilder is a fluent builder for FT.SEARCH.
type SearchBuilder struct {
	idx           string
	where         Expr
	returnFields  []string
	sortField     string
	dir           Dir
	offset, limit int
	countOnly     bool
	executor      driver.Executor
}

// NewSearch starts a builder. Executor must be provided before Run.
func NewSearch(index string) *SearchBuilder {
	return &SearchBuilder{idx: index, limit: 10_000}
}

func (b *SearchBuilder) Where(e Expr) *SearchBuilder { b.where = e; return b }
func (b *SearchBuilder) Select(fs ...string) *SearchBuilder {
	b.returnFields = append([]string{}, fs...)
	return b
}
func (b *SearchBuilder) SortBy(f string, d Dir) *SearchBuilder {
	b.sortField, b.dir = f, d
	return b
}
func (b *SearchBuilder) Limit(off, lim int) *SearchBuilder {
	b.offset, b.limit = off, lim
	return b
}

// Count asks only for the number of matches (NOCONTENT LIMIT 0 0).
func (b *SearchBuilder) Count() *SearchBuilder { b.countOnly = true; return b }

func (b *SearchBuilder) Using(ex driver.Executor) *SearchBuilder {
	b.executor = ex
	return b
}

// Query returns the compiled query string.
func (b *SearchBuilder) Query() string {
	if b.where == nil || b.where == MatchAll() {
		return "*"
	}
	return "(" + Render(b.where) + ")"
}

// RawArgs gives the complete arg slice for logging / pipeline use.
func (b *SearchBuilder) RawArgs() ([]interface{}, error) {
	if b.idx == "" {
		return nil, errors.New("query: index name is empty")
	}
	args := []interface{}{"FT.SEARCH", b.idx, b.Query()}

	if b.countOnly {
		return append(args, "NOCONTENT", "LIMIT", "0", "0", "DIALECT", "2"), nil
	}

	if len(b.returnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(b.returnFields)))
		for _, f := range b.returnFields {
			args = append(args, f)
		}
	}

	if b.sortField != "" {
		args = append(args, "SORTBY", b.sortField, string(b.dir))
	}

	args = append(args, "LIMIT", strconv.Itoa(b.offset), strconv.Itoa(b.limit))
	// ismissing() and wildcard tag matches need dialect 2.
	args = append(args, "DIALECT", "2")

	return args, nil
}

// Run executes the command and returns the raw reply.
func (b *SearchBuilder) Run(ctx context.Context) (any, error) {
	if b.executor == nil {
		return nil, errors.New("query: executor not set (call Using())")
	}
	args, err := b.RawArgs()
	if err != nil {
		return nil, err
	}
	return b.executor.Do(ctx, args...)
}
