package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manojoshi/querykit/filter"
	"github.com/manojoshi/querykit/repository"
)

type searchFlags struct {
	where []string
	or    []string
	sort  string
	desc  bool
	page  int
	size  int
}

func newSearchCmd(a *app) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Print one page of orders matching the given clauses",
		Example: `  querykit search --where "status eq PENDING" --where "qty gte 5" --sort promise_ts
  querykit search --where "warehouse_id in 41,42" --or "priority eq true" --desc --sort qty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.source()
			if err != nil {
				return err
			}
			repo, err := repository.New[Order](src, a.reg, a.repoOptions()...)
			if err != nil {
				return err
			}
			conds, err := buildFilters(repo.Filters(), f.where, f.or)
			if err != nil {
				return err
			}
			size := f.size
			if size == 0 {
				size = a.cfg.PageSize
			}
			res, err := repo.Paginate(cmd.Context(), repository.PageQuery[Order]{
				Filters:    conds,
				SortColumn: f.sort,
				Descending: f.desc,
				Page:       repository.PageRequest{Number: f.page, Size: size},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total %d, page %d, %d items\n", res.TotalCount, f.page, len(res.Items))
			enc := json.NewEncoder(out)
			for _, o := range res.Items {
				if err := enc.Encode(o); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addClauseFlags(cmd, &f)
	cmd.Flags().StringVar(&f.sort, "sort", "", "column to order by; unknown columns fall back to the first field")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "order descending")
	cmd.Flags().IntVar(&f.page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&f.size, "size", 0, "page size (default QUERYKIT_PAGE_SIZE)")
	return cmd
}

func addClauseFlags(cmd *cobra.Command, f *searchFlags) {
	cmd.Flags().StringArrayVar(&f.where, "where", nil, `AND-joined clause "field op value" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.or, "or", nil, `clause OR-joined to everything before it (repeatable)`)
}

// buildFilters parses every --where clause as AND-joined, then every --or
// clause as OR-joined, folding left to right.
func buildFilters(b *filter.Builder, where, or []string) ([]filter.Condition, error) {
	for _, s := range where {
		field, op, raw, err := filter.ParseClause(s)
		if err != nil {
			return nil, err
		}
		b.Add(field, op, raw)
	}
	for _, s := range or {
		field, op, raw, err := filter.ParseClause(s)
		if err != nil {
			return nil, err
		}
		b.OrAdd(field, op, raw)
	}
	return b.Build()
}
