package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manojoshi/querykit/filter"
	"github.com/manojoshi/querykit/query"
	"github.com/manojoshi/querykit/schema"
	"github.com/manojoshi/querykit/store"
)

func newExplainCmd(a *app) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the RediSearch command the clauses lower to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.searchSource()
			if err != nil {
				return err
			}
			ent, err := schema.Of[Order](a.reg)
			if err != nil {
				return err
			}
			conds, err := buildFilters(filter.NewBuilder(ent), f.where, f.or)
			if err != nil {
				return err
			}
			where, err := query.Compile[Order](ent, conds)
			if err != nil {
				return err
			}
			order, err := query.ResolveOrder[Order](a.reg, f.sort, !f.desc)
			if err != nil {
				return err
			}

			q, err := src.Explain(where)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "filter:  %s\nindex:   %s\nquery:   %s\n", where, src.Index(), q)

			search, err := src.SearchArgs(store.Plan[Order]{Where: where, Order: order, Limit: a.cfg.PageSize})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "command: %v\n", search)
			return nil
		},
	}
	addClauseFlags(cmd, &f)
	cmd.Flags().StringVar(&f.sort, "sort", "", "column to order by")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "order descending")
	return cmd
}
