package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/geoprefix/strategy"
)

func newQueryCmd(g *globalFlags) *cobra.Command {
	var (
		op         string
		near       string
		k          int
		distErrPct float64
		distErr    float64
	)

	cmd := &cobra.Command{
		Use:   "query <shape-json>",
		Short: "Find documents matching a spatial predicate",
		Example: `  geoprefix query '{"type":"rect","min_x":-10,"min_y":-10,"max_x":10,"max_y":10}'
  geoprefix query --near 2.35,48.85 --k 5 '{"type":"circle","x":2.35,"y":48.85,"radius":1}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, err := strategy.ParseOperation(op)
			if err != nil {
				return err
			}
			s, err := parseShape([]byte(args[0]))
			if err != nil {
				return err
			}
			sargs := strategy.NewSpatialArgs(operation, s)
			if cmd.Flags().Changed("dist-err-pct") {
				sargs.DistErrPct = strategy.Pct(distErrPct)
			}
			sargs.DistErr = distErr

			ctx := cmd.Context()
			idx, err := openIndex(ctx, g)
			if err != nil {
				return err
			}
			defer idx.Close()

			out := cmd.OutOrStdout()
			if near != "" {
				from, err := parsePoint(near)
				if err != nil {
					return err
				}
				ns, err := idx.SearchByDistance(ctx, sargs, from, k)
				if err != nil {
					return err
				}
				var text strings.Builder
				rows := make([]map[string]any, 0, len(ns))
				for _, n := range ns {
					rows = append(rows, map[string]any{"id": n.ID, "distance": n.Distance})
					fmt.Fprintf(&text, "%d\t%g\n", n.ID, n.Distance)
				}
				return printResult(out, g.format, rows, text.String())
			}

			res, err := idx.Search(ctx, sargs)
			if err != nil {
				return err
			}
			var text strings.Builder
			for _, id := range res.IDs() {
				fmt.Fprintf(&text, "%d\n", id)
			}
			return printResult(out, g.format, map[string]any{
				"ids":   res.IDs(),
				"stats": res.Stats,
			}, text.String())
		},
	}

	f := cmd.Flags()
	f.StringVar(&op, "op", "Intersects", "operation: Intersects, IsWithin, Contains, IsDisjointTo or BBoxIntersects")
	f.StringVar(&near, "near", "", "order results by distance from x,y")
	f.IntVar(&k, "k", 10, "number of nearest results with --near")
	f.Float64Var(&distErrPct, "dist-err-pct", 0.025, "query precision as a fraction of the shape size")
	f.Float64Var(&distErr, "dist-err", 0, "absolute query precision in world units")
	return cmd
}
