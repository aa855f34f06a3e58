package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/geoprefix/codec"
)

func newIndexCmd(g *globalFlags) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "index [file]",
		Short: "Add documents from a JSON lines file",
		Long: `Reads one JSON document per line, {"id": 1, "shape": {"type": "point", "x": 1, "y": 2}},
and adds it to the index. Documents with an existing id replace it. Reads stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if batch <= 0 {
				return fmt.Errorf("invalid --batch %d: must be positive", batch)
			}
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			ctx := cmd.Context()
			idx, err := openIndex(ctx, g, gridOption(g, cmd.Flags().Changed)...)
			if err != nil {
				return err
			}
			defer idx.Close()

			added := 0
			err = codec.ReadLines(in, codec.Default, func(_ int, doc document) error {
				s, err := doc.toShape()
				if err != nil {
					return err
				}
				if err := idx.AddDocument(doc.ID, s); err != nil {
					return err
				}
				added++
				if added%batch == 0 {
					return idx.Commit(ctx)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if err := idx.Commit(ctx); err != nil {
				return err
			}

			st := idx.Stats()
			return printResult(cmd.OutOrStdout(), g.format, map[string]any{
				"added":      added,
				"generation": st.Generation,
				"docs":       st.Docs,
			}, fmt.Sprintf("indexed %d documents (generation %d, %d live docs)\n", added, st.Generation, st.Docs))
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 10000, "documents per commit")
	return cmd
}
