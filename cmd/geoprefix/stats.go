package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/geoprefix/codec"
)

func newStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer idx.Close()

			st := idx.Stats()
			text := fmt.Sprintf("generation: %d\ngrid:       %s\nsegments:   %d\ndocs:       %d\ndeleted:    %d\nterms:      %d\n",
				st.Generation, st.Grid, st.Segments, st.Docs, st.Deleted, st.Terms)
			return printResult(cmd.OutOrStdout(), g.format, st, text)
		},
	}
}

func newPruneCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete blobs no longer referenced by the current manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer idx.Close()

			removed, err := idx.Prune(cmd.Context())
			if err != nil {
				return err
			}
			text := fmt.Sprintf("removed %d blobs\n", len(removed))
			if len(removed) > 0 {
				text += strings.Join(removed, "\n") + "\n"
			}
			return printResult(cmd.OutOrStdout(), g.format, map[string]any{"removed": removed}, text)
		},
	}
}

func printResult(w io.Writer, format string, v any, text string) error {
	if format == "json" {
		return codec.Write(w, codec.Default, v)
	}
	_, err := io.WriteString(w, text)
	return err
}
