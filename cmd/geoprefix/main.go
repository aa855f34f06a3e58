// Command geoprefix indexes and queries shapes in a geoprefix index.
//
// Configuration is read from flags, GEOPREFIX_* environment variables and a
// .env file in the working directory, in that order of precedence.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/geoprefix"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	store      string
	grid       string
	levels     int
	dynamo     string
	logLevel   string
	format     string
	blockCache int64
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "geoprefix",
		Short:         "Spatial prefix-tree index",
		Long:          "geoprefix indexes points, rectangles and circles in a recursive prefix tree stored on local disk, S3 or MinIO.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch g.format {
			case "json", "text":
				return nil
			default:
				return fmt.Errorf("invalid --format %q: must be json or text", g.format)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.store, "store", envOr("GEOPREFIX_STORE", "file://./geoprefix-data"), "index location: file://dir, s3://bucket/prefix or minio://host/bucket/prefix")
	pf.StringVar(&g.grid, "grid", envOr("GEOPREFIX_GRID", geoprefix.DefaultGrid.Kind), "grid of a new index: quad or geohash")
	pf.IntVar(&g.levels, "levels", geoprefix.DefaultGrid.MaxLevels, "max levels of a new index")
	pf.StringVar(&g.dynamo, "dynamodb-table", envOr("GEOPREFIX_DYNAMODB_TABLE", ""), "commit manifests through this DynamoDB table")
	pf.StringVar(&g.logLevel, "log-level", envOr("GEOPREFIX_LOG_LEVEL", "warn"), "log level: debug, info, warn or error")
	pf.StringVar(&g.format, "format", envOr("GEOPREFIX_FORMAT", "text"), "output format: json|text")
	pf.Int64Var(&g.blockCache, "block-cache", 64<<20, "block cache size in bytes for remote stores")

	root.AddCommand(newIndexCmd(g), newQueryCmd(g), newStatsCmd(g), newPruneCmd(g))
	return root
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q", s)
	}
	return l, nil
}
