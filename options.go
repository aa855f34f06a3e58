package geoprefix

import (
	"log/slog"

	"github.com/hupe1980/geoprefix/index"
	"github.com/hupe1980/geoprefix/internal/resource"
	"github.com/hupe1980/geoprefix/manifest"
	"github.com/hupe1980/geoprefix/prefix"
	"github.com/hupe1980/geoprefix/strategy"
)

// DefaultField is the field name used when none is configured.
const DefaultField = "geo"

// DefaultGrid is the grid of new indexes when none is configured.
var DefaultGrid = prefix.Config{Kind: prefix.KindGeohash, MaxLevels: 11}

type options struct {
	grid             *prefix.Config
	field            string
	compression      index.Compression
	strategyOpts     []strategy.Option
	resource         resource.Config
	blockCacheBytes  int64
	committer        manifest.Committer
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open.
type Option func(*options)

// WithGrid sets the grid of a new index. Opening an existing index with a
// different grid fails with *ErrGridMismatch.
func WithGrid(cfg prefix.Config) Option {
	return func(o *options) {
		o.grid = &cfg
	}
}

// WithField sets the field name reported by the strategy.
func WithField(name string) Option {
	return func(o *options) {
		o.field = name
	}
}

// WithCompression sets the block compression of new segments.
func WithCompression(c index.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithDistErrPct sets the precision used when indexing shapes and as
// default for queries.
func WithDistErrPct(pct float64) Option {
	return func(o *options) {
		o.strategyOpts = append(o.strategyOpts, strategy.WithDistErrPct(pct))
	}
}

// WithScanLevelOffset sets the filter scan level to maxLevels - offset.
func WithScanLevelOffset(offset int) Option {
	return func(o *options) {
		o.strategyOpts = append(o.strategyOpts, strategy.WithScanLevelOffset(offset))
	}
}

// ResourceConfig holds resource limits. Zero values mean unlimited.
type ResourceConfig = resource.Config

// WithResourceConfig limits segment search concurrency, load bandwidth
// and cache memory.
func WithResourceConfig(cfg ResourceConfig) Option {
	return func(o *options) {
		o.resource = cfg
	}
}

// WithBlockCache reads segments through a block cache of the given size.
// Useful for remote stores.
func WithBlockCache(bytes int64) Option {
	return func(o *options) {
		o.blockCacheBytes = bytes
	}
}

// WithCommitter publishes manifests through c instead of a CURRENT blob.
func WithCommitter(c manifest.Committer) Option {
	return func(o *options) {
		o.committer = c
	}
}

// WithMetricsCollector configures a metrics collector. Pass nil to disable
// metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		field:            DefaultField,
		compression:      index.CompressionZSTD,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
