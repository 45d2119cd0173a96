package probingpt

import (
	"log/slog"

	"github.com/hupe1980/probingpt/blobstore"
	"github.com/hupe1980/probingpt/index"
	"github.com/hupe1980/probingpt/resource"
	"github.com/hupe1980/probingpt/scoring"
)

const (
	// DefaultTableLimit is the default number of candidates kept per span.
	DefaultTableLimit = 20
	// DefaultName is the default score producer name of a table.
	DefaultName = "ProbingPT0"
)

type options struct {
	name             string
	tableLimit       int
	logger           *Logger
	metricsCollector MetricsCollector
	scorer           Scorer
	weights          map[string][]float32
	store            blobstore.Store
	idx              index.Index
	blockCacheSize   int64
	rc               *resource.Controller
}

// Option configures a Table.
type Option func(*options)

// WithName sets the score producer name of the table. Weights for the
// table's own scores are looked up under this name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithTableLimit sets how many candidates are kept per span, best first.
// The limit only truncates; it never pads.
func WithTableLimit(n int) Option {
	return func(o *options) {
		o.tableLimit = n
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
//
//	logger := probingpt.NewJSONLogger(slog.LevelInfo)
//	tbl, _ := probingpt.New(probingpt.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel is shorthand for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return WithLogger(NewTextLogger(level))
}

// WithMetricsCollector configures a metrics collector. Pass nil to disable.
//
//	metrics := &probingpt.BasicMetricsCollector{}
//	tbl, _ := probingpt.New(probingpt.WithMetricsCollector(metrics))
//	// ... lookups ...
//	fmt.Println(metrics.GetStats().LookupHits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithScorer sets the scoring chain evaluated for every candidate.
func WithScorer(s Scorer) Option {
	return func(o *options) {
		o.scorer = s
	}
}

// WithFeatureFunctions is shorthand for WithScorer(scoring.NewChain(ffs...)).
func WithFeatureFunctions(ffs ...scoring.FeatureFunction) Option {
	return WithScorer(scoring.NewChain(ffs...))
}

// WithWeights sets per-producer weights, keyed by producer name. Producers
// without an entry get weight 1 on every score.
func WithWeights(w map[string][]float32) Option {
	return func(o *options) {
		o.weights = w
	}
}

// WithStore sets where index files are read from. Default: local files.
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithIndex serves lookups from an already opened index instead of
// opening the path given to Load. The table takes ownership of idx.
func WithIndex(idx index.Index) Option {
	return func(o *options) {
		o.idx = idx
	}
}

// WithBlockCacheSize sets the decompressed block cache capacity in bytes.
func WithBlockCacheSize(bytes int64) Option {
	return func(o *options) {
		o.blockCacheSize = bytes
	}
}

// WithResourceController budgets index memory, cached blocks and remote
// read throughput.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func applyOptions(opts []Option) options {
	o := options{
		name:             DefaultName,
		tableLimit:       DefaultTableLimit,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		blockCacheSize:   index.DefaultBlockCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scorer == nil {
		o.scorer = scoring.NewChain()
	}
	if o.store == nil {
		o.store = blobstore.NewLocalStore("")
	}
	return o
}
