package index

import (
	"log/slog"

	"github.com/hupe1980/probingpt/resource"
)

// DefaultBlockCacheSize is the default capacity of the decompressed block cache.
const DefaultBlockCacheSize = 32 << 20

const defaultReadChunk = 1 << 20

type options struct {
	blockCacheSize int64
	rc             *resource.Controller
	logger         *slog.Logger
	readChunk      int
}

// Option configures Open.
type Option func(*options)

// WithBlockCacheSize sets the decompressed block cache capacity in bytes.
// Zero disables the cache. Uncompressed indexes never use it.
func WithBlockCacheSize(bytes int64) Option {
	return func(o *options) {
		o.blockCacheSize = bytes
	}
}

// WithResourceController charges loaded index bytes and cached blocks
// against rc, and throttles remote reads with its IO limiter.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		blockCacheSize: DefaultBlockCacheSize,
		logger:         slog.New(slog.DiscardHandler),
		readChunk:      defaultReadChunk,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
