package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/probingpt"
	"github.com/hupe1980/probingpt/metrics/prometheus"
	"github.com/hupe1980/probingpt/resource"
	"github.com/hupe1980/probingpt/scoring"
	"github.com/hupe1980/probingpt/vocab"
)

type queryConfig struct {
	location    string
	limit       int
	workers     int
	features    bool
	cacheBytes  int64
	memoryLimit int64
	ioLimit     int64
	metricsAddr string
	verbose     bool
}

func runQuery(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	var cfg queryConfig
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	fs.StringVar(&cfg.location, "index", "", "index location")
	fs.IntVar(&cfg.limit, "limit", probingpt.DefaultTableLimit, "candidates per phrase")
	fs.IntVar(&cfg.workers, "workers", 4, "parallel lookup workers")
	fs.BoolVar(&cfg.features, "features", false, "add word and phrase penalties")
	fs.Int64Var(&cfg.cacheBytes, "cache", 32<<20, "decompressed block cache size in bytes")
	fs.Int64Var(&cfg.memoryLimit, "memory-limit", 0, "memory budget in bytes (0 = unlimited)")
	fs.Int64Var(&cfg.ioLimit, "io-limit", 0, "remote read limit in bytes/s (0 = unlimited)")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.location == "" {
		fs.Usage()
		return errors.New("-index is required")
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	return query(ctx, cfg, in, out)
}

func query(ctx context.Context, cfg queryConfig, in io.Reader, out io.Writer) error {
	store, name, err := openStore(ctx, cfg.location)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	opts := []probingpt.Option{
		probingpt.WithStore(store),
		probingpt.WithTableLimit(cfg.limit),
		probingpt.WithBlockCacheSize(cfg.cacheBytes),
		probingpt.WithLogLevel(level),
		probingpt.WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:   cfg.memoryLimit,
			IOLimitBytesPerSec: cfg.ioLimit,
		})),
	}
	if cfg.features {
		opts = append(opts, probingpt.WithFeatureFunctions(scoring.NewWordPenalty(), scoring.NewPhrasePenalty()))
	}
	if cfg.metricsAddr != "" {
		reg := prom.NewRegistry()
		c, err := prometheus.NewCollector(reg)
		if err != nil {
			return err
		}
		opts = append(opts, probingpt.WithMetricsCollector(c))

		srv := &http.Server{Addr: cfg.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})} //nolint:gosec // local diagnostics
		go func() { _ = srv.ListenAndServe() }()
		defer srv.Close()
	}

	v := vocab.New()
	tbl, err := probingpt.Open(ctx, name, v, opts...)
	if err != nil {
		return err
	}
	defer tbl.Close()

	var lines []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	results := make([]string, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.workers {
		g.Go(func() error {
			a, err := probingpt.NewArena()
			if err != nil {
				return err
			}
			defer a.Free()

			for i := w; i < len(lines); i += cfg.workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				set, err := tbl.LookupSpan(a, spanTokens(v, strings.Fields(lines[i])))
				if err != nil {
					return fmt.Errorf("line %d: %w", i+1, err)
				}
				results[i] = format(lines[i], set, v)
				a.Reset()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bw := bufio.NewWriter(out)
	for _, r := range results {
		if _, err := bw.WriteString(r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// unknownToken is past every id the vocabulary can hand out and resolves to
// the unknown source id.
const unknownToken = vocab.TokenID(math.MaxUint32)

// spanTokens maps query words to token ids without interning them, so
// arbitrary input cannot grow the vocabulary.
func spanTokens(v *vocab.Vocabulary, words []string) []vocab.TokenID {
	ids := make([]vocab.TokenID, len(words))
	for i, w := range words {
		ids[i] = unknownToken
		if tok, ok := v.Lookup(w); ok {
			ids[i] = tok.ID
		}
	}
	return ids
}

func format(source string, set probingpt.CandidateSet, v *vocab.Vocabulary) string {
	if set.Empty() {
		return source + " ||| <none>\n"
	}
	var sb strings.Builder
	for _, c := range set.All() {
		fmt.Fprintf(&sb, "%s ||| %s ||| %.4f |||", source, c.Text(v), c.Total())
		for i := range c.NumScores() {
			fmt.Fprintf(&sb, " %.4f", c.Score(i))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
