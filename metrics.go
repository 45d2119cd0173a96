package probingpt

import (
	"sync/atomic"
	"time"
)

// LookupOutcome classifies a span lookup.
type LookupOutcome uint8

const (
	// OutcomeHit means the span matched and produced candidates.
	OutcomeHit LookupOutcome = iota
	// OutcomeMiss means the span has no exact entry in the index.
	OutcomeMiss
	// OutcomeUntranslatable means the span contains a word the index lacks.
	OutcomeUntranslatable
	// OutcomeError means the lookup failed.
	OutcomeError
)

func (o LookupOutcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeUntranslatable:
		return "untranslatable"
	default:
		return "error"
	}
}

// IntegrityViolation classifies a dropped record.
type IntegrityViolation uint8

const (
	// ViolationUnknownTarget means a target id has no token.
	ViolationUnknownTarget IntegrityViolation = iota
	// ViolationScoreCount means a record has the wrong number of scores.
	ViolationScoreCount
	// ViolationIndex means the index failed to decode an entry.
	ViolationIndex
)

func (v IntegrityViolation) String() string {
	switch v {
	case ViolationUnknownTarget:
		return "unknown_target"
	case ViolationScoreCount:
		return "score_count"
	default:
		return "index"
	}
}

// MetricsCollector receives operational metrics.
// Implement it to integrate with monitoring systems; see metrics/prometheus.
type MetricsCollector interface {
	// RecordLoad is called once per Load.
	RecordLoad(duration time.Duration, err error)

	// RecordLookup is called after each span lookup.
	RecordLookup(duration time.Duration, candidates int, outcome LookupOutcome)

	// RecordIntegrityViolation is called for every dropped record.
	RecordIntegrityViolation(kind IntegrityViolation)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(time.Duration, error)                {}
func (NoopMetricsCollector) RecordLookup(time.Duration, int, LookupOutcome) {}
func (NoopMetricsCollector) RecordIntegrityViolation(IntegrityViolation)    {}

// BasicMetricsCollector keeps in-memory counters.
type BasicMetricsCollector struct {
	LoadCount           atomic.Int64
	LoadErrors          atomic.Int64
	LookupCount         atomic.Int64
	LookupHits          atomic.Int64
	LookupMisses        atomic.Int64
	Untranslatable      atomic.Int64
	LookupErrors        atomic.Int64
	LookupTotalNanos    atomic.Int64
	CandidatesReturned  atomic.Int64
	IntegrityViolations atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(duration time.Duration, candidates int, outcome LookupOutcome) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	b.CandidatesReturned.Add(int64(candidates))
	switch outcome {
	case OutcomeHit:
		b.LookupHits.Add(1)
	case OutcomeMiss:
		b.LookupMisses.Add(1)
	case OutcomeUntranslatable:
		b.Untranslatable.Add(1)
	default:
		b.LookupErrors.Add(1)
	}
}

// RecordIntegrityViolation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIntegrityViolation(IntegrityViolation) {
	b.IntegrityViolations.Add(1)
}

// GetStats returns a snapshot of the counters.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		LoadCount:           b.LoadCount.Load(),
		LoadErrors:          b.LoadErrors.Load(),
		LookupCount:         b.LookupCount.Load(),
		LookupHits:          b.LookupHits.Load(),
		LookupMisses:        b.LookupMisses.Load(),
		Untranslatable:      b.Untranslatable.Load(),
		LookupErrors:        b.LookupErrors.Load(),
		CandidatesReturned:  b.CandidatesReturned.Load(),
		IntegrityViolations: b.IntegrityViolations.Load(),
	}
	if s.LookupCount > 0 {
		s.LookupAvgNanos = b.LookupTotalNanos.Load() / s.LookupCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	LoadCount           int64
	LoadErrors          int64
	LookupCount         int64
	LookupHits          int64
	LookupMisses        int64
	Untranslatable      int64
	LookupErrors        int64
	LookupAvgNanos      int64
	CandidatesReturned  int64
	IntegrityViolations int64
}
