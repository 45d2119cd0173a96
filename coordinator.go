package probingpt

import (
	"context"
	"errors"

	"github.com/hupe1980/probingpt/index"
	"github.com/hupe1980/probingpt/vocab"
)

// lookupSpan runs translate, query and materialize for one span.
func (t *Table) lookupSpan(a *Arena, span []vocab.TokenID) (CandidateSet, LookupOutcome, error) {
	if len(span) == 0 {
		return CandidateSet{}, OutcomeMiss, nil
	}

	key, err := a.allocKey(len(span))
	if err != nil {
		return CandidateSet{}, OutcomeError, err
	}
	if !t.translateSpan(span, key) {
		return CandidateSet{}, OutcomeUntranslatable, nil
	}

	records, found, err := t.query(span, key)
	if err != nil {
		return CandidateSet{}, OutcomeError, err
	}
	if !found || len(records) == 0 {
		return CandidateSet{}, OutcomeMiss, nil
	}

	set, err := t.materialize(a, span, records)
	if err != nil {
		return CandidateSet{}, OutcomeError, err
	}
	if set.Empty() {
		return set, OutcomeMiss, nil
	}
	return set, OutcomeHit, nil
}

// translateSpan writes the source index id of every word into key. It
// reports false as soon as one word is unknown to the index; key is then
// only partially written.
func (t *Table) translateSpan(span []vocab.TokenID, key []uint64) bool {
	for i, tok := range span {
		id := t.bridge.ResolveSource(tok)
		if id == index.UnknownSourceID {
			return false
		}
		key[i] = id
	}
	return true
}

// query runs one exact-key query. A record the index cannot decode is an
// integrity violation, not a lookup error: the span simply has no
// candidates. Only a closed index is reported to the caller.
func (t *Table) query(span []vocab.TokenID, key []uint64) ([]index.Record, bool, error) {
	records, found, err := t.idx.Query(key)
	if err == nil {
		return records, found, nil
	}
	if errors.Is(err, index.ErrClosed) {
		return nil, false, ErrClosed
	}
	t.integrityViolation(ViolationIndex, len(span), err)
	return nil, false, nil
}

func (t *Table) integrityViolation(kind IntegrityViolation, spanLen int, detail any) {
	t.violations.Add(1)
	t.opts.metricsCollector.RecordIntegrityViolation(kind)
	t.warnings.Do(func() {
		t.logger.LogIntegrityViolation(context.Background(), kind, spanLen, detail)
	})
}
