package probingpt

import (
	"fmt"

	"github.com/hupe1980/probingpt/index"
	"github.com/hupe1980/probingpt/scoring"
	"github.com/hupe1980/probingpt/vocab"
)

// materialize turns index records into candidates built in a, scored,
// sorted best first and truncated to the table limit. Records that fail
// the integrity checks are dropped.
func (t *Table) materialize(a *Arena, source []vocab.TokenID, records []index.Record) (CandidateSet, error) {
	items, err := a.allocCandidates(len(records))
	if err != nil {
		return CandidateSet{}, err
	}

	n := 0
	for i := range records {
		ok, err := t.materializeOne(a, source, &records[i], &items[n])
		if err != nil {
			return CandidateSet{}, err
		}
		if ok {
			n++
		}
	}

	// Dropped records leave unused headers at the tail.
	clear(items[n:])
	return CandidateSet{items: sortAndPrune(items[:n], t.opts.tableLimit), owner: a}, nil
}

func (t *Table) materializeOne(a *Arena, source []vocab.TokenID, rec *index.Record, c *Candidate) (bool, error) {
	if len(rec.Scores) != t.numScores {
		t.integrityViolation(ViolationScoreCount, len(source),
			fmt.Sprintf("want %d scores, got %d", t.numScores, len(rec.Scores)))
		return false, nil
	}

	words, err := a.allocWords(len(rec.Target))
	if err != nil {
		return false, err
	}
	for i, id := range rec.Target {
		tok := t.bridge.ResolveTarget(id)
		if tok == nil {
			t.integrityViolation(ViolationUnknownTarget, len(source), id)
			return false, nil
		}
		words[i] = tok.ID
	}

	values, err := a.allocScores(len(t.weights))
	if err != nil {
		return false, err
	}
	scores := scoring.NewScores(values, t.weights)
	for j, p := range rec.Scores {
		scores.Add(t.tableStart+j, scoring.TransformScore(p))
	}
	t.opts.scorer.EvaluateInIsolation(source, words, &scores)

	*c = Candidate{words: words, scores: scores, owner: a}
	return true, nil
}
