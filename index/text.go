package index

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const fieldSeparator = "|||"

// ParseText reads a Moses text phrase table into a new Builder.
//
// Each line is "source ||| target ||| scores [||| ...]"; fields after the
// scores (alignments, counts) are ignored. The score count is taken from
// the first line and every later line must match it.
func ParseText(r io.Reader, opts ...BuilderOption) (*Builder, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var b *Builder
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		source, target, scores, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("index: line %d: %w", lineNo, err)
		}

		if b == nil {
			if b, err = NewBuilder(len(scores), opts...); err != nil {
				return nil, err
			}
		}
		if err := b.Add(source, target, scores); err != nil {
			return nil, fmt.Errorf("index: line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("index: no phrase pairs in input")
	}
	return b, nil
}

func parseLine(line string) (source, target []string, scores []float32, err error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < 3 {
		return nil, nil, nil, fmt.Errorf("want at least 3 fields, got %d", len(fields))
	}

	source = strings.Fields(fields[0])
	target = strings.Fields(fields[1])

	raw := strings.Fields(fields[2])
	scores = make([]float32, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("score %d: %w", i, err)
		}
		scores[i] = float32(v)
	}
	return source, target, scores, nil
}
