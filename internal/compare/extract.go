package compare

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparsableScore means a score line matched but its value could not
// be turned into points.
var ErrUnparsableScore = errors.New("unparsable score line")

// Pattern recognizes one kind of score line in a grade file.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
	// Value turns a match into points. Nil parses the first capture group.
	Value func(match []string) (float64, error)
}

func (p Pattern) value(match []string) (float64, error) {
	if p.Value != nil {
		return p.Value(match)
	}
	if len(match) < 2 {
		return 0, fmt.Errorf("pattern %s has no capture group", p.Name)
	}
	return strconv.ParseFloat(match[1], 64)
}

func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "score", Re: regexp.MustCompile(`>>\s*Score.*:\s+(\d+)`)},
		{Name: "string-test", Re: regexp.MustCompile(`String_.*\(\):\s+(\d+)`)},
	}
}

// Extractor sums the points found in a grade file. On each line only the
// first pattern that matches contributes.
type Extractor struct {
	Patterns []Pattern
}

func NewExtractor(extra ...Pattern) *Extractor {
	return &Extractor{Patterns: append(DefaultPatterns(), extra...)}
}

func (e *Extractor) ExtractFile(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return e.Extract(f)
}

// Extract has no limit on line length.
func (e *Extractor) Extract(r io.Reader) (float64, error) {
	var sum float64
	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return 0, fmt.Errorf("failed to read grade file: %w", readErr)
		}
		line = strings.TrimRight(line, "\r\n")
		for _, p := range e.Patterns {
			m := p.Re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			v, err := p.value(m)
			if err != nil {
				return 0, fmt.Errorf("%w: %q: %w", ErrUnparsableScore, truncate(line, 80), err)
			}
			sum += v
			break
		}
		if readErr != nil {
			return sum, nil
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
