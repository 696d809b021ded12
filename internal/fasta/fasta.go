// Package fasta reads and writes FASTA files and computes the unambiguous
// base count used for sequence validity checks.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sequence is one FASTA record. ID is the first whitespace-separated token
// of the header line.
type Sequence struct {
	ID  string
	Seq string
}

// ATGCCount returns the number of unambiguous bases, case-insensitive.
// N runs and gaps do not count.
func (s Sequence) ATGCCount() int {
	n := 0
	for _, r := range s.Seq {
		switch r {
		case 'A', 'T', 'G', 'C', 'a', 't', 'g', 'c':
			n++
		}
	}
	return n
}

// Parse reads all sequences from r.
func Parse(r io.Reader) ([]Sequence, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		out     []Sequence
		current *Sequence
		body    strings.Builder
	)
	flush := func() {
		if current != nil {
			current.Seq = body.String()
			out = append(out, *current)
			body.Reset()
		}
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			header := strings.TrimPrefix(line, ">")
			id := strings.Fields(header)
			if len(id) == 0 {
				return nil, fmt.Errorf("fasta record with an empty header")
			}
			current = &Sequence{ID: id[0]}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("fasta body before the first header")
		}
		body.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fasta: %w", err)
	}
	flush()
	return out, nil
}

// ParseFile reads all sequences from a FASTA file.
func ParseFile(path string) ([]Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fasta %s: %w", path, err)
	}
	defer f.Close()
	seqs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seqs, nil
}

// Wrap splits seq into lines of at most width characters.
func Wrap(seq string, width int) string {
	if width <= 0 || len(seq) <= width {
		return seq
	}
	var b strings.Builder
	b.Grow(len(seq) + len(seq)/width + 1)
	for start := 0; start < len(seq); start += width {
		end := start + width
		if end > len(seq) {
			end = len(seq)
		}
		if start > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(seq[start:end])
	}
	return b.String()
}

// Write emits one FASTA record with the body wrapped at width.
func Write(w io.Writer, id, seq string, width int) error {
	if _, err := fmt.Fprintf(w, ">%s\n%s\n", id, Wrap(seq, width)); err != nil {
		return fmt.Errorf("failed to write fasta record %s: %w", id, err)
	}
	return nil
}
