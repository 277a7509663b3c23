package marc

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultEncodings is the probing order used when none is configured.
var DefaultEncodings = []string{"windows-1251", "utf-8"}

// ErrEncodingUndetermined is returned by Probe when no candidate decodes the
// first record of a file.
var ErrEncodingUndetermined = errors.New("no candidate encoding parses the file")

// Candidate is a named text encoding tried by Probe.
type Candidate struct {
	Name     string
	Encoding encoding.Encoding
}

// Candidates resolves encoding labels such as "cp1251" or "utf-8".
func Candidates(names []string) ([]Candidate, error) {
	out := make([]Candidate, 0, len(names))
	for _, n := range names {
		enc, err := htmlindex.Get(n)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", n, err)
		}
		name, err := htmlindex.Name(enc)
		if err != nil {
			name = n
		}
		out = append(out, Candidate{Name: name, Encoding: enc})
	}
	return out, nil
}

// Probe returns the first candidate under which the file's first record
// parses without a decoding fault. The file is only read.
func Probe(path string, candidates []Candidate) (Candidate, error) {
	for _, c := range candidates {
		ok, err := parsesUnder(path, c.Encoding)
		if err != nil {
			return Candidate{}, err
		}
		if ok {
			return c, nil
		}
	}
	return Candidate{}, ErrEncodingUndetermined
}

func parsesUnder(path string, enc encoding.Encoding) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return NewReader(f, enc).Next(), nil
}
