package dialect

import (
	"fmt"
	"os"
	"path/filepath"

	"searchlib/internal/marc"
)

// Route is the classification of one file.
type Route struct {
	File     string
	Encoding marc.Candidate
	Source   string
	Dialect  Dialect
}

// Routable reports whether the source collection mapped to a dialect.
func (r Route) Routable() bool {
	return r.Dialect != ""
}

// Router probes a file's encoding and reads its source collection.
type Router struct {
	Table     Table
	Encodings []marc.Candidate
}

// NewRouter creates a Router.
func NewRouter(table Table, encodings []marc.Candidate) *Router {
	return &Router{Table: table, Encodings: encodings}
}

// Route classifies the file at path. An unknown or missing collection name
// is not an error: the returned Route is simply not Routable. Encoding and
// parse failures are returned as errors.
func (r *Router) Route(path string) (Route, error) {
	rt := Route{File: filepath.Base(path)}

	enc, err := marc.Probe(path, r.Encodings)
	if err != nil {
		return rt, err
	}
	rt.Encoding = enc

	source, err := readSource(path, enc)
	if err != nil {
		return rt, err
	}
	rt.Source = source
	if d, ok := r.Table.Lookup(source); ok {
		rt.Dialect = d
	}
	return rt, nil
}

// SourceName returns the collection name of a record: 801 $b when present,
// otherwise 040 $a.
func SourceName(rec *marc.Record) (string, bool) {
	if v, ok := rec.Subfield("801", 'b'); ok {
		return v, true
	}
	return rec.Subfield("040", 'a')
}

// readSource returns the collection name of the first record carrying one.
func readSource(path string, enc marc.Candidate) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rd := marc.NewReader(f, enc.Encoding)
	for rd.Next() {
		if name, ok := SourceName(rd.Record()); ok {
			return name, nil
		}
	}
	if err := rd.Err(); err != nil {
		return "", err
	}
	return "", nil
}
