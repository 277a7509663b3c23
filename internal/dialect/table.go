// Package dialect classifies interchange files by source collection and maps
// each collection to the field layout its records use.
package dialect

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dialect is a record field-layout convention.
type Dialect string

const (
	// RUSMARC is the UNIMARC-family layout (title in 200, authors in 700-702).
	RUSMARC Dialect = "rusmarc"
	// MARC21 is the exchange layout (title in 245, authors in 100/700).
	MARC21 Dialect = "marc21"
)

// Parse accepts a dialect name or its letter alias.
func Parse(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rusmarc", "unimarc", "a":
		return RUSMARC, nil
	case "marc21", "b":
		return MARC21, nil
	default:
		return "", fmt.Errorf("unknown dialect %q", s)
	}
}

// Table maps source collection names (exact match) to dialects.
type Table map[string]Dialect

// DefaultTable returns the collections known out of the box.
func DefaultTable() Table {
	return Table{
		"Издательство Лань": RUSMARC,
		"RUCONT":            RUSMARC,
		"ИКО Юрайт":         MARC21,
	}
}

// Lookup returns the dialect for a collection name.
func (t Table) Lookup(source string) (Dialect, bool) {
	d, ok := t[source]
	return d, ok
}

type routesFile struct {
	Routes map[string]string `yaml:"routes"`
}

// LoadTable returns DefaultTable extended (and overridden) by the routes in
// a YAML file of the form:
//
//	routes:
//	  "IPRbooks": marc21
//
// An empty path returns the defaults.
func LoadTable(path string) (Table, error) {
	t := DefaultTable()
	if path == "" {
		return t, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	var rf routesFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return nil, fmt.Errorf("parse routes file: %w", err)
	}
	for name, raw := range rf.Routes {
		d, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", name, err)
		}
		t[name] = d
	}
	return t, nil
}
