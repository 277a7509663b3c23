// Package extract maps raw interchange records of either dialect to
// normalized catalog records plus the names of the entities they reference.
package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"searchlib/internal/dialect"
	"searchlib/internal/marc"
	"searchlib/pkg/models"
)

// Extraction is everything taken from one raw record.
type Extraction struct {
	Source string
	Record models.NormalizedRecord

	// DocumentType is empty when the leader code has no label.
	DocumentType string
	// YearField is the raw year text as it takes part in the fingerprint key.
	YearField string

	Authors   []string
	Publisher string
	Keywords  []string
}

// Key returns the string the fingerprint is computed over: source, title,
// document type, year field and url, absent parts omitted, no separators.
func (x *Extraction) Key() string {
	var b strings.Builder
	b.WriteString(x.Source)
	if x.Record.Title != nil {
		b.WriteString(*x.Record.Title)
	}
	b.WriteString(x.DocumentType)
	b.WriteString(x.YearField)
	if x.Record.URL != nil {
		b.WriteString(*x.Record.URL)
	}
	return b.String()
}

// Extractor maps records of one dialect.
type Extractor interface {
	Extract(rec *marc.Record, source string) Extraction
}

// For returns the extractor for d.
func For(d dialect.Dialect) (Extractor, error) {
	switch d {
	case dialect.RUSMARC:
		return Rusmarc{}, nil
	case dialect.MARC21:
		return Marc21{}, nil
	default:
		return nil, fmt.Errorf("no extractor for dialect %q", d)
	}
}

var documentTypes = map[byte]string{
	'a': "Статьи, периодика",
	'b': "Часть сериального ресурса",
	'c': "Собрание (коллекция, подборка)",
	'd': "Часть собрания (коллекции, подборки)",
	'i': "Интегрируемый ресурс",
	'm': "Монографический ресурс",
	's': "Сериальный ресурс",
}

// DocumentType returns the label for a leader position 7 code.
func DocumentType(code byte) (string, bool) {
	name, ok := documentTypes[code]
	return name, ok
}

func documentType(rec *marc.Record) string {
	name, _ := DocumentType(rec.LeaderAt(7))
	return name
}

var (
	nonDigits = regexp.MustCompile(`\D`)
	digitRun  = regexp.MustCompile(`\d+`)
)

func digitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// firstInt returns the first run of digits in s.
func firstInt(s string) (int, bool) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func optional(rec *marc.Record, tag string, code byte) *string {
	if v, ok := rec.Subfield(tag, code); ok {
		return &v
	}
	return nil
}

// subfieldValues collects code from every occurrence of tag.
func subfieldValues(rec *marc.Record, tag string, code byte) []string {
	var out []string
	for _, f := range rec.GetAll(tag) {
		if v, ok := f.Subfield(code); ok {
			out = append(out, v)
		}
	}
	return out
}

// Keywords lower-cases each value and splits it on "--", or failing that on
// ",", keeping trimmed non-blank parts. Quote characters are removed and the
// result is de-duplicated and sorted.
func Keywords(values []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(k string) {
		k = strings.ReplaceAll(k, `"`, "")
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for _, v := range values {
		v = strings.ToLower(v)
		sep := ""
		switch {
		case strings.Contains(v, "--"):
			sep = "--"
		case strings.Contains(v, ","):
			sep = ","
		}
		if sep == "" {
			add(v)
			continue
		}
		for _, part := range strings.Split(v, sep) {
			if part = strings.TrimSpace(part); part != "" {
				add(part)
			}
		}
	}
	slices.Sort(out)
	return out
}

func uniq(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
