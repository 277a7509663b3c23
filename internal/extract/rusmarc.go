package extract

import (
	"strconv"
	"strings"

	"searchlib/internal/marc"
)

// Rusmarc extracts records in the UNIMARC-family layout.
type Rusmarc struct{}

// Extract never fails: a missing field or subfield leaves its attribute nil.
func (Rusmarc) Extract(rec *marc.Record, source string) Extraction {
	x := Extraction{Source: source, DocumentType: documentType(rec)}
	r := &x.Record

	r.Title = optional(rec, "200", 'a')

	if d, ok := rec.Subfield("210", 'd'); ok {
		x.YearField = d
		if t := strings.TrimSpace(d); isDigits(t) {
			if y, err := strconv.Atoi(t); err == nil {
				r.PublishingYear = &y
			}
		}
	}

	r.URL = optional(rec, "856", 'u')
	r.Description = optional(rec, "330", 'a')

	if f := rec.Get("953"); f != nil {
		r.Cover = optional(rec, "953", 'a')
	} else {
		r.Cover = optional(rec, "956", 'a')
	}

	if v, ok := rec.Subfield("010", 'a'); ok {
		if d := digitsOnly(v); d != "" {
			r.ISBN = &d
		}
	}
	if v, ok := rec.Subfield("011", 'a'); ok {
		if d := digitsOnly(v); d != "" {
			r.ISSN = &d
		}
	}
	if v, ok := rec.Subfield("215", 'a'); ok {
		if n, ok := firstInt(v); ok {
			r.Pages = &n
		}
	}

	r.UDC = optional(rec, "675", 'a')
	r.BBK = optional(rec, "686", 'a')

	x.Publisher, _ = rec.Subfield("210", 'c')
	x.Authors = uniq(FirstMatch(rusmarcAuthors, rec))
	x.Keywords = Keywords(subfieldValues(rec, "610", 'a'))
	return x
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
