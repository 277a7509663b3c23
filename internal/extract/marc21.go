package extract

import "searchlib/internal/marc"

// Marc21 extracts records in the MARC 21 exchange layout.
type Marc21 struct{}

// Extract never fails: a missing field or subfield leaves its attribute nil.
func (Marc21) Extract(rec *marc.Record, source string) Extraction {
	x := Extraction{Source: source, DocumentType: documentType(rec)}
	r := &x.Record

	if t, ok := rec.Title(); ok {
		r.Title = &t
	}

	if c, ok := rec.Subfield("260", 'c'); ok {
		x.YearField = c
		if y, ok := firstInt(c); ok {
			r.PublishingYear = &y
		}
	}

	// 003 stands in for the url only when there is no 856 at all.
	if f := rec.Get("856"); f != nil {
		r.URL = optional(rec, "856", 'u')
		r.Cover = optional(rec, "856", 'x')
	} else if v, ok := rec.Control("003"); ok {
		r.URL = &v
	}

	r.Description = optional(rec, "520", 'a')

	if v, ok := rec.ISBN(); ok {
		r.ISBN = &v
	}
	if v, ok := rec.ISSN(); ok {
		r.ISSN = &v
	}
	if v, ok := rec.Subfield("300", 'a'); ok {
		if n, ok := firstInt(v); ok {
			r.Pages = &n
		}
	}

	r.UDC = optional(rec, "080", 'a')
	r.BBK = optional(rec, "084", 'a')

	if rec.Get("260").Has('b') {
		x.Publisher, _ = rec.Publisher()
	}

	var authors []string
	if a, ok := rec.Subfield("100", 'a'); ok {
		authors = append(authors, a)
	}
	authors = append(authors, subfieldValues(rec, "700", 'a')...)
	x.Authors = uniq(authors)

	x.Keywords = Keywords(subfieldValues(rec, "653", 'a'))
	return x
}
