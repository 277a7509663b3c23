package marc

import (
	"regexp"
	"strings"
)

// Subfield is one coded value inside a data field.
type Subfield struct {
	Code  byte
	Value string
}

// Field is either a control field (tags below 010, Value set) or a data
// field (Indicators and Subfields set).
type Field struct {
	Tag        string
	Indicators string
	Value      string
	Subfields  []Subfield
}

// Record is one decoded interchange record.
type Record struct {
	Leader string
	Fields []*Field
}

// IsControlTag reports whether tag names a control field.
func IsControlTag(tag string) bool {
	return tag < "010"
}

// Subfield returns the first subfield with the given code. It is safe to call
// on a nil field.
func (f *Field) Subfield(code byte) (string, bool) {
	if f == nil {
		return "", false
	}
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf.Value, true
		}
	}
	return "", false
}

// Has reports whether every listed subfield code is present.
func (f *Field) Has(codes ...byte) bool {
	for _, c := range codes {
		if _, ok := f.Subfield(c); !ok {
			return false
		}
	}
	return true
}

// Get returns the first field with tag, or nil.
func (r *Record) Get(tag string) *Field {
	if r == nil {
		return nil
	}
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f
		}
	}
	return nil
}

// GetAll returns every field with tag in record order.
func (r *Record) GetAll(tag string) []*Field {
	if r == nil {
		return nil
	}
	var out []*Field
	for _, f := range r.Fields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// Subfield returns subfield code of the first field with tag.
func (r *Record) Subfield(tag string, code byte) (string, bool) {
	return r.Get(tag).Subfield(code)
}

// Control returns the value of a control field.
func (r *Record) Control(tag string) (string, bool) {
	f := r.Get(tag)
	if f == nil || !IsControlTag(tag) {
		return "", false
	}
	return f.Value, true
}

// LeaderAt returns the leader byte at position i, or 0 when the leader is
// shorter than that.
func (r *Record) LeaderAt(i int) byte {
	if r == nil || i < 0 || i >= len(r.Leader) {
		return 0
	}
	return r.Leader[i]
}

// Title returns 245 $a followed directly by 245 $b.
func (r *Record) Title() (string, bool) {
	f := r.Get("245")
	title, ok := f.Subfield('a')
	if !ok {
		return "", false
	}
	if rest, ok := f.Subfield('b'); ok {
		title += rest
	}
	return title, true
}

var isbnRun = regexp.MustCompile(`[0-9\-xX]+`)

// ISBN returns the first run of ISBN characters in 020 $a with hyphens removed.
func (r *Record) ISBN() (string, bool) {
	raw, ok := r.Subfield("020", 'a')
	if !ok {
		return "", false
	}
	m := isbnRun.FindString(raw)
	if m == "" {
		return "", false
	}
	return strings.ReplaceAll(m, "-", ""), true
}

// ISSN returns 022 $a.
func (r *Record) ISSN() (string, bool) {
	return r.Subfield("022", 'a')
}

// Publisher returns 260 $b, falling back to 264 $b.
func (r *Record) Publisher() (string, bool) {
	if f := r.Get("260"); f != nil {
		return f.Subfield('b')
	}
	return r.Subfield("264", 'b')
}
