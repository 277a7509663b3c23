// Package marc reads bibliographic interchange files in the ISO 2709 record
// structure shared by MARC 21 and UNIMARC/RUSMARC exports.
//
// A record is a 5-digit length prefix, a 24 byte leader, a directory of
// 12 byte entries (tag, length, offset) and the variable fields. Field data is
// decoded under the encoding chosen for the whole file.
package marc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

const (
	lengthLen         = 5
	leaderLen         = 24
	dirEntryLen       = 12
	fieldTerminator   = 0x1e
	recordTerminator  = 0x1d
	subfieldDelimiter = 0x1f
)

var (
	// ErrMalformed marks structural damage: bad length, directory or terminators.
	ErrMalformed = errors.New("malformed marc record")
	// ErrDecode marks field data that is not valid under the file encoding.
	ErrDecode = errors.New("marc data does not decode")
)

var replacementChar = []byte("\uFFFD")

// Reader enumerates the records of an interchange stream.
type Reader struct {
	br      *bufio.Reader
	dec     *encoding.Decoder
	current *Record
	count   int
	err     error
}

// NewReader creates a Reader decoding field data with enc.
func NewReader(r io.Reader, enc encoding.Encoding) *Reader {
	return &Reader{br: bufio.NewReader(r), dec: enc.NewDecoder()}
}

// Next advances to the next record and returns true if one was read. It
// returns false at a clean end of input or on the first error; check Err.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	r.current = nil

	if err := r.skipPadding(); err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	head := make([]byte, lengthLen)
	if _, err := io.ReadFull(r.br, head); err != nil {
		r.fail(fmt.Errorf("%w: truncated length prefix", ErrMalformed))
		return false
	}
	length, err := strconv.Atoi(string(head))
	if err != nil || length <= leaderLen {
		r.fail(fmt.Errorf("%w: invalid record length %q", ErrMalformed, head))
		return false
	}

	data := make([]byte, length)
	copy(data, head)
	if _, err := io.ReadFull(r.br, data[lengthLen:]); err != nil {
		r.fail(fmt.Errorf("%w: short record, want %d bytes", ErrMalformed, length))
		return false
	}

	rec, err := parseRecord(data, r.dec)
	if err != nil {
		r.fail(err)
		return false
	}
	r.count++
	r.current = rec
	return true
}

// Record returns the record read by the last successful Next.
func (r *Reader) Record() *Record {
	return r.current
}

// Err returns the first error met while reading, wrapping ErrMalformed or
// ErrDecode for record level faults.
func (r *Reader) Err() error {
	return r.err
}

// Count returns the number of records read so far.
func (r *Reader) Count() int {
	return r.count
}

func (r *Reader) fail(err error) {
	r.err = fmt.Errorf("record %d: %w", r.count+1, err)
}

// skipPadding drops line breaks and DOS end-of-file marks some exporters put
// between records.
func (r *Reader) skipPadding() error {
	for {
		b, err := r.br.Peek(1)
		if err != nil {
			return err
		}
		switch b[0] {
		case '\n', '\r', 0x1a:
			_, _ = r.br.Discard(1)
		default:
			return nil
		}
	}
}

func parseRecord(data []byte, dec *encoding.Decoder) (*Record, error) {
	if data[len(data)-1] != recordTerminator {
		return nil, fmt.Errorf("%w: missing record terminator", ErrMalformed)
	}

	base, err := strconv.Atoi(string(data[12:17]))
	if err != nil || base <= leaderLen || base > len(data) {
		return nil, fmt.Errorf("%w: invalid base address %q", ErrMalformed, data[12:17])
	}
	if data[base-1] != fieldTerminator {
		return nil, fmt.Errorf("%w: directory not terminated", ErrMalformed)
	}

	directory := data[leaderLen : base-1]
	if len(directory)%dirEntryLen != 0 {
		return nil, fmt.Errorf("%w: directory length %d", ErrMalformed, len(directory))
	}

	rec := &Record{
		Leader: string(data[:leaderLen]),
		Fields: make([]*Field, 0, len(directory)/dirEntryLen),
	}

	for o := 0; o < len(directory); o += dirEntryLen {
		entry := directory[o : o+dirEntryLen]
		tag := string(entry[0:3])
		flen, err1 := strconv.Atoi(string(entry[3:7]))
		foff, err2 := strconv.Atoi(string(entry[7:12]))
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: bad directory entry %q", ErrMalformed, entry)
		}
		start := base + foff
		end := start + flen
		if flen < 1 || end > len(data)-1 {
			return nil, fmt.Errorf("%w: field %s out of bounds", ErrMalformed, tag)
		}
		raw := bytes.TrimSuffix(data[start:end], []byte{fieldTerminator})

		fld, err := parseField(tag, raw, dec)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, fld)
	}
	return rec, nil
}

func parseField(tag string, raw []byte, dec *encoding.Decoder) (*Field, error) {
	if IsControlTag(tag) {
		v, err := decode(dec, raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", tag, err)
		}
		return &Field{Tag: tag, Value: v}, nil
	}

	parts := bytes.Split(raw, []byte{subfieldDelimiter})
	fld := &Field{Tag: tag, Indicators: indicators(parts[0])}
	for _, p := range parts[1:] {
		if len(p) == 0 {
			continue
		}
		v, err := decode(dec, p[1:])
		if err != nil {
			return nil, fmt.Errorf("field %s$%c: %w", tag, p[0], err)
		}
		fld.Subfields = append(fld.Subfields, Subfield{Code: p[0], Value: v})
	}
	return fld, nil
}

func indicators(b []byte) string {
	switch len(b) {
	case 0:
		return "  "
	case 1:
		return string(b) + " "
	default:
		return string(b[:2])
	}
}

func decode(dec *encoding.Decoder, b []byte) (string, error) {
	out, err := dec.Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !utf8.Valid(out) || bytes.Contains(out, replacementChar) && !bytes.Contains(b, replacementChar) {
		return "", ErrDecode
	}
	return string(out), nil
}
