// Package marctest builds ISO 2709 records for tests.
package marctest

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding"
)

// Field describes one field to encode. Subfields are written as code byte
// followed by value, e.g. "aВойна и мир".
type Field struct {
	Tag       string
	Value     string
	Subfields []string
}

// Control returns a control field.
func Control(tag, value string) Field {
	return Field{Tag: tag, Value: value}
}

// Data returns a data field with blank indicators.
func Data(tag string, subfields ...string) Field {
	return Field{Tag: tag, Subfields: subfields}
}

// Leader returns a leader whose bibliographic level (position 7) is level.
func Leader(level byte) string {
	return "00000na" + string(level) + "  2200000   4500"
}

// Record encodes one record. Field text is converted with enc; a nil enc
// writes it as UTF-8.
func Record(enc encoding.Encoding, leader string, fields ...Field) []byte {
	var dir, body bytes.Buffer
	for _, f := range fields {
		var data bytes.Buffer
		if f.Tag < "010" {
			data.Write(convert(enc, f.Value))
		} else {
			data.WriteString("  ")
			for _, sf := range f.Subfields {
				data.WriteByte(0x1f)
				data.WriteByte(sf[0])
				data.Write(convert(enc, sf[1:]))
			}
		}
		data.WriteByte(0x1e)
		fmt.Fprintf(&dir, "%s%04d%05d", f.Tag, data.Len(), body.Len())
		body.Write(data.Bytes())
	}

	base := 24 + dir.Len() + 1
	total := base + body.Len() + 1
	ldr := []byte(leader)
	copy(ldr[0:5], fmt.Sprintf("%05d", total))
	copy(ldr[12:17], fmt.Sprintf("%05d", base))

	var out bytes.Buffer
	out.Write(ldr)
	out.Write(dir.Bytes())
	out.WriteByte(0x1e)
	out.Write(body.Bytes())
	out.WriteByte(0x1d)
	return out.Bytes()
}

// File concatenates encoded records.
func File(records ...[]byte) []byte {
	return bytes.Join(records, nil)
}

func convert(enc encoding.Encoding, s string) []byte {
	if enc == nil {
		return []byte(s)
	}
	b, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(fmt.Sprintf("marctest: encode %q: %v", s, err))
	}
	return b
}
