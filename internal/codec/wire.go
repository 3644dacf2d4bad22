package codec

import (
	"fmt"

	"github.com/jwalitptl/clinicstore/internal/model"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendOptionalString(b []byte, num protowire.Number, s *string) []byte {
	if s == nil {
		return b
	}
	return appendString(b, num, *s)
}

// appendMultimedia writes m as an embedded message. Nil writes nothing, so
// an absent value and one with every URL unset encode differently.
func appendMultimedia(b []byte, num protowire.Number, m *model.MultimediaContent) []byte {
	if m == nil {
		return b
	}
	var inner []byte
	inner = appendOptionalString(inner, 1, m.ImageURL)
	inner = appendOptionalString(inner, 2, m.VideoURL)
	inner = appendOptionalString(inner, 3, m.AudioURL)

	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

// field describes one expected field and where its decoded value goes.
// Exactly one destination is set.
type field struct {
	num      protowire.Number
	typ      protowire.Type
	optional bool

	varint *uint64
	str    *string
	optStr **string
	media  **model.MultimediaContent
}

// walk decodes b against fields, which must be listed in ascending field
// number order. Fields must appear in that same order, at most once each;
// unknown fields, wrong wire types, missing required fields and truncated
// input are all rejected.
func walk(b []byte, fields []field) error {
	next := 0
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		i := next
		for i < len(fields) && fields[i].num != num {
			if !fields[i].optional {
				return fmt.Errorf("%w: field %d missing or out of order", ErrMalformed, fields[i].num)
			}
			i++
		}
		if i == len(fields) {
			return fmt.Errorf("%w: unexpected field %d", ErrMalformed, num)
		}
		f := fields[i]
		if typ != f.typ {
			return fmt.Errorf("%w: field %d has wire type %d, expected %d", ErrMalformed, num, typ, f.typ)
		}

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			*f.varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			if err := f.setBytes(v); err != nil {
				return err
			}
			b = b[n:]
		}
		next = i + 1
	}

	for ; next < len(fields); next++ {
		if !fields[next].optional {
			return fmt.Errorf("%w: field %d missing", ErrMalformed, fields[next].num)
		}
	}
	return nil
}

func (f field) setBytes(v []byte) error {
	switch {
	case f.str != nil:
		*f.str = string(v)
	case f.optStr != nil:
		s := string(v)
		*f.optStr = &s
	case f.media != nil:
		m := &model.MultimediaContent{}
		err := walk(v, []field{
			{num: 1, typ: protowire.BytesType, optional: true, optStr: &m.ImageURL},
			{num: 2, typ: protowire.BytesType, optional: true, optStr: &m.VideoURL},
			{num: 3, typ: protowire.BytesType, optional: true, optStr: &m.AudioURL},
		})
		if err != nil {
			return fmt.Errorf("multimedia content: %w", err)
		}
		*f.media = m
	}
	return nil
}
