package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the three shapes a decoded JSON value can take.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ScalarType records which JSON literal a scalar came from.
type ScalarType int

const (
	ScalarString ScalarType = iota
	ScalarNumber
	ScalarBool
	ScalarNull
)

// Value is a decoded JSON value. Exactly one of the shape fields is
// meaningful, selected by Kind:
//
//	KindScalar   -> Scalar (canonical text) and Type
//	KindSequence -> Items
//	KindMapping  -> Fields, in source order
type Value struct {
	Kind   Kind
	Scalar string
	Type   ScalarType
	Items  []Value
	Fields []Field
}

// Field is one key/value pair of a mapping.
type Field struct {
	Key   string
	Value Value
}

func String(s string) Value { return Value{Kind: KindScalar, Scalar: s, Type: ScalarString} }

// Number stores a JSON number literal in canonical form: "1.50" becomes
// "1.5", "1e2" becomes "100" and "-0" becomes "0".
func Number(literal string) Value {
	return Value{Kind: KindScalar, Scalar: CanonicalNumber(literal), Type: ScalarNumber}
}

// CanonicalNumber rewrites a JSON number literal as the shortest decimal
// that round-trips through float64. Integer literals are kept digit for digit
// so large identifiers do not lose precision. Literals outside float64 range
// are returned unchanged.
func CanonicalNumber(literal string) string {
	if !strings.ContainsAny(literal, ".eE") {
		if literal == "-0" {
			return "0"
		}
		return literal
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return literal
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func Bool(b bool) Value {
	if b {
		return Value{Kind: KindScalar, Scalar: "true", Type: ScalarBool}
	}
	return Value{Kind: KindScalar, Scalar: "false", Type: ScalarBool}
}

// Null renders as the empty string in tabular output.
func Null() Value { return Value{Kind: KindScalar, Type: ScalarNull} }

func Sequence(items ...Value) Value { return Value{Kind: KindSequence, Items: items} }

// Mapping builds a mapping; a repeated key replaces the earlier value in
// place.
func Mapping(fields ...Field) Value {
	b := NewMappingBuilder()
	for _, f := range fields {
		b.Set(f.Key, f.Value)
	}
	return b.Value()
}

// MappingBuilder collects mapping fields in order with constant-time key
// lookup.
type MappingBuilder struct {
	fields []Field
	index  map[string]int
}

func NewMappingBuilder() *MappingBuilder {
	return &MappingBuilder{index: make(map[string]int)}
}

// Set appends key, or replaces its value at its first position.
func (b *MappingBuilder) Set(key string, val Value) {
	if i, ok := b.index[key]; ok {
		b.fields[i].Value = val
		return
	}
	b.index[key] = len(b.fields)
	b.fields = append(b.fields, Field{Key: key, Value: val})
}

func (b *MappingBuilder) Value() Value {
	return Value{Kind: KindMapping, Fields: b.fields}
}

// Get looks up a mapping key.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value of an existing key in place or appends a new field.
func (v *Value) Set(key string, val Value) {
	for i := range v.Fields {
		if v.Fields[i].Key == key {
			v.Fields[i].Value = val
			return
		}
	}
	v.Fields = append(v.Fields, Field{Key: key, Value: val})
}

// MarshalJSON re-encodes the value, keeping mapping keys in source order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindScalar:
		switch v.Type {
		case ScalarNull:
			buf.WriteString("null")
		case ScalarNumber, ScalarBool:
			buf.WriteString(v.Scalar)
		default:
			if err := encodeString(buf, v.Scalar); err != nil {
				return err
			}
		}
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("encode value: unknown %s", v.Kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline.
	return nil
}
