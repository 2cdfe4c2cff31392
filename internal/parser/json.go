package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docsight/internal/doctree"
)

// NormalizeJSON parses text into a doctree.Value. Any syntax problem,
// including trailing data after the first value, is a *DecodeError; no
// partial structure is ever returned.
func NormalizeJSON(text string) (doctree.Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v, err := readValue(dec, 1)
	if err != nil {
		return doctree.Value{}, jsonError(dec, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("extra data after top-level value")
		}
		return doctree.Value{}, jsonError(dec, err)
	}
	return v, nil
}

// RenderJSON is the display form of a JSON document: two-space indented,
// keys in source order.
func RenderJSON(v doctree.Value) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// maxNestingDepth bounds nested arrays, objects and XML elements.
const maxNestingDepth = 10000

var errNestingTooDeep = fmt.Errorf("nesting too deep (over %d levels)", maxNestingDepth)

func readValue(dec *json.Decoder, depth int) (doctree.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return doctree.Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth > maxNestingDepth {
			return doctree.Value{}, errNestingTooDeep
		}
		switch t {
		case '{':
			m := doctree.NewMappingBuilder()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return doctree.Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return doctree.Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := readValue(dec, depth+1)
				if err != nil {
					return doctree.Value{}, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return doctree.Value{}, err
			}
			return m.Value(), nil
		case '[':
			seq := doctree.Sequence()
			for dec.More() {
				val, err := readValue(dec, depth+1)
				if err != nil {
					return doctree.Value{}, err
				}
				seq.Items = append(seq.Items, val)
			}
			if _, err := dec.Token(); err != nil {
				return doctree.Value{}, err
			}
			return seq, nil
		}
		return doctree.Value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
	case string:
		return doctree.String(t), nil
	case json.Number:
		return doctree.Number(t.String()), nil
	case bool:
		return doctree.Bool(t), nil
	case nil:
		return doctree.Null(), nil
	}
	return doctree.Value{}, fmt.Errorf("unexpected token %v", tok)
}

func jsonError(dec *json.Decoder, err error) *DecodeError {
	offset := dec.InputOffset()
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		offset = syn.Offset
	}
	msg := err.Error()
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		msg = "unexpected end of input"
	}
	return &DecodeError{Format: FormatJSON, Offset: offset, Msg: "JSON parsing error: " + msg}
}
