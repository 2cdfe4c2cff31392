// Package flatten collapses decoded XML and JSON documents into rows of
// key-path/value cells for spreadsheet export.
//
// The two formats flatten differently. XML folds each record's whole subtree
// into one row, keying text by the element tag and attributes by
// "<tag> <attribute>"; deeper elements overwrite shallower ones with the same
// tag. JSON branches: every scalar gets its own column named by the full path
// of keys and array indexes leading to it.
package flatten

import (
	"sort"
	"strconv"

	"github.com/dgallion1/docsight/internal/doctree"
	"github.com/dgallion1/docsight/internal/parser"
)

const (
	// DefaultSeparator joins JSON key paths.
	DefaultSeparator = "_"
	// AttributeSeparator joins an XML element tag to one of its attribute names.
	AttributeSeparator = " "
)

// Row maps flattened key paths to cell values.
type Row map[string]string

// RowSet holds one Row per root record, in document order.
type RowSet struct {
	Rows []Row
}

// Headers returns the sorted union of keys across all rows.
func (rs RowSet) Headers() []string {
	seen := make(map[string]struct{})
	for _, row := range rs.Rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	headers := make([]string, 0, len(seen))
	for k := range seen {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	return headers
}

// Cells lays the rows out under headers, padding missing keys with "".
func (rs RowSet) Cells(headers []string) [][]string {
	out := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		cells := make([]string, len(headers))
		for j, h := range headers {
			cells[j] = row[h]
		}
		out[i] = cells
	}
	return out
}

// Options tunes JSON flattening.
type Options struct {
	// Separator joins path segments. Empty means DefaultSeparator.
	Separator string
}

func (o Options) separator() string {
	if o.Separator == "" {
		return DefaultSeparator
	}
	return o.Separator
}

// Document flattens a decoded XML or JSON document. Any other format is a
// *parser.ValidationError.
func Document(doc *parser.Document, opts Options) (RowSet, error) {
	switch {
	case doc.XML != nil:
		return XML(doc.XML), nil
	case doc.JSON != nil:
		return JSON(*doc.JSON, opts)
	}
	return RowSet{}, &parser.ValidationError{Msg: "unsupported file type for Excel conversion"}
}

// XML makes one row per direct child of root.
func XML(root *doctree.Element) RowSet {
	var rs RowSet
	for _, record := range root.Children {
		row := Row{}
		foldElement(record, row)
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

func foldElement(e *doctree.Element, row Row) {
	for name, value := range e.Attributes {
		row[e.Tag+AttributeSeparator+name] = value
	}
	if e.Text != "" {
		row[e.Tag] = e.Text
	}
	for _, c := range e.Children {
		foldElement(c, row)
	}
}

// JSON makes one row for a top-level mapping, or one per element of a
// top-level sequence. Every record must be a mapping.
func JSON(v doctree.Value, opts Options) (RowSet, error) {
	var records []doctree.Value
	switch v.Kind {
	case doctree.KindMapping:
		records = []doctree.Value{v}
	case doctree.KindSequence:
		for i, item := range v.Items {
			if item.Kind != doctree.KindMapping {
				return RowSet{}, &parser.ValidationError{
					Msg: "unsupported JSON record shape at index " + strconv.Itoa(i),
				}
			}
		}
		records = v.Items
	default:
		return RowSet{}, &parser.ValidationError{Msg: "unsupported JSON shape for tabular export"}
	}

	sep := opts.separator()
	rs := RowSet{Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		row := Row{}
		flattenValue(rec, "", sep, row)
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

func flattenValue(v doctree.Value, path, sep string, row Row) {
	switch v.Kind {
	case doctree.KindMapping:
		for _, f := range v.Fields {
			flattenValue(f.Value, join(path, f.Key, sep), sep, row)
		}
	case doctree.KindSequence:
		for i, item := range v.Items {
			flattenValue(item, join(path, strconv.Itoa(i), sep), sep, row)
		}
	default:
		row[path] = v.Scalar
	}
}

func join(path, key, sep string) string {
	if path == "" {
		return key
	}
	return path + sep + key
}
