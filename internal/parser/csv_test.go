package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParser_BatchesRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("trade_id,price\n")
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&sb, "T%d,%d\n", i, i*10)
	}

	tree := (&CSVParser{}).Parse(sb.String(), "trades")
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "Rows 2-21", tree.Children[0].Title)
	assert.Equal(t, "Rows 22-26", tree.Children[1].Title)
	assert.Contains(t, tree.Children[0].Text, "Headers: trade_id, price")
	assert.Contains(t, tree.Children[0].Text, "trade_id: T1, price: 10\n")
	assert.Contains(t, tree.Children[1].Text, "trade_id: T25, price: 250\n")
}

func TestCSVParser_ExtraCellsHaveNoHeader(t *testing.T) {
	tree := (&CSVParser{}).Parse("a,b\n1,2,3\n", "x")
	require.Len(t, tree.Children, 1)
	assert.Contains(t, tree.Children[0].Text, "a: 1, b: 2, 3\n")
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	tree := (&CSVParser{}).Parse("a,b\n", "x")
	assert.Empty(t, tree.Children)
}

func TestDecode_CSVKeepsRawContent(t *testing.T) {
	src := "id,qty\n1,5\n"
	doc, err := Decode(Raw{Data: []byte(src), DeclaredType: "text/csv", Filename: "pos.csv"})
	require.NoError(t, err)
	assert.Equal(t, FormatText, doc.Format)
	assert.Equal(t, src, doc.Content)
	require.Len(t, doc.Outline.Children, 1)
	assert.Equal(t, "Rows 2-2", doc.Outline.Children[0].Title)
}

func TestIsCSV(t *testing.T) {
	assert.True(t, isCSV("text/csv", ""))
	assert.True(t, isCSV("", "Report.CSV"))
	assert.False(t, isCSV("text/plain", "notes.txt"))
}
