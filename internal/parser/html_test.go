package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLParser_Outline(t *testing.T) {
	src := `<html><head><title>Report</title><style>p{}</style></head><body>
<nav><a href="/">home</a></nav>
<p>Intro   text.</p>
<h1>Trades</h1>
<p>Two trades settled.</p>
<h2>Equities</h2>
<ul><li>AAPL x 100</li><li>MSFT x 50</li></ul>
<h1>Risk</h1>
<script>var x = 1;</script>
<p>Low.</p>
</body></html>`

	tree := (&HTMLParser{}).Parse(src, "report")
	assert.Equal(t, "report", tree.Title)
	require.Len(t, tree.Children, 3)

	assert.Equal(t, "", tree.Children[0].Title)
	assert.Equal(t, "Intro text.", tree.Children[0].Text)

	trades := tree.Children[1]
	assert.Equal(t, "Trades", trades.Title)
	assert.Equal(t, "Two trades settled.", trades.Text)
	require.Len(t, trades.Children, 1)
	assert.Equal(t, "Equities", trades.Children[0].Title)
	assert.Equal(t, "AAPL x 100\n\nMSFT x 50", trades.Children[0].Text)

	assert.Equal(t, "Risk", tree.Children[2].Title)
	assert.Equal(t, "Low.", tree.Children[2].Text)
}

func TestDecode_HTMLIsTextWithOutline(t *testing.T) {
	src := "<h1>Title</h1><p>Body</p>"
	doc, err := Decode(Raw{Data: []byte(src), DeclaredType: "text/html", Filename: "page.html"})
	require.NoError(t, err)

	assert.Equal(t, FormatText, doc.Format)
	assert.Equal(t, src, doc.Content)
	require.Len(t, doc.Outline.Children, 1)
	assert.Equal(t, "Title", doc.Outline.Children[0].Title)
}

func TestHeadingLevel(t *testing.T) {
	assert.Equal(t, 1, headingLevel("h1"))
	assert.Equal(t, 6, headingLevel("h6"))
	assert.Equal(t, 0, headingLevel("h7"))
	assert.Equal(t, 0, headingLevel("hr"))
	assert.Equal(t, 0, headingLevel("p"))
}
