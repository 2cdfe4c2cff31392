package chunker

import (
	"strings"
	"unicode"

	"github.com/dgallion1/docsight/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.

	// MergeSiblings packs consecutive small sections into one chunk. The
	// merged chunk keeps the breadcrumb the sections share and spans their
	// pages.
	MergeSiblings bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     100,
	}
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1500
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 200
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 4
	}
	if c.MinChunk <= 0 {
		c.MinChunk = 100
	}
	return c
}

type section struct {
	breadcrumb []string
	text       string
	page       int
}

// ChunkTree walks a DocTree and produces structure-aware chunks.
func ChunkTree(tree *doctree.DocTree, cfg Config) []doctree.Chunk {
	cfg = cfg.withDefaults()

	var sections []section
	for _, child := range tree.Children {
		collect(child, nil, &sections)
	}

	var chunks []doctree.Chunk
	emit := func(text string, bc []string, start, end int) {
		if EstimateTokens(text) < cfg.MinChunk {
			return
		}
		chunks = append(chunks, doctree.Chunk{
			Text:       text,
			Index:      len(chunks),
			Breadcrumb: copyBreadcrumb(bc),
			PageStart:  start,
			PageEnd:    end,
		})
	}

	var (
		pending       []string
		pendingTokens int
		pendingBC     []string
		first, last   int
	)
	flush := func() {
		if len(pending) > 0 {
			emit(strings.Join(pending, "\n\n"), pendingBC, first, last)
		}
		pending, pendingTokens, pendingBC = nil, 0, nil
	}

	for _, s := range sections {
		tokens := EstimateTokens(s.text)
		if tokens > cfg.ChunkSize {
			flush()
			for _, part := range splitText(s.text, cfg.ChunkSize, cfg.ChunkOverlap) {
				emit(part, s.breadcrumb, s.page, s.page)
			}
			continue
		}
		if !cfg.MergeSiblings {
			emit(s.text, s.breadcrumb, s.page, s.page)
			continue
		}

		if pendingTokens+tokens > cfg.ChunkSize {
			flush()
		}
		if len(pending) == 0 {
			pendingBC, first = s.breadcrumb, s.page
		} else {
			pendingBC = commonPrefix(pendingBC, s.breadcrumb)
		}
		pending = append(pending, s.text)
		pendingTokens += tokens
		last = s.page
	}
	flush()

	return chunks
}

// collect flattens the tree into text-bearing sections in document order.
func collect(node *doctree.DocNode, breadcrumb []string, out *[]section) {
	bc := copyBreadcrumb(breadcrumb)
	if node.Title != "" {
		bc = append(bc, node.Title)
	}
	if strings.TrimSpace(node.Text) != "" {
		*out = append(*out, section{breadcrumb: bc, text: node.Text, page: node.Page})
	}
	for _, child := range node.Children {
		collect(child, bc, out)
	}
}

// Split breaks free text into chunks of roughly cfg.ChunkSize tokens.
func Split(text string, cfg Config) []string {
	cfg = cfg.withDefaults()
	if EstimateTokens(text) <= cfg.ChunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}
	return splitText(text, cfg.ChunkSize, cfg.ChunkOverlap)
}

// Truncate cuts text after roughly maxTokens tokens, at a word boundary,
// keeping the original formatting. It reports whether anything was cut.
func Truncate(text string, maxTokens int) (string, bool) {
	if EstimateTokens(text) <= maxTokens {
		return text, false
	}

	budget := float64(maxTokens)
	var cost float64
	kept, start := 0, -1
	// fits adds the word ending at end and reports whether it is in budget.
	fits := func(end int) bool {
		cost += tokensPerWord + longWordExtra(text[start:end])
		if cost > budget {
			return false
		}
		kept = end
		return true
	}

	for i, r := range text {
		if !unicode.IsSpace(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if !fits(i) {
				return text[:kept], true
			}
			start = -1
		}
	}
	if start >= 0 && !fits(len(text)) {
		return text[:kept], true
	}
	return text, false
}

// A level splits text into units and joins them back. Units too large for
// one chunk are split again at the next, finer level.
type level struct {
	split  func(string) []string
	joiner string
}

var levels = []level{
	{split: splitByParagraphs, joiner: "\n\n"},
	{split: splitByLines, joiner: "\n"},
	{split: splitSentences, joiner: " "},
	{split: strings.Fields, joiner: " "},
}

// splitText breaks text into chunks of approximately targetTokens, with overlap.
func splitText(text string, targetTokens, overlapTokens int) []string {
	return splitLevel(text, 0, targetTokens, overlapTokens)
}

func splitLevel(text string, depth, targetTokens, overlapTokens int) []string {
	lv := levels[depth]

	var result []string
	var current []string
	currentTokens := 0
	flush := func() {
		if currentTokens > 0 {
			result = append(result, strings.Join(current, lv.joiner))
		}
		current, currentTokens = nil, 0
	}

	for _, unit := range lv.split(text) {
		unitTokens := EstimateTokens(unit)

		if unitTokens > targetTokens && depth+1 < len(levels) {
			flush()
			result = append(result, splitLevel(unit, depth+1, targetTokens, overlapTokens)...)
			continue
		}

		if currentTokens+unitTokens > targetTokens && currentTokens > 0 {
			chunk := strings.Join(current, lv.joiner)
			result = append(result, chunk)

			// Start next chunk with overlap from end of current.
			current, currentTokens = nil, 0
			if overlap := getOverlapText(chunk, overlapTokens); overlap != "" {
				current = append(current, overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		current = append(current, unit)
		currentTokens += unitTokens
	}
	flush()

	return result
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	return nonEmpty(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n"))
}

func splitByLines(text string) []string {
	return nonEmpty(strings.Split(text, "\n"))
}

func nonEmpty(parts []string) []string {
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// getOverlapText extracts the last N tokens worth of text for overlap.
func getOverlapText(text string, targetTokens int) string {
	words := strings.Fields(text)
	targetWords := int(float64(targetTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}

func commonPrefix(a, b []string) []string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return a[:n]
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
