package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/docsight/internal/doctree"
)

// NotTradeRelated is the marker the trade analysis prompt asks the model to
// answer with when a document holds no trades.
const NotTradeRelated = "NOT_TRADE_RELATED"

const responseFooter = "Please provide a detailed and well-structured response based on the above content."

// formatPrompt frames instructions and document content the same way for
// every operation.
func formatPrompt(instructions, content string) string {
	var sb strings.Builder
	sb.WriteString("Instructions: ")
	sb.WriteString(instructions)
	sb.WriteString("\n\nContent:\n")
	sb.WriteString(content)
	sb.WriteString("\n\n")
	sb.WriteString(responseFooter)
	return sb.String()
}

func SummaryPrompt(kind, content string) string {
	return formatPrompt(fmt.Sprintf(
		"Please provide a comprehensive summary of the following %s content. "+
			"Include key points, main topics, and important details. "+
			"Structure the summary in a clear and readable format.", kind), content)
}

// ChunkSummaryPrompt asks for a partial summary of one chunk, with the
// document title and section breadcrumb or page range as context.
func ChunkSummaryPrompt(docTitle, kind string, chunk doctree.Chunk, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize part %d of %d of a %s document", chunk.Index+1, total, kind)
	if docTitle != "" {
		fmt.Fprintf(&sb, " titled %q", docTitle)
	}
	sb.WriteString(".")
	if len(chunk.Breadcrumb) > 0 {
		sb.WriteString(" Section: ")
		sb.WriteString(strings.Join(chunk.Breadcrumb, " > "))
		sb.WriteString(".")
	}
	switch {
	case chunk.PageStart > 0 && chunk.PageEnd > chunk.PageStart:
		fmt.Fprintf(&sb, " Pages %d-%d.", chunk.PageStart, chunk.PageEnd)
	case chunk.PageStart > 0:
		fmt.Fprintf(&sb, " Page %d.", chunk.PageStart)
	}
	sb.WriteString(" Keep every figure, name and date that matters; the partial summaries will be merged.")
	return formatPrompt(sb.String(), chunk.Text)
}

// CombinePrompt merges partial summaries into one.
func CombinePrompt(kind string, partials []string) string {
	var content strings.Builder
	for i, p := range partials {
		if i > 0 {
			content.WriteString("\n\n")
		}
		fmt.Fprintf(&content, "Part %d:\n%s", i+1, strings.TrimSpace(p))
	}
	return formatPrompt(fmt.Sprintf(
		"The following are summaries of consecutive parts of one %s document. "+
			"Combine them into a single comprehensive summary with key points, "+
			"main topics, and important details, without repeating yourself.", kind), content.String())
}

func QueryPrompt(question, content string) string {
	return formatPrompt(fmt.Sprintf(
		"Question: %s\n\nPlease provide a detailed answer based on the document content only. "+
			"If the answer cannot be found in the document, please indicate that.", question), content)
}

// TradeAnalysisPrompt asks for a trade analysis, with trade economics for
// trades maturing before asOf.
func TradeAnalysisPrompt(content string, asOf time.Time) string {
	return formatPrompt(fmt.Sprintf(
		"Analyze the following document for trade-related content. Keep it crisp. "+
			"If it is trade-related, provide a smart trade analysis including basic metrics, "+
			"risk analysis, market impact, and insights. Do not describe each trade individually; "+
			"give insights and analysis only. If any trade's maturity date is before %s, "+
			"give its trade economics (its strike price multiplied by its quantity). "+
			"If it is not trade-related, reply with exactly %s and nothing else.",
		asOf.Format("January 2 2006"), NotTradeRelated), content)
}
