package gemini

import (
	"fmt"
	"strings"
)

// DescriptionPromptFormat asks for a description of text extracted from a photo
// or document. It expects the extracted text as its only argument.
const DescriptionPromptFormat = "Based on the following extracted text, provide a description:\n\n%s"

// SummaryPromptFormat asks for a summary of web search results.
const SummaryPromptFormat = "Summarize: %s"

// SearchHit is the part of a web search result that is shown to the model.
type SearchHit struct {
	Title   string
	Link    string
	Snippet string
}

func descriptionPrompt(extracted string) string {
	return fmt.Sprintf(DescriptionPromptFormat, extracted)
}

// summaryPrompt renders the hits one per line. An empty list still produces a
// prompt so the model can answer that nothing was found.
func summaryPrompt(query string, hits []SearchHit) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "query %q\n", query)
	if len(hits) == 0 {
		sb.WriteString("(no results)")
	}
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d. %s | %s | %s\n", i+1, h.Title, h.Link, h.Snippet)
	}
	return fmt.Sprintf(SummaryPromptFormat, strings.TrimRight(sb.String(), "\n"))
}
