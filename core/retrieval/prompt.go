package retrieval

import (
	"fmt"
	"strings"

	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

const systemPrompt = `You are a careful assistant answering questions strictly from the provided sources.
Cite every claim with the bracketed number of the source it came from, like [1] or [2].
If the sources do not answer the question, say so. Never invent facts or citations.`

// buildMessages renders the retrieved chunks and graph context into the
// chat messages handed to synthesis. Sources are numbered in result order
// so citation markers map back to the citation list.
func buildMessages(query string, results []*services.SearchResult, graphCtx *model.GraphContext) []services.Message {
	var b strings.Builder
	b.WriteString("Sources:\n")
	for i, result := range results {
		b.WriteString(sourceLabel(i+1, result))
		b.WriteString("\n")
		b.WriteString(result.Chunk.Content)
		b.WriteString("\n\n")
	}

	if graphCtx != nil && (len(graphCtx.Entities) > 0 || len(graphCtx.Relationships) > 0) {
		b.WriteString("Known entities and relationships:\n")
		for _, entity := range graphCtx.Entities {
			b.WriteString("- ")
			b.WriteString(entity.Name)
			if entity.Type != "" {
				b.WriteString(" (" + entity.Type + ")")
			}
			if entity.Description != "" {
				b.WriteString(": " + entity.Description)
			}
			b.WriteString("\n")
		}
		for _, relationship := range graphCtx.Relationships {
			fmt.Fprintf(&b, "- %v %v %v\n", relationship.From, relationship.Type, relationship.To)
		}
		b.WriteString("\n")
	}

	b.WriteString("Question: ")
	b.WriteString(query)

	return []services.Message{
		{Role: services.RoleSystem, Content: systemPrompt},
		{Role: services.RoleUser, Content: b.String()},
	}
}

// sourceLabel renders the numbered header of one source block.
func sourceLabel(number int, result *services.SearchResult) string {
	label := fmt.Sprintf("[%v] %v", number, result.DocumentName)
	if result.Chunk.Section != "" {
		label += ", " + result.Chunk.Section
	}
	if result.Chunk.Page != nil {
		label += fmt.Sprintf(", page %v", *result.Chunk.Page)
	}
	return label
}
