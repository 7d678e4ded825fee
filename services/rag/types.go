package rag

import (
	"fmt"
	"strings"

	"github.com/upb/manuals-assistant/models"
	"github.com/upb/manuals-assistant/services/search"
)

// Parameter bounds for a question
const (
	MinTopK     = 1
	MaxTopK     = 15
	DefaultTopK = 5

	MinTemperature     = 0.0
	MaxTemperature     = 1.0
	DefaultTemperature = 1.0
)

// NoResultsAnswer is returned when the index has nothing for the question
const NoResultsAnswer = "No relevant information was found in the device manuals for your question. " +
	"Try rephrasing it, or ask about a different device or procedure."

// AskParams carries a question through the pipeline
type AskParams struct {
	Question    string
	TopK        int
	Temperature float64
}

// clamped normalizes parameters into their documented bounds
func (p AskParams) clamped() AskParams {
	if p.TopK == 0 {
		p.TopK = DefaultTopK
	}
	if p.TopK < MinTopK {
		p.TopK = MinTopK
	}
	if p.TopK > MaxTopK {
		p.TopK = MaxTopK
	}
	if p.Temperature < MinTemperature {
		p.Temperature = MinTemperature
	}
	if p.Temperature > MaxTemperature {
		p.Temperature = MaxTemperature
	}
	return p
}

// Result is a complete pipeline answer. Sources lists the documents the
// answer was grounded on, in backend relevance order; it is empty when
// no generation happened.
type Result struct {
	Answer  string
	Sources []models.SourceRef
}

// sourcesFromDocs builds the attribution list from the original,
// un-budgeted search results.
func sourcesFromDocs(docs []search.Document) []models.SourceRef {
	sources := make([]models.SourceRef, len(docs))
	for i, doc := range docs {
		sources[i] = models.SourceRef{
			Name:  doc.Source,
			Path:  doc.Path,
			Score: doc.Score,
		}
	}
	return sources
}

// noUsableContextAnswer describes results that carried no readable
// content, with a few relevance scores to aid index debugging.
func noUsableContextAnswer(docs []search.Document) string {
	scores := make([]string, 0, 3)
	for _, doc := range docs {
		if len(scores) == 3 {
			break
		}
		scores = append(scores, fmt.Sprintf("%.2f", doc.Score))
	}
	return fmt.Sprintf(
		"The search returned %d document(s) for your question, but none contained readable content "+
			"(sample relevance scores: %s). The source files may not have been indexed correctly.",
		len(docs), strings.Join(scores, ", "))
}
