package search

// Document is a normalized manual fragment returned by the search index.
// Content may be empty when the indexed blob had no extractable text.
// Score is 0.0 when the backend did not report a relevance score.
type Document struct {
	Content string
	Source  string
	Path    string
	Score   float64
}

// UnknownSource is used when the index row carries no document name.
const UnknownSource = "Unknown"
