package generation

import "context"

// DefaultSystemPrompt frames the assistant for field engineers working
// from ingested device manuals.
const DefaultSystemPrompt = "You are a technical assistant for field service engineers. " +
	"You answer questions about biomedical devices using only the manual excerpts provided. " +
	"Be precise, cite procedures step by step, and never invent information that is not in the excerpts."

// DefaultTemperature is the backend default; when a request carries it
// the temperature parameter is omitted from the outgoing call.
const DefaultTemperature = 1.0

// FallbackAnswer is returned when the backend responds without any choices
const FallbackAnswer = "No answer could be generated. Please try rephrasing your question."

// Request carries everything needed to produce a grounded answer
type Request struct {
	SystemPrompt string
	Question     string
	Fragments    []string
	Temperature  float64
}

// Generator produces answers grounded on manual fragments.
//
// Generate blocks until the full answer is available. GenerateStream
// returns a channel of text deltas; the channel is always closed, and
// any fault (before or during the stream) is delivered as a final
// human-readable chunk rather than an error.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request) <-chan string
}
