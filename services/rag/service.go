package rag

import (
	"context"
	"errors"

	"github.com/upb/manuals-assistant/services/generation"
	"github.com/upb/manuals-assistant/services/search"
	"go.uber.org/zap"
)

// searchUnavailableAnswer is returned when the index cannot be queried
const searchUnavailableAnswer = "The manual search service is currently unavailable. Please try again in a moment."

// Searcher queries the manual index
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]search.Document, error)
}

// Service orchestrates the answer pipeline: search, context budgeting,
// grounded generation and source attribution.
type Service struct {
	searcher     Searcher
	generator    generation.Generator
	systemPrompt string
	logger       *zap.Logger
}

// NewService creates a new pipeline service
func NewService(searcher Searcher, generator generation.Generator, systemPrompt string, logger *zap.Logger) *Service {
	if systemPrompt == "" {
		systemPrompt = generation.DefaultSystemPrompt
	}
	return &Service{
		searcher:     searcher,
		generator:    generator,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Answer runs the pipeline in blocking mode. Faults never escape as
// errors: every outcome is a structured answer the engineer can read.
func (s *Service) Answer(ctx context.Context, params AskParams) *Result {
	params = params.clamped()

	docs, err := s.searcher.Search(ctx, params.Question, params.TopK)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		return &Result{Answer: searchUnavailableAnswer}
	}

	if len(docs) == 0 {
		s.logger.Info("no search results", zap.String("question", params.Question))
		return &Result{Answer: NoResultsAnswer}
	}

	fragments := BuildContext(docs)
	if len(fragments) == 0 {
		s.logger.Warn("results carried no usable content",
			zap.Int("documents", len(docs)))
		return &Result{Answer: noUsableContextAnswer(docs)}
	}

	answer, err := s.generator.Generate(ctx, generation.Request{
		SystemPrompt: s.systemPrompt,
		Question:     params.Question,
		Fragments:    fragments,
		Temperature:  params.Temperature,
	})
	if err != nil {
		s.logger.Error("generation failed", zap.Error(err))
		return &Result{Answer: answerForError(err)}
	}

	return &Result{
		Answer:  answer,
		Sources: sourcesFromDocs(docs),
	}
}

// AnswerStream runs the pipeline in streaming mode. The stream's chunk
// channel is always closed; pre-generation outcomes (no results, no
// usable context, search failure) arrive as a single chunk.
func (s *Service) AnswerStream(ctx context.Context, params AskParams) *Stream {
	params = params.clamped()
	stream := newStream()

	go func() {
		defer close(stream.chunks)

		docs, err := s.searcher.Search(ctx, params.Question, params.TopK)
		if err != nil {
			s.logger.Error("search failed", zap.Error(err))
			s.deliver(ctx, stream, searchUnavailableAnswer)
			return
		}

		if len(docs) == 0 {
			s.deliver(ctx, stream, NoResultsAnswer)
			return
		}

		fragments := BuildContext(docs)
		if len(fragments) == 0 {
			s.deliver(ctx, stream, noUsableContextAnswer(docs))
			return
		}

		stream.setSources(sourcesFromDocs(docs))

		chunks := s.generator.GenerateStream(ctx, generation.Request{
			SystemPrompt: s.systemPrompt,
			Question:     params.Question,
			Fragments:    fragments,
			Temperature:  params.Temperature,
		})
		for chunk := range chunks {
			if !s.deliver(ctx, stream, chunk) {
				return
			}
		}
	}()

	return stream
}

// deliver records a chunk and forwards it, honoring cancellation
func (s *Service) deliver(ctx context.Context, stream *Stream, chunk string) bool {
	stream.record(chunk)
	select {
	case stream.chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// answerForError renders a generation failure as answer text
func answerForError(err error) string {
	var genErr *generation.Error
	if errors.As(err, &genErr) {
		return genErr.UserMessage()
	}
	return "An unexpected error occurred while generating the answer: " + err.Error()
}
