package rag

import (
	"strings"
	"sync"

	"github.com/upb/manuals-assistant/models"
)

// Stream is an in-flight streaming answer. Chunks delivers text deltas
// and is always closed; faults arrive as in-band diagnostic chunks.
// Sources and Answer are valid once Chunks has been exhausted.
type Stream struct {
	chunks chan string

	mu      sync.Mutex
	sources []models.SourceRef
	answer  strings.Builder
}

func newStream() *Stream {
	return &Stream{chunks: make(chan string)}
}

// Chunks returns the channel of answer text deltas
func (s *Stream) Chunks() <-chan string {
	return s.chunks
}

// Sources returns the attribution list for the streamed answer
func (s *Stream) Sources() []models.SourceRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources
}

// Answer returns the accumulated answer text
func (s *Stream) Answer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answer.String()
}

func (s *Stream) setSources(sources []models.SourceRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = sources
}

func (s *Stream) record(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer.WriteString(chunk)
}
