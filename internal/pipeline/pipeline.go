package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"docmind/internal/embedding"
	"docmind/internal/history"
	"docmind/internal/models"
	"docmind/internal/vectorindex"
)

// Extractor, Chunker and Synthesizer are the capability seams of the
// pipeline. Production wiring uses internal/extractor, internal/chunker and
// internal/synthesizer; tests substitute deterministic fakes.
type Extractor interface {
	Extract(data []byte, filename string) ([]models.Page, error)
}

type Chunker interface {
	Split(pages []models.Page, sourceID string, totalPages int) ([]models.Chunk, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, question string, matches []models.Match, recent []models.Exchange) (string, []models.Citation, error)
}

// Answer is the result of one ask operation.
type Answer struct {
	Answer    string            `json:"answer"`
	Citations []models.Citation `json:"sources"`
}

// Status reports the session state for display.
type Status struct {
	Documents []string `json:"documents_loaded"`
	Ready     bool     `json:"ready"`
}

type Options struct {
	TopK          int
	HistoryWindow int
}

const (
	defaultTopK          = 4
	defaultHistoryWindow = 5
)

// Session owns the mutable state of one logical workspace: the vector index
// (absent until the first successful ingest), the ordered document records
// and the conversation log. Ingest, Ask and Reset are mutually exclusive
// critical sections; every one of them commits fully or not at all.
type Session struct {
	extractor     Extractor
	splitter      Chunker
	embedder      embedding.Embedder
	synth         Synthesizer
	topK          int
	historyWindow int

	mu        sync.Mutex
	index     *vectorindex.Index
	documents []models.DocumentRecord
	log       *history.Log
}

func NewSession(extractor Extractor, splitter Chunker, embedder embedding.Embedder, synth Synthesizer, opts Options) *Session {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	return &Session{
		extractor:     extractor,
		splitter:      splitter,
		embedder:      embedder,
		synth:         synth,
		topK:          opts.TopK,
		historyWindow: opts.HistoryWindow,
		log:           history.NewLog(),
	}
}

// Ingest extracts, chunks, embeds and merges one document into the session
// index. On any failure the session state is left untouched.
func (s *Session) Ingest(ctx context.Context, data []byte, filename string) (*models.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages, err := s.extractor.Extract(data, filename)
	if err != nil {
		return nil, err
	}

	chunks, err := s.splitter.Split(pages, filename, len(pages))
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyDocument, filename)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	// The first successful merge establishes the index; the session only
	// adopts a fresh index once the merge went through.
	index := s.index
	if index == nil {
		index, err = vectorindex.New()
		if err != nil {
			return nil, err
		}
	}
	if err := index.Merge(ctx, chunks, vectors); err != nil {
		return nil, err
	}
	s.index = index

	record := models.DocumentRecord{
		Filename:   filename,
		PageCount:  len(pages),
		ChunkCount: len(chunks),
	}
	s.documents = append(s.documents, record)

	log.Info().Str("filename", filename).Int("pages", record.PageCount).
		Int("chunks", record.ChunkCount).Int("index_size", index.Len()).
		Msg("Document ingested")
	return &record, nil
}

// Ask retrieves the most similar chunks for the question and synthesizes a
// grounded answer. The exchange is appended to the conversation log only
// after successful synthesis.
func (s *Session) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, models.ErrInvalidQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil || s.index.IsEmpty() {
		return nil, models.ErrNotReady
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", models.ErrEmbeddingProvider, len(vectors))
	}

	matches, err := s.index.Search(ctx, vectors[0], s.topK)
	if err != nil {
		return nil, err
	}

	answer, citations, err := s.synth.Synthesize(ctx, question, matches, s.log.Recent(s.historyWindow))
	if err != nil {
		return nil, err
	}
	s.log.Append(question, answer)

	log.Info().Int("retrieved", len(matches)).Int("citations", len(citations)).Msg("Question answered")
	return &Answer{Answer: answer, Citations: citations}, nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	filenames := make([]string, len(s.documents))
	for i, d := range s.documents {
		filenames[i] = d.Filename
	}
	return Status{Documents: filenames, Ready: s.index != nil}
}

func (s *Session) Documents() []models.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.DocumentRecord, len(s.documents))
	copy(out, s.documents)
	return out
}

func (s *Session) History() []models.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.All()
}

// Reset drops the index, document records and conversation log in one
// critical section. Calling it twice is the same as calling it once.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = nil
	s.documents = nil
	s.log.Clear()
	log.Info().Msg("Session reset")
}
