package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmind/internal/chunker"
	"docmind/internal/models"
	"docmind/internal/pipeline"
	"docmind/internal/synthesizer"
)

// hashEmbedder is a deterministic bag-of-words embedder: each token is
// hashed into a bucket and the count vector is L2-normalized, so texts
// sharing words come out similar. No network involved.
type hashEmbedder struct {
	dim  int
	fail bool
}

func (h *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if h.fail {
		return nil, fmt.Errorf("%w: provider unavailable", models.ErrEmbeddingProvider)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *hashEmbedder) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if tok == "" {
			continue
		}
		hash := fnv.New32a()
		hash.Write([]byte(tok))
		vec[hash.Sum32()%uint32(h.dim)]++
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := float32(math.Sqrt(sum))
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// fakeExtractor serves canned pages per filename, enforcing the same
// blank-document rule as the real extractor.
type fakeExtractor struct {
	pages map[string][]models.Page
}

func (f *fakeExtractor) Extract(_ []byte, filename string) ([]models.Page, error) {
	pages, ok := f.pages[filename]
	if !ok {
		return nil, fmt.Errorf("%w: no fixture for %s", models.ErrExtraction, filename)
	}
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return pages, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrEmptyDocument, filename)
}

type fakeLLM struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, _, user string) (string, error) {
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type sessionConfig struct {
	chunkSize    int
	chunkOverlap int
	options      pipeline.Options
	embedder     *hashEmbedder
	llm          *fakeLLM
	extractor    *fakeExtractor
}

func newTestSession(t *testing.T, cfg sessionConfig) *pipeline.Session {
	t.Helper()
	if cfg.chunkSize == 0 {
		cfg.chunkSize, cfg.chunkOverlap = 1000, 200
	}
	if cfg.embedder == nil {
		cfg.embedder = &hashEmbedder{dim: 256}
	}
	if cfg.llm == nil {
		cfg.llm = &fakeLLM{answer: "canned answer"}
	}
	if cfg.extractor == nil {
		cfg.extractor = &fakeExtractor{pages: map[string][]models.Page{}}
	}
	splitter, err := chunker.New(cfg.chunkSize, cfg.chunkOverlap)
	require.NoError(t, err)
	return pipeline.NewSession(cfg.extractor, splitter, cfg.embedder, synthesizer.New(cfg.llm), cfg.options)
}

func petsFixture() *fakeExtractor {
	return &fakeExtractor{pages: map[string][]models.Page{
		"pets.pdf": {
			{Number: 1, Text: "Alice likes cats."},
			{Number: 2, Text: "Bob likes dogs."},
		},
		"blank.pdf": {
			{Number: 1, Text: "   "},
			{Number: 2, Text: ""},
		},
	}}
}

func TestIngestThenAskRetrievesRelevantChunk(t *testing.T) {
	llm := &fakeLLM{answer: "Alice likes cats."}
	sess := newTestSession(t, sessionConfig{
		// small chunks so each page becomes its own chunk
		chunkSize:    20,
		chunkOverlap: 5,
		llm:          llm,
		extractor:    petsFixture(),
	})

	record, err := sess.Ingest(context.Background(), nil, "pets.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pets.pdf", record.Filename)
	assert.Equal(t, 2, record.PageCount)
	assert.Equal(t, 2, record.ChunkCount)

	status := sess.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, []string{"pets.pdf"}, status.Documents)

	answer, err := sess.Ask(context.Background(), "Who likes cats?")
	require.NoError(t, err)
	assert.Equal(t, "Alice likes cats.", answer.Answer)

	require.NotEmpty(t, answer.Citations)
	assert.Equal(t, "Alice likes cats....", answer.Citations[0].Preview)
	assert.Equal(t, "pets.pdf", answer.Citations[0].SourceID)
	assert.Equal(t, "1", answer.Citations[0].PageNumber)
}

func TestAskBeforeIngestFailsNotReady(t *testing.T) {
	sess := newTestSession(t, sessionConfig{})

	_, err := sess.Ask(context.Background(), "Who likes cats?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotReady))
}

func TestIngestBlankDocumentLeavesSessionEmpty(t *testing.T) {
	sess := newTestSession(t, sessionConfig{extractor: petsFixture()})

	_, err := sess.Ingest(context.Background(), nil, "blank.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrEmptyDocument))

	status := sess.Status()
	assert.False(t, status.Ready)
	assert.Empty(t, status.Documents)
}

func TestAskBlankQuestionFailsEarly(t *testing.T) {
	sess := newTestSession(t, sessionConfig{extractor: petsFixture()})

	_, err := sess.Ask(context.Background(), "   ")
	assert.True(t, errors.Is(err, models.ErrInvalidQuestion))

	_, err = sess.Ingest(context.Background(), nil, "pets.pdf")
	require.NoError(t, err)

	_, err = sess.Ask(context.Background(), "\t\n")
	assert.True(t, errors.Is(err, models.ErrInvalidQuestion))
}

func TestEmbeddingFailureAbortsIngest(t *testing.T) {
	sess := newTestSession(t, sessionConfig{
		embedder:  &hashEmbedder{dim: 256, fail: true},
		extractor: petsFixture(),
	})

	_, err := sess.Ingest(context.Background(), nil, "pets.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrEmbeddingProvider))
	assert.False(t, sess.Status().Ready)
}

func TestSynthesisFailureDoesNotPolluteHistory(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model overloaded")}
	sess := newTestSession(t, sessionConfig{llm: llm, extractor: petsFixture()})

	_, err := sess.Ingest(context.Background(), nil, "pets.pdf")
	require.NoError(t, err)

	_, err = sess.Ask(context.Background(), "Who likes cats?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSynthesis))
	assert.Empty(t, sess.History())

	llm.err = nil
	_, err = sess.Ask(context.Background(), "Who likes cats?")
	require.NoError(t, err)
	assert.Len(t, sess.History(), 1)
}

func TestHistoryWindowFeedsOnlyRecentExchanges(t *testing.T) {
	llm := &fakeLLM{answer: "ok"}
	sess := newTestSession(t, sessionConfig{
		llm:       llm,
		extractor: petsFixture(),
		options:   pipeline.Options{HistoryWindow: 2},
	})

	_, err := sess.Ingest(context.Background(), nil, "pets.pdf")
	require.NoError(t, err)

	questions := []string{"first question", "second question", "third question", "fourth question"}
	for _, q := range questions {
		_, err := sess.Ask(context.Background(), q)
		require.NoError(t, err)
	}

	last := llm.prompts[len(llm.prompts)-1]
	assert.Contains(t, last, "Human: second question")
	assert.Contains(t, last, "Human: third question")
	assert.NotContains(t, last, "Human: first question")

	assert.Len(t, sess.History(), 4, "the full log is kept for display")
}

func TestIngestMultipleDocumentsGrowsIndex(t *testing.T) {
	ext := &fakeExtractor{pages: map[string][]models.Page{
		"france.txt":  {{Number: 1, Text: "Paris is the capital of France."}},
		"germany.txt": {{Number: 1, Text: "Berlin is the capital of Germany."}},
	}}
	sess := newTestSession(t, sessionConfig{extractor: ext})

	_, err := sess.Ingest(context.Background(), nil, "france.txt")
	require.NoError(t, err)
	_, err = sess.Ingest(context.Background(), nil, "germany.txt")
	require.NoError(t, err)

	answer, err := sess.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	sources := make(map[string]bool)
	for _, c := range answer.Citations {
		sources[c.SourceID] = true
	}
	assert.True(t, sources["france.txt"], "chunks from both documents stay retrievable")
	assert.True(t, sources["germany.txt"])

	assert.Equal(t, []string{"france.txt", "germany.txt"}, sess.Status().Documents)
}

func TestDuplicateFilenamesAreDistinctUploads(t *testing.T) {
	sess := newTestSession(t, sessionConfig{extractor: petsFixture()})

	_, err := sess.Ingest(context.Background(), nil, "pets.pdf")
	require.NoError(t, err)
	_, err = sess.Ingest(context.Background(), nil, "pets.pdf")
	require.NoError(t, err)

	assert.Equal(t, []string{"pets.pdf", "pets.pdf"}, sess.Status().Documents)
	assert.Len(t, sess.Documents(), 2)
}

func TestResetIsIdempotent(t *testing.T) {
	sess := newTestSession(t, sessionConfig{extractor: petsFixture()})

	_, err := sess.Ingest(context.Background(), nil, "pets.pdf")
	require.NoError(t, err)
	_, err = sess.Ask(context.Background(), "Who likes cats?")
	require.NoError(t, err)

	sess.Reset()
	sess.Reset()

	status := sess.Status()
	assert.False(t, status.Ready)
	assert.Empty(t, status.Documents)
	assert.Empty(t, sess.History())

	_, err = sess.Ask(context.Background(), "Who likes cats?")
	assert.True(t, errors.Is(err, models.ErrNotReady))
}

func TestManagerIsolatesSessions(t *testing.T) {
	ext := petsFixture()
	manager := pipeline.NewManager(func() *pipeline.Session {
		return newTestSession(t, sessionConfig{extractor: ext})
	})

	first := manager.Get("workspace-a")
	second := manager.Get("workspace-b")
	assert.NotSame(t, first, second)
	assert.Same(t, first, manager.Get("workspace-a"))
	assert.Same(t, manager.Get(""), manager.Get(pipeline.DefaultSessionID))

	_, err := first.Ingest(context.Background(), nil, "pets.pdf")
	require.NoError(t, err)
	assert.True(t, first.Status().Ready)
	assert.False(t, second.Status().Ready)

	id, created, err := manager.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Same(t, created, manager.Get(id))
}
