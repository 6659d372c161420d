package synthesizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"docmind/internal/llmservice"
	"docmind/internal/models"
)

// Synthesizer assembles a grounded prompt from retrieved context and recent
// history, invokes the language model, and packages the answer with
// de-duplicated source citations.
type Synthesizer struct {
	llm llmservice.Client
}

func New(llm llmservice.Client) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Synthesize answers the question from the retrieved chunks. Matches must
// arrive in retrieval order (descending similarity); citation order follows
// it. LLM failure wraps models.ErrSynthesis and yields no citations.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, matches []models.Match, recent []models.Exchange) (string, []models.Citation, error) {
	var contextText strings.Builder
	for i, m := range matches {
		if i > 0 {
			contextText.WriteString("\n\n")
		}
		contextText.WriteString(m.Chunk.Text)
	}

	var historyText strings.Builder
	for _, ex := range recent {
		historyText.WriteString(fmt.Sprintf("Human: %s\nAssistant: %s\n", ex.Question, ex.Answer))
	}

	prompt := fmt.Sprintf(models.UserPromptTemplate, contextText.String(), historyText.String(), question)
	log.Debug().Int("chunks", len(matches)).Int("history", len(recent)).Msg("Synthesizing answer")

	answer, err := s.llm.Generate(ctx, models.SystemPrompt, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", models.ErrSynthesis, err)
	}

	return answer, Citations(matches), nil
}

// Citations builds one citation per distinct chunk preview. Two chunks whose
// first CitationPreviewLen characters coincide collapse into a single entry.
func Citations(matches []models.Match) []models.Citation {
	var citations []models.Citation
	seen := make(map[string]struct{})
	for _, m := range matches {
		preview := truncate(m.Chunk.Text, models.CitationPreviewLen) + "..."
		if _, ok := seen[preview]; ok {
			continue
		}
		seen[preview] = struct{}{}

		page := models.UnknownPage
		if m.Chunk.PageNumber > 0 {
			page = strconv.Itoa(m.Chunk.PageNumber)
		}
		citations = append(citations, models.Citation{
			Preview:    preview,
			SourceID:   m.Chunk.SourceID,
			PageNumber: page,
		})
	}
	return citations
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
