package chunker

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"docmind/internal/models"
)

const (
	DefaultChunkSize    = 1000 // characters
	DefaultChunkOverlap = 200  // characters
)

// separators are tried in order: paragraph, line, sentence, word. A hard cut
// only happens when none is found inside the window.
var separators = []string{"\n\n", "\n", ".", " "}

// Splitter turns extracted pages into overlapping chunks with page
// provenance. Splitting itself is delegated to langchaingo's recursive
// character splitter; this type adds page attribution on top.
type Splitter struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d invalid for size %d", models.ErrChunking, overlap, size)
	}
	return &Splitter{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
		),
	}, nil
}

// Split concatenates the page texts and chunks the result. Every chunk is
// attributed to the page its first character falls in; a chunk starting
// exactly on a page boundary belongs to the later page.
func (s *Splitter) Split(pages []models.Page, sourceID string, totalPages int) ([]models.Chunk, error) {
	var (
		text       strings.Builder
		pageStarts []pageStart
	)
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		pageStarts = append(pageStarts, pageStart{offset: text.Len(), page: p.Number})
		text.WriteString(p.Text)
	}
	full := text.String()
	if strings.TrimSpace(full) == "" {
		return nil, nil
	}

	segments, err := s.splitter.SplitText(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrChunking, err)
	}

	var chunks []models.Chunk
	searchFrom := 0
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		page := 0
		if idx := strings.Index(full[searchFrom:], segment); idx >= 0 {
			offset := searchFrom + idx
			page = pageAt(pageStarts, offset)
			searchFrom = offset + 1
		}
		chunks = append(chunks, models.Chunk{
			Text:       segment,
			SourceID:   sourceID,
			PageNumber: page,
			TotalPages: totalPages,
		})
	}

	// Non-blank input must always yield at least one chunk.
	if len(chunks) == 0 {
		chunks = append(chunks, models.Chunk{
			Text:       strings.TrimSpace(full),
			SourceID:   sourceID,
			PageNumber: pageAt(pageStarts, 0),
			TotalPages: totalPages,
		})
	}
	return chunks, nil
}

type pageStart struct {
	offset int
	page   int
}

func pageAt(starts []pageStart, offset int) int {
	page := 0
	for _, s := range starts {
		if s.offset > offset {
			break
		}
		page = s.page
	}
	return page
}
