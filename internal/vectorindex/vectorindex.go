package vectorindex

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"docmind/internal/helper"
	"docmind/internal/models"
)

const collectionName = "session_chunks"

// metadata keys carried on every stored document
const (
	metaSource     = "source"
	metaPage       = "page"
	metaTotalPages = "total_pages"
)

// Index stores chunk embeddings in an in-memory chromem-go collection and
// answers k-nearest-neighbor queries by cosine similarity. Growth is
// append-only: Merge never rebuilds or discards prior entries. The embedding
// dimensionality is fixed by the first merged batch.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	dim        int
}

func New() (*Index, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %v", err)
	}
	return &Index{db: db, collection: collection}, nil
}

// Merge appends one embedded batch to the index. The first call establishes
// the index dimensionality; later batches must match it.
func (x *Index) Merge(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	if x.dim == 0 {
		x.dim = len(embeddings[0])
	}
	for i, e := range embeddings {
		if len(e) != x.dim {
			return fmt.Errorf("embedding dimension mismatch at %d: expected %d, got %d", i, x.dim, len(e))
		}
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		docs[i] = chromem.Document{
			ID:      id,
			Content: chunk.Text,
			Metadata: map[string]string{
				metaSource:     chunk.SourceID,
				metaPage:       strconv.Itoa(chunk.PageNumber),
				metaTotalPages: strconv.Itoa(chunk.TotalPages),
			},
			Embedding: embeddings[i],
		}
	}

	if err := x.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search returns up to k entries ordered by descending cosine similarity.
// Asking for more entries than stored returns everything.
func (x *Index) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.Match, error) {
	count := x.collection.Count()
	if count == 0 {
		return nil, models.ErrEmptyIndex
	}
	if len(queryEmbedding) != x.dim {
		return nil, fmt.Errorf("query embedding dimension mismatch: expected %d, got %d", x.dim, len(queryEmbedding))
	}
	if k > count {
		k = count
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	results, err := x.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	matches := make([]models.Match, len(results))
	for i, res := range results {
		page, _ := strconv.Atoi(res.Metadata[metaPage])
		totalPages, _ := strconv.Atoi(res.Metadata[metaTotalPages])
		matches[i] = models.Match{
			Chunk: models.Chunk{
				Text:       res.Content,
				SourceID:   res.Metadata[metaSource],
				PageNumber: page,
				TotalPages: totalPages,
			},
			Similarity: res.Similarity,
		}
	}
	return matches, nil
}

func (x *Index) IsEmpty() bool {
	return x.collection.Count() == 0
}

func (x *Index) Len() int {
	return x.collection.Count()
}
