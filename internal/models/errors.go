package models

import "errors"

// Error kinds surfaced by the pipeline. Each mutating operation commits fully
// or not at all, so none of these leave session state corrupted. Callers
// classify with errors.Is.
var (
	// ErrExtraction: malformed or unsupported document bytes.
	ErrExtraction = errors.New("document extraction failed")

	// ErrEmptyDocument: every page extracted to blank text, the document is
	// likely scanned/image-only and unusable for this pipeline.
	ErrEmptyDocument = errors.New("no extractable text in document")

	// ErrChunking: splitter precondition violation. Indicates a bug, not a
	// caller-recoverable condition.
	ErrChunking = errors.New("chunking precondition violation")

	// ErrEmbeddingProvider: the embedding capability is unavailable or
	// erroring. The whole ingest/ask may be retried by the caller.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrSynthesis: the language-model capability is unavailable or erroring.
	ErrSynthesis = errors.New("answer synthesis failed")

	// ErrEmptyIndex: similarity search on an index with no entries. Normally
	// prevented by the ErrNotReady state check.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrNotReady: ask before any successful ingest.
	ErrNotReady = errors.New("no documents loaded, upload a document first")

	// ErrInvalidQuestion: blank or whitespace-only question.
	ErrInvalidQuestion = errors.New("question cannot be empty")
)
