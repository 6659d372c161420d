package models

// Page is one unit of extracted document text. Number is 1-based; 0 means the
// extractor could not attribute a page (formats without page structure).
type Page struct {
	Number int
	Text   string
}

// Chunk represents a bounded span of document text with provenance metadata.
// It is the unit of indexing and retrieval.
type Chunk struct {
	Text       string
	SourceID   string
	PageNumber int // 1-based, 0 = unknown
	TotalPages int
}

// Match is a retrieved chunk with its cosine similarity score.
type Match struct {
	Chunk      Chunk
	Similarity float32
}

// DocumentRecord describes one successfully ingested upload. Duplicate
// filenames are allowed and treated as distinct uploads.
type DocumentRecord struct {
	Filename   string `json:"filename"`
	PageCount  int    `json:"pages"`
	ChunkCount int    `json:"chunks"`
}

// Exchange is one question/answer turn of the conversation log.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Citation points a reader at the retrieved chunk an answer was grounded on.
// Field names on the wire match the upload/query API.
type Citation struct {
	Preview    string `json:"content"`
	SourceID   string `json:"source"`
	PageNumber string `json:"page"`
}
