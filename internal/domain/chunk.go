package domain

// Chunk is a contiguous span of text extracted from one source document.
// Chunks are immutable once created: they are produced during ingestion and
// replaced wholesale on re-ingestion, never mutated.
type Chunk struct {
	// Text is the chunk content.
	Text string
	// SourcePath identifies the originating document on disk.
	SourcePath string
	// DocumentName is the display label (file name without extension).
	DocumentName string
	// Position is the ordinal index of this chunk within its document.
	Position int
}

// RetrievedChunk is a Chunk annotated with the similarity score and the rank
// it received in one query's result set. It lives only for that request.
type RetrievedChunk struct {
	Chunk Chunk
	// Score is the similarity score assigned by the index.
	Score float32
	// Rank is the 1-based position in the result set, best match first.
	Rank int
}

// Source is a de-duplicated, citation-numbered summary of one document that
// contributed retrieved chunks to an answer.
type Source struct {
	// Index is the citation number matching in-text markers like [2].
	Index int `json:"index"`
	// DocumentName is the display label of the document.
	DocumentName string `json:"document_name"`
	// SourcePath identifies the document on disk.
	SourcePath string `json:"source_path"`
	// ChunkCount is how many retrieved chunks came from this document.
	ChunkCount int `json:"chunk_count"`
}

// Answer is a successful pipeline outcome: generated text plus the ordered
// list of sources that fed it.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}
