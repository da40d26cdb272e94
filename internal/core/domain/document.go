package domain

import "time"

// Document represents an extracted source document with metadata.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source identifies the originating document (usually its file name).
	Source string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Pages is the page count for paginated formats, zero otherwise.
	Pages int

	// ImageType is the MIME type of the image the text was read from, if any.
	ImageType string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// Chunk is a contiguous span of text extracted from one source document.
// Chunks are immutable once produced by the chunker. The JSON field names
// are part of the persisted snapshot format.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id,omitempty"`

	// DocumentID links to the parent Document.
	DocumentID string `json:"documentId,omitempty"`

	// Text is the trimmed, non-empty content of this chunk.
	Text string `json:"text"`

	// Index is the 0-based sequence position within its source.
	Index int `json:"index"`

	// StartPos is the byte offset of the chunk start in the cleaned source text.
	StartPos int `json:"startPos"`

	// EndPos is the byte offset one past the chunk end in the cleaned source text.
	EndPos int `json:"endPos"`

	// Source identifies the originating document.
	Source string `json:"source"`

	// Title is the title of the originating document.
	Title string `json:"title,omitempty"`

	// Pages is the page count of the originating document, if known.
	Pages int `json:"pages,omitempty"`

	// ImageType is set when the text came from an image.
	ImageType string `json:"imageType,omitempty"`
}

// Valid reports whether the chunk satisfies its structural invariants.
func (c Chunk) Valid() bool {
	return c.Text != "" && c.Index >= 0 && c.StartPos < c.EndPos
}

// CatalogEntry records a document that has been ingested into the knowledge base.
// The catalogue lets repeated ingestion of an unchanged file be skipped.
type CatalogEntry struct {
	// Source identifies the document.
	Source string

	// URI is where the document was read from.
	URI string

	// Title is the document title.
	Title string

	// ContentHash is the hex SHA-256 of the raw document bytes.
	ContentHash string

	// ChunkCount is the number of chunks produced from the document.
	ChunkCount int

	// Pages is the page count, if known.
	Pages int

	// IngestedAt is when the document was added.
	IngestedAt time.Time
}
