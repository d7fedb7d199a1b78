// Package models defines core data structures for indexed documents,
// search results, and storage reconciliation.
package models

import "time"

// VectorDocument is one point in the vector index: either a whole document
// or a single chunk of a larger one.
type VectorDocument struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	UserID string `json:"user_id"`
	// Title is the human-readable label. Chunked documents carry a part
	// indicator, e.g. "report.pdf (Part 2/5)".
	Title string `json:"title"`
	// Source is the origin key. Chunks use "{file_key}#chunk_{n}".
	Source string `json:"source"`
	// FileName is the original file name without chunk decoration, so
	// chunk-aware consumers can regroup chunks under one logical file.
	FileName  string           `json:"file_name"`
	Page      int              `json:"page,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  DocumentMetadata `json:"metadata"`
	Extra     DocumentExtra    `json:"extra"`
}

// DocumentMetadata holds classification and chunk bookkeeping fields.
type DocumentMetadata struct {
	Category    string `json:"category,omitempty"`
	Language    string `json:"language,omitempty"`
	ChunkIndex  int    `json:"chunk_index,omitempty"`
	TotalChunks int    `json:"total_chunks,omitempty"`
	IsChunk     bool   `json:"is_chunk,omitempty"`
	ParentFile  string `json:"parent_file,omitempty"`
}

// DocumentExtra holds optional presentation fields.
type DocumentExtra struct {
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// SearchResult is a read-only projection of a VectorDocument plus a rank
// score. Score scale is method-dependent before fusion; higher is more
// relevant.
type SearchResult struct {
	ID       string           `json:"id"`
	Score    float64          `json:"score"`
	Text     string           `json:"text"`
	Title    string           `json:"title"`
	Source   string           `json:"source"`
	FileName string           `json:"file_name"`
	UserID   string           `json:"user_id"`
	Metadata DocumentMetadata `json:"metadata"`
}
