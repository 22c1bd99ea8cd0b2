// Package model provides data models for the doclens knowledge base.
package model

import "time"

// IngestRequest represents the document ingestion request body.
type IngestRequest struct {
	Filename string `json:"filename" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// IngestResult describes the outcome of indexing one document.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	Replaced   bool   `json:"replaced"`
}

// QueryRequest represents the query request body.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k,omitempty"`
	Document string `json:"document,omitempty"` // Optional filter by document ID
}

// QueryResult represents a knowledge base query result.
type QueryResult struct {
	Answer   string        `json:"answer"`
	Sources  []ChunkSource `json:"sources"`
	Fallback bool          `json:"fallback,omitempty"` // Answer is a raw excerpt, not generated
	Cached   bool          `json:"cached,omitempty"`
}

// ChunkSource represents source information for a retrieved chunk.
type ChunkSource struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// DocumentInfo summarizes an indexed document.
type DocumentInfo struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
}

// DeleteResult reports how many entries a document deletion removed.
type DeleteResult struct {
	DocumentID string `json:"document_id"`
	Deleted    int    `json:"deleted"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status     string            `json:"status"` // healthy, degraded
	EntryCount int64             `json:"entry_count"`
	Dimension  int               `json:"dimension"`
	Components map[string]string `json:"components,omitempty"`
	CheckedAt  time.Time         `json:"checked_at"`
}
