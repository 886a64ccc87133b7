// Package knowledge is the HR document corpus: retrieval for the assistant
// and ingestion for uploaded documents.
package knowledge

import (
	"context"
	"errors"
)

// ErrUnavailable means the knowledge base cannot answer right now (index
// unreachable, not configured, or empty).
var ErrUnavailable = errors.New("knowledge base unavailable")

// Retriever answers a query from the document corpus.
type Retriever interface {
	Query(ctx context.Context, query string) (string, error)
}

// Document is one indexed chunk of an HR document.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Indexer adds documents to the corpus.
type Indexer interface {
	IndexDocuments(ctx context.Context, docs []Document) error
}
