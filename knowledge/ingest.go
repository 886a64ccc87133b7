package knowledge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultRunner executes commands using os/exec.
type DefaultRunner struct{}

func (r *DefaultRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// chunkSize is the target chunk length in characters. Chunks break on
// paragraph boundaries where possible.
const chunkSize = 2000

// Ingestor extracts text from uploaded PDFs and indexes the chunks.
type Ingestor struct {
	runner  CommandRunner
	indexer Indexer
}

func NewIngestor(indexer Indexer) *Ingestor {
	return &Ingestor{runner: &DefaultRunner{}, indexer: indexer}
}

// NewIngestorWithRunner creates an Ingestor with a custom command runner.
func NewIngestorWithRunner(indexer Indexer, runner CommandRunner) *Ingestor {
	return &Ingestor{runner: runner, indexer: indexer}
}

// IngestFile extracts the text of one PDF, chunks it, and indexes the chunks.
// Returns the number of documents indexed.
func (g *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	out, err := g.runner.Run(ctx, "pdftotext", "-layout", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, ErrPDFToolNotFound
		}
		return 0, fmt.Errorf("extract text from %s: %w", filepath.Base(path), err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return 0, fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	docs := make([]Document, 0)
	for _, chunk := range ChunkText(text, chunkSize) {
		docs = append(docs, Document{
			ID:      uuid.NewString(),
			Title:   title,
			Content: chunk,
			Source:  filepath.Base(path),
		})
	}

	if err := g.indexer.IndexDocuments(ctx, docs); err != nil {
		return 0, err
	}
	log.Info().Str("file", filepath.Base(path)).Int("chunks", len(docs)).Msg("ingested document")
	return len(docs), nil
}

// ChunkText splits text into chunks of roughly size characters, preferring
// paragraph boundaries and falling back to hard splits for oversized
// paragraphs.
func ChunkText(text string, size int) []string {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(p) > size {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		for len(p) > size {
			chunks = append(chunks, p[:size])
			p = p[size:]
		}
		if p == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
