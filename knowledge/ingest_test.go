package knowledge_test

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onboardhq/hr-assistant/knowledge"
)

// fakeRunner scripts pdftotext output for the ingestion tests.
type fakeRunner struct {
	output []byte
	err    error

	gotName string
	gotArgs []string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.gotName = name
	r.gotArgs = args
	return r.output, r.err
}

// recordingIndexer captures the documents handed to IndexDocuments.
type recordingIndexer struct {
	docs []knowledge.Document
	err  error
}

func (i *recordingIndexer) IndexDocuments(ctx context.Context, docs []knowledge.Document) error {
	i.docs = docs
	return i.err
}

func TestIngestFile(t *testing.T) {
	runner := &fakeRunner{output: []byte("Welcome to the company.\n\nYour benefits start on day one.")}
	indexer := &recordingIndexer{}
	ingestor := knowledge.NewIngestorWithRunner(indexer, runner)

	n, err := ingestor.IngestFile(context.Background(), "/data/employee-handbook.pdf")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Equal(t, "pdftotext", runner.gotName)
	require.Equal(t, []string{"-layout", "/data/employee-handbook.pdf", "-"}, runner.gotArgs)

	require.Len(t, indexer.docs, 1)
	doc := indexer.docs[0]
	require.NotEmpty(t, doc.ID)
	require.Equal(t, "employee-handbook", doc.Title)
	require.Equal(t, "employee-handbook.pdf", doc.Source)
	require.Contains(t, doc.Content, "benefits start on day one")
}

func TestIngestFilePDFToolMissing(t *testing.T) {
	runner := &fakeRunner{err: exec.ErrNotFound}
	ingestor := knowledge.NewIngestorWithRunner(&recordingIndexer{}, runner)

	_, err := ingestor.IngestFile(context.Background(), "/data/handbook.pdf")
	require.ErrorIs(t, err, knowledge.ErrPDFToolNotFound)
}

func TestIngestFileEmptyText(t *testing.T) {
	runner := &fakeRunner{output: []byte("   \n\n  ")}
	ingestor := knowledge.NewIngestorWithRunner(&recordingIndexer{}, runner)

	_, err := ingestor.IngestFile(context.Background(), "/data/scanned.pdf")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no extractable text")
}

func TestIngestFileIndexerFailure(t *testing.T) {
	runner := &fakeRunner{output: []byte("Some policy text.")}
	indexer := &recordingIndexer{err: knowledge.ErrUnavailable}
	ingestor := knowledge.NewIngestorWithRunner(indexer, runner)

	_, err := ingestor.IngestFile(context.Background(), "/data/policy.pdf")
	require.ErrorIs(t, err, knowledge.ErrUnavailable)
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := knowledge.ChunkText("short paragraph", 2000)
	require.Equal(t, []string{"short paragraph"}, chunks)
}

func TestChunkTextPrefersParagraphBoundaries(t *testing.T) {
	p1 := strings.Repeat("a", 60)
	p2 := strings.Repeat("b", 60)
	p3 := strings.Repeat("c", 60)

	chunks := knowledge.ChunkText(p1+"\n\n"+p2+"\n\n"+p3, 100)
	require.Len(t, chunks, 3)
	require.Equal(t, p1, chunks[0])
	require.Equal(t, p2, chunks[1])
	require.Equal(t, p3, chunks[2])
}

func TestChunkTextGroupsSmallParagraphs(t *testing.T) {
	chunks := knowledge.ChunkText("one\n\ntwo\n\nthree", 100)
	require.Equal(t, []string{"one\n\ntwo\n\nthree"}, chunks)
}

func TestChunkTextHardSplitsOversizedParagraphs(t *testing.T) {
	long := strings.Repeat("x", 250)

	chunks := knowledge.ChunkText(long, 100)
	require.Len(t, chunks, 3)
	require.Equal(t, 100, len(chunks[0]))
	require.Equal(t, 100, len(chunks[1]))
	require.Equal(t, 50, len(chunks[2]))
}

func TestChunkTextSkipsBlankParagraphs(t *testing.T) {
	chunks := knowledge.ChunkText("first\n\n   \n\nsecond", 100)
	require.Equal(t, []string{"first\n\nsecond"}, chunks)
}
