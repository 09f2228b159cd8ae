package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/hazina/internal/chunker"
	"github.com/fyrsmithlabs/hazina/internal/dedup"
	"github.com/fyrsmithlabs/hazina/internal/docmeta"
	"github.com/fyrsmithlabs/hazina/internal/embeddings"
	"github.com/fyrsmithlabs/hazina/internal/index"
	"github.com/fyrsmithlabs/hazina/internal/tagger"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	dataDir := t.TempDir()
	logger := zaptest.NewLogger(t)

	dd, err := dedup.New(dedup.Config{Dir: filepath.Join(dataDir, "dedup")}, logger)
	require.NoError(t, err)

	ch, err := chunker.New(chunker.Config{
		ChunkSize:    300,
		ChunkOverlap: 50,
		MinChunkSize: 20,
	}, logger)
	require.NoError(t, err)

	engine := index.New("test_kb", index.Config{Dir: filepath.Join(dataDir, "index")}, logger)

	orch, err := New(
		Config{DataDir: dataDir, MinTextLength: 50, EmbedBatchSize: 4},
		Deps{
			Dedup:    dd,
			Chunker:  ch,
			Tagger:   tagger.New(logger),
			Embedder: embeddings.NewHashEmbedder(64),
			Engine:   engine,
		},
		logger,
	)
	require.NoError(t, err)
	return orch, dataDir
}

func writeDoc(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func sampleText(topic string) string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "Paragraph %d about %s in the Kenyan financial sector. "+
			"Savings account interest rates and loan repayment schedules are reviewed quarterly.\n\n", i, topic)
	}
	return b.String()
}

func TestRunEndToEnd(t *testing.T) {
	orch, dataDir := newTestOrchestrator(t)
	rawDir := t.TempDir()

	docs := []ScrapedDocument{
		{
			DocID: "cbk_001", SourceID: "cbk", SourceName: "Central Bank",
			Title: "Monetary policy statement", DocType: docmeta.DocTypeText,
			InstitutionType: docmeta.InstitutionRegulatory,
			RawFile:         writeDoc(t, rawDir, "cbk_001.txt", sampleText("monetary policy")),
		},
		{
			DocID: "kba_001", SourceID: "kba", SourceName: "Bankers Association",
			Title: "Lending survey", DocType: docmeta.DocTypeText,
			InstitutionType: docmeta.InstitutionBank,
			RawFile:         writeDoc(t, rawDir, "kba_001.txt", sampleText("bank lending")),
		},
		{
			// Identical content to cbk_001 from another source: exact duplicate.
			DocID: "mirror_001", SourceID: "media", SourceName: "Mirror",
			Title: "Reposted statement", DocType: docmeta.DocTypeText,
			RawFile: writeDoc(t, rawDir, "mirror_001.txt", sampleText("monetary policy")),
		},
		{
			DocID: "short_001", SourceID: "cbk", Title: "Stub",
			DocType: docmeta.DocTypeText,
			RawFile: writeDoc(t, rawDir, "short_001.txt", "too short"),
		},
		{
			DocID: "lost_001", SourceID: "cbk", Title: "Missing artifact",
			DocType: docmeta.DocTypeText,
			RawFile: filepath.Join(rawDir, "does_not_exist.txt"),
		},
	}

	summary, err := orch.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Input)
	assert.Equal(t, 2, summary.Parsed)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 2, summary.Errors)
	assert.Greater(t, summary.Chunks, 0)
	assert.Equal(t, summary.Chunks, summary.Indexed)
	assert.NotEmpty(t, summary.RunID)

	// Cleaned text persisted under the source directory.
	assert.FileExists(t, filepath.Join(dataDir, "processed", "cbk", "cbk_001.txt"))

	// The index answers queries over the ingested chunks.
	q, err := embeddings.NewHashEmbedder(64).EmbedQuery(context.Background(), "bank lending survey")
	require.NoError(t, err)
	results, err := orch.engine.Search(context.Background(), q, 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Manifest recorded the canonical documents and the run.
	assert.Equal(t, 2, orch.Manifest().DocumentCount())
	last, ok := orch.Manifest().LastRun()
	require.True(t, ok)
	assert.Equal(t, summary.RunID, last.RunID)
	assert.ElementsMatch(t, []string{"cbk", "kba"}, orch.Manifest().Sources())
}

func TestRunIdempotent(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	rawDir := t.TempDir()

	docs := []ScrapedDocument{{
		DocID: "cbk_001", SourceID: "cbk", Title: "Annual report",
		DocType: docmeta.DocTypeText,
		RawFile: writeDoc(t, rawDir, "a.txt", sampleText("annual supervision")),
	}}

	first, err := orch.Run(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, 1, first.Parsed)
	countAfterFirst := orch.engine.Count()

	// Same input again: the manifest gate recognizes the already-processed
	// document and nothing is re-indexed.
	second, err := orch.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Parsed)
	assert.Equal(t, 1, second.Duplicates)
	assert.Equal(t, 0, second.Indexed)
	assert.Equal(t, countAfterFirst, orch.engine.Count())
	assert.Equal(t, 1, orch.Manifest().DocumentCount())
}

func TestRunEmptyBatch(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	_, err := orch.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestRunDocumentMetadataEnrichment(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	rawDir := t.TempDir()

	text := sampleText("prudential guidelines and capital adequacy")
	docs := []ScrapedDocument{{
		DocID: "cbk_guide", SourceID: "cbk", SourceName: "Central Bank",
		Title: "Prudential Guidelines for banking institutions",
		DocType: docmeta.DocTypeText, InstitutionType: docmeta.InstitutionRegulatory,
		FinancialDomains: []string{"banking", "regulation"},
		RawFile:          writeDoc(t, rawDir, "g.txt", text),
	}}

	_, err := orch.Run(context.Background(), docs)
	require.NoError(t, err)

	meta, ok := orch.Manifest().Document("cbk_guide")
	require.True(t, ok)
	assert.Equal(t, docmeta.ClassGuideline, meta.RegulatoryClass)
	assert.NotEmpty(t, meta.ContentHash)
	assert.Greater(t, meta.WordCount, 0)
	assert.Greater(t, meta.ChunkCount, 0)
	assert.NotEmpty(t, meta.Tags.Persona)
	assert.NotEmpty(t, meta.TextFile)
}

func TestWhitespaceCleaner(t *testing.T) {
	c := WhitespaceCleaner{}
	in := "Title\r\n\r\n\r\n\r\n\r\nBody line.   \nNext line.\t\n"
	got := c.Clean(in)
	assert.Equal(t, "Title\n\n\nBody line.\nNext line.", got)
}
