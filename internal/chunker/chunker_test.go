package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

func newTestChunker(t *testing.T, cfg Config) *Chunker {
	t.Helper()
	c, err := New(cfg, nil)
	require.NoError(t, err)
	return c
}

func regulatoryMeta() *docmeta.DocumentMeta {
	return &docmeta.DocumentMeta{
		DocID:            "cbk_0001",
		SourceID:         "cbk",
		SourceName:       "Central Bank of Kenya",
		Title:            "Monetary Policy Report",
		URL:              "https://cbk.example/mpr.pdf",
		DocType:          docmeta.DocTypePDF,
		InstitutionType:  docmeta.InstitutionRegulatory,
		FinancialDomains: []string{"monetary_policy", "banking"},
		RegulatoryClass:  docmeta.ClassPolicy,
	}
}

func sentencePara(topic string, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Sentence %d discusses %s developments over the reporting period in detail. ", i, topic)
	}
	return strings.TrimSpace(sb.String())
}

func TestChunkDocumentSections(t *testing.T) {
	c := newTestChunker(t, Config{ChunkSize: 300, ChunkOverlap: 50, MinChunkSize: 40})

	text := "Preamble before any heading. " + sentencePara("opening", 3) + "\n" +
		"1. Inflation Outlook\n" + sentencePara("inflation", 6) + "\n" +
		"2. Exchange Rate\n" + sentencePara("currency", 6) + "\n"

	chunks, err := c.ChunkDocument(text, regulatoryMeta())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var sawPreamble, sawInflation, sawExchange bool
	for _, ch := range chunks {
		switch {
		case ch.Meta.SectionTitle == "":
			sawPreamble = true
			assert.NotContains(t, ch.Text, "[Section:")
		case strings.Contains(ch.Meta.SectionTitle, "Inflation"):
			sawInflation = true
			assert.True(t, strings.HasPrefix(ch.Text, "[Section: 1. Inflation Outlook]"),
				"section chunks carry a context header, got %q", ch.Text[:40])
		case strings.Contains(ch.Meta.SectionTitle, "Exchange"):
			sawExchange = true
		}
	}
	assert.True(t, sawPreamble, "headerless preamble becomes its own section")
	assert.True(t, sawInflation)
	assert.True(t, sawExchange)
}

func TestChunkOrdinalsDenseAndTotalsBackfilled(t *testing.T) {
	c := newTestChunker(t, Config{ChunkSize: 200, ChunkOverlap: 40, MinChunkSize: 40})

	chunks, err := c.ChunkDocument(sentencePara("ordinal", 30), regulatoryMeta())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Meta.Ordinal, "ordinals are dense and zero-based")
		assert.Equal(t, docmeta.ChunkID("cbk_0001", i), ch.Meta.ChunkID)
		assert.Equal(t, len(chunks), ch.Meta.TotalChunks)
	}
}

func TestTablesKeptWhole(t *testing.T) {
	c := newTestChunker(t, Config{ChunkSize: 300, ChunkOverlap: 50, MinChunkSize: 40})

	var table strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&table, "| Bank %d | %d.%d%% | KES %d billion |\n", i, 9+i, i, 100+i)
	}

	text := sentencePara("lending", 6) + "\n" + table.String() + "\n" + sentencePara("summary", 6)

	chunks, err := c.ChunkDocument(text, regulatoryMeta())
	require.NoError(t, err)

	var tableChunks []Chunk
	for _, ch := range chunks {
		if ch.Meta.ChunkType == docmeta.ChunkTable {
			tableChunks = append(tableChunks, ch)
		}
	}
	require.Len(t, tableChunks, 1, "a table that fits twice the chunk size stays one chunk")
	for i := 0; i < 8; i++ {
		assert.Contains(t, tableChunks[0].Text, fmt.Sprintf("| Bank %d |", i),
			"no table row may be split away from its table")
	}
}

func TestOversizedTableSplitsAsLastResort(t *testing.T) {
	c := newTestChunker(t, Config{ChunkSize: 150, ChunkOverlap: 30, MinChunkSize: 40})

	var table strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&table, "| Instrument %02d | %d.%02d%% | KES %d million |\n", i, 8+i%5, i, 50+i)
	}

	chunks, err := c.ChunkDocument(table.String(), regulatoryMeta())
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1, "tables beyond twice the chunk size must split")
}

func TestChunkCoverage(t *testing.T) {
	c := newTestChunker(t, Config{ChunkSize: 250, ChunkOverlap: 50, MinChunkSize: 10})

	const sentences = 20
	text := sentencePara("coverage", sentences)

	chunks, err := c.ChunkDocument(text, regulatoryMeta())
	require.NoError(t, err)

	joined := ""
	for _, ch := range chunks {
		joined += ch.Text + "\n"
	}
	for i := 0; i < sentences; i++ {
		needle := fmt.Sprintf("Sentence %d discusses coverage", i)
		assert.Contains(t, joined, needle, "chunk union must cover the cleaned text")
	}
}

func TestArticleMode(t *testing.T) {
	c := newTestChunker(t, Config{})

	meta := regulatoryMeta()
	meta.InstitutionType = docmeta.InstitutionMedia
	meta.RegulatoryClass = docmeta.ClassNews
	meta.Title = "Markets close higher on rate decision"

	text := sentencePara("markets", 40)
	chunks, err := c.ChunkDocument(text, meta)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.LessOrEqual(t, len(chunks), 3, "articles land in 1-2 large chunks")

	for _, ch := range chunks {
		assert.Equal(t, docmeta.ChunkArticle, ch.Meta.ChunkType)
		assert.Equal(t, meta.Title, ch.Meta.SectionTitle, "article header is the title")
		assert.NotContains(t, ch.Text, "[Section:")
	}
}

func TestShortDocumentYieldsNoChunks(t *testing.T) {
	c := newTestChunker(t, Config{})

	chunks, err := c.ChunkDocument("too short", regulatoryMeta())
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.ChunkDocument("", regulatoryMeta())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestMinChunkSizeDiscard(t *testing.T) {
	c := newTestChunker(t, Config{ChunkSize: 300, ChunkOverlap: 50, MinChunkSize: 100})

	// One real section plus a heading followed by a tiny fragment.
	text := "1. Real Section\n" + sentencePara("substance", 6) + "\n2. Stub\nok.\n"

	chunks, err := c.ChunkDocument(text, regulatoryMeta())
	require.NoError(t, err)
	for _, ch := range chunks {
		assert.GreaterOrEqual(t, len(ch.Text), 100)
	}
}

func TestMetadataInherited(t *testing.T) {
	c := newTestChunker(t, Config{})

	meta := regulatoryMeta()
	meta.Tags = docmeta.Tags{
		Persona:        []string{"sme"},
		LifeStage:      docmeta.LifeStageIntermediate,
		RiskLevel:      docmeta.RiskLow,
		ProductTypes:   []string{"loans", "savings"},
		RelevanceScore: 0.8,
	}

	chunks, err := c.ChunkDocument(sentencePara("metadata", 20), meta)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	ch := chunks[0]
	assert.Equal(t, "cbk", ch.Meta.SourceID)
	assert.Equal(t, "monetary_policy", ch.Meta.FinancialDomain, "primary domain is the first listed")
	assert.Equal(t, []string{"sme"}, ch.Meta.Persona)
	assert.Equal(t, []string{"loans", "savings"}, ch.Meta.ProductTypes)
	assert.Equal(t, docmeta.RiskLow, ch.Meta.RiskLevel)
	assert.NotEmpty(t, ch.Meta.DateIndexed)
}

func TestNewRejectsOverlapAboveSize(t *testing.T) {
	_, err := New(Config{ChunkSize: 100, ChunkOverlap: 100, MinChunkSize: 10}, nil)
	assert.Error(t, err)
}

func TestSplitIntoSectionsNoHeadings(t *testing.T) {
	secs := splitIntoSections("plain prose with no structure at all")
	require.Len(t, secs, 1)
	assert.Empty(t, secs[0].title)
}

func TestIsTableLine(t *testing.T) {
	assert.True(t, isTableLine("| a | b |"))
	assert.True(t, isTableLine("Bank | Rate"))
	assert.True(t, isTableLine("KCB    9.5%    120B"))
	assert.False(t, isTableLine("ordinary prose line"))
}
