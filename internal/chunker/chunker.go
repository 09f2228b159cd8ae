// Package chunker splits cleaned documents into retrieval-sized,
// context-enriched chunks.
//
// Two concerns drive the splitting: section boundaries (regulatory documents
// have numbered headings, clauses, and all-caps headers worth respecting)
// and tables (a table row split across two chunks is useless to retrieval).
// The inner splitting engine is langchaingo's recursive character splitter,
// configured with a separator hierarchy from paragraph breaks down to
// single characters.
package chunker

import (
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

// defaultSeparators is the split priority for long-form documents:
// section break, paragraph, line, sentence, clause, comma, word, character.
var defaultSeparators = []string{"\n\n\n", "\n\n", "\n", ". ", "; ", ", ", " ", ""}

// articleSeparators is the reduced hierarchy for short-form articles.
var articleSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Config holds chunking parameters.
type Config struct {
	// ChunkSize is the target chunk length in characters. At ~4 chars per
	// token, 1200 chars leaves headroom in a 512-token embedding window.
	ChunkSize int

	// ChunkOverlap is the character overlap between consecutive chunks.
	ChunkOverlap int

	// MinChunkSize drops fragments shorter than this.
	MinChunkSize int

	// ArticleChunkSize / ArticleChunkOverlap apply in article mode.
	ArticleChunkSize    int
	ArticleChunkOverlap int
}

// ApplyDefaults sets defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1200
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 200
	}
	if c.MinChunkSize == 0 {
		c.MinChunkSize = 100
	}
	if c.ArticleChunkSize == 0 {
		c.ArticleChunkSize = 2400
	}
	if c.ArticleChunkOverlap == 0 {
		c.ArticleChunkOverlap = 300
	}
}

// Chunk is one retrieval unit: enriched text plus its metadata.
type Chunk struct {
	Text string
	Meta docmeta.ChunkMeta
}

// Chunker splits documents into chunks.
type Chunker struct {
	cfg             Config
	splitter        textsplitter.RecursiveCharacter
	articleSplitter textsplitter.RecursiveCharacter
	logger          *zap.Logger
}

// New creates a Chunker.
func New(cfg Config, logger *zap.Logger) (*Chunker, error) {
	cfg.ApplyDefaults()
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunker: overlap (%d) must be smaller than chunk size (%d)",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Chunker{
		cfg: cfg,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithSeparators(defaultSeparators),
		),
		articleSplitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ArticleChunkSize),
			textsplitter.WithChunkOverlap(cfg.ArticleChunkOverlap),
			textsplitter.WithSeparators(articleSeparators),
		),
		logger: logger,
	}, nil
}

// ChunkDocument splits one cleaned document into chunks with dense ordinals
// and backfilled sibling counts. A document shorter than the minimum chunk
// size yields an empty slice, not an error.
func (c *Chunker) ChunkDocument(text string, meta *docmeta.DocumentMeta) ([]Chunk, error) {
	if len(strings.TrimSpace(text)) < c.cfg.MinChunkSize {
		return nil, nil
	}

	if isArticle(meta) {
		return c.chunkArticle(text, meta)
	}

	var chunks []Chunk
	for _, sec := range splitIntoSections(text) {
		for _, r := range splitAroundTables(sec.text) {
			var parts []string
			if r.kind == docmeta.ChunkTable && len(r.text) < c.cfg.ChunkSize*2 {
				// Tables that fit stay whole; oversized ones split like
				// text as a last resort.
				parts = []string{r.text}
			} else {
				split, err := c.splitter.SplitText(r.text)
				if err != nil {
					return nil, fmt.Errorf("splitting section %q: %w", sec.title, err)
				}
				parts = split
			}

			for _, part := range parts {
				if len(strings.TrimSpace(part)) < c.cfg.MinChunkSize {
					continue
				}
				enriched := part
				if sec.title != "" {
					enriched = fmt.Sprintf("[Section: %s]\n\n%s", sec.title, part)
				}
				chunks = append(chunks, Chunk{
					Text: enriched,
					Meta: c.chunkMeta(meta, len(chunks), sec.title, r.kind, len(enriched)),
				})
			}
		}
	}

	finalize(chunks)

	c.logger.Debug("chunked document",
		zap.String("doc_id", meta.DocID),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// chunkArticle splits short-form content into 1-2 large chunks, enough to
// capture a whole piece. No section detection; the header is the title.
func (c *Chunker) chunkArticle(text string, meta *docmeta.DocumentMeta) ([]Chunk, error) {
	parts, err := c.articleSplitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting article: %w", err)
	}

	var chunks []Chunk
	for _, part := range parts {
		if len(strings.TrimSpace(part)) < c.cfg.MinChunkSize {
			continue
		}
		chunks = append(chunks, Chunk{
			Text: part,
			Meta: c.chunkMeta(meta, len(chunks), meta.Title, docmeta.ChunkArticle, len(part)),
		})
	}

	finalize(chunks)
	return chunks, nil
}

// chunkMeta builds per-chunk metadata inheriting the document's fields.
func (c *Chunker) chunkMeta(meta *docmeta.DocumentMeta, ordinal int, sectionTitle string, kind docmeta.ChunkType, size int) docmeta.ChunkMeta {
	primaryDomain := ""
	if len(meta.FinancialDomains) > 0 {
		primaryDomain = meta.FinancialDomains[0]
	}
	return docmeta.ChunkMeta{
		ChunkID:         docmeta.ChunkID(meta.DocID, ordinal),
		DocID:           meta.DocID,
		SourceID:        meta.SourceID,
		SourceName:      meta.SourceName,
		Title:           meta.Title,
		URL:             meta.URL,
		SectionTitle:    sectionTitle,
		InstitutionType: meta.InstitutionType,
		FinancialDomain: primaryDomain,
		RegulatoryClass: meta.RegulatoryClass,
		DocType:         meta.DocType,
		Persona:         meta.Tags.Persona,
		LifeStage:       meta.Tags.LifeStage,
		RiskLevel:       meta.Tags.RiskLevel,
		ProductTypes:    meta.Tags.ProductTypes,
		RelevanceScore:  meta.Tags.RelevanceScore,
		Ordinal:         ordinal,
		ChunkType:       kind,
		Size:            size,
		DatePublished:   meta.DatePublished,
		DateIndexed:     time.Now().UTC().Format(time.RFC3339),
	}
}

// finalize backfills TotalChunks once all siblings are known.
func finalize(chunks []Chunk) {
	for i := range chunks {
		chunks[i].Meta.TotalChunks = len(chunks)
	}
}

// isArticle reports whether the caller-supplied classification routes the
// document to article mode.
func isArticle(meta *docmeta.DocumentMeta) bool {
	return meta.InstitutionType == docmeta.InstitutionMedia ||
		meta.RegulatoryClass == docmeta.ClassNews
}
