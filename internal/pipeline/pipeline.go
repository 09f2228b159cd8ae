// Package pipeline orchestrates ingestion: parse, clean, deduplicate,
// classify, tag, chunk, embed, and index a batch of scraped documents,
// recording everything in a durable manifest. One orchestrator run owns
// the index and the dedup registry for its duration; concurrent runs must
// be serialized externally.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hazina/internal/chunker"
	"github.com/fyrsmithlabs/hazina/internal/dedup"
	"github.com/fyrsmithlabs/hazina/internal/docmeta"
	"github.com/fyrsmithlabs/hazina/internal/embeddings"
	"github.com/fyrsmithlabs/hazina/internal/index"
	"github.com/fyrsmithlabs/hazina/internal/tagger"
)

const instrumentationName = "github.com/fyrsmithlabs/hazina/internal/pipeline"

// ErrNoDocuments indicates a run invoked with an empty batch. Unlike
// per-document defects, this is a hard failure of the whole operation.
var ErrNoDocuments = errors.New("pipeline: no documents to process")

// ScrapedDocument describes one raw scraped artifact handed to the
// pipeline by the acquisition layer.
type ScrapedDocument struct {
	DocID      string `json:"doc_id"`
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`

	DocType         docmeta.DocType         `json:"doc_type"`
	InstitutionType docmeta.InstitutionType `json:"institution_type,omitempty"`

	FinancialDomains []string `json:"financial_domains,omitempty"`

	// RawFile is the path to the scraped artifact on disk.
	RawFile string `json:"raw_file"`

	// DateHint is the publication date extracted by the scraper, if any.
	DateHint string `json:"date_hint,omitempty"`
}

// Parser extracts text from a raw artifact. PDF and HTML extraction live
// outside this core; the pipeline only consumes their output.
type Parser interface {
	Parse(path string, docType docmeta.DocType) (text string, pages int, err error)
}

// Cleaner normalizes extracted text before chunking.
type Cleaner interface {
	Clean(text string) string
}

// TextParser reads the artifact as plain UTF-8 text. It is the default
// parser and the fallback for unrecognized document types.
type TextParser struct{}

// Parse reads the whole file.
func (TextParser) Parse(path string, _ docmeta.DocType) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	return string(data), 0, nil
}

// WhitespaceCleaner collapses runs of blank lines and trims trailing
// space per line. Heavier cleanup (boilerplate stripping) belongs to the
// external cleaner this stands in for.
type WhitespaceCleaner struct{}

// Clean normalizes line endings and whitespace.
func (WhitespaceCleaner) Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	var out []string
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Config holds orchestrator parameters.
type Config struct {
	// DataDir is the root for processed text and the manifest.
	DataDir string

	// MinTextLength rejects documents shorter than this after cleaning.
	MinTextLength int

	// MaxRunHistory caps the manifest's run-summary list.
	MaxRunHistory int

	// EmbedBatchSize bounds how many chunks are embedded per call.
	EmbedBatchSize int
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.MinTextLength == 0 {
		c.MinTextLength = 100
	}
	if c.MaxRunHistory == 0 {
		c.MaxRunHistory = defaultMaxRuns
	}
	if c.EmbedBatchSize == 0 {
		c.EmbedBatchSize = 64
	}
}

// Orchestrator runs the per-document pipeline and hands chunk batches to
// the index engine.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger
	tracer trace.Tracer

	parser   Parser
	cleaner  Cleaner
	dedup    *dedup.Deduplicator
	chunker  *chunker.Chunker
	tagger   *tagger.Tagger
	embedder embeddings.Embedder
	engine   *index.Engine

	manifest *Manifest
}

// Deps are the collaborators an Orchestrator coordinates. Parser and
// Cleaner default to the plain-text implementations; Tagger may be nil
// (documents keep default tags).
type Deps struct {
	Parser   Parser
	Cleaner  Cleaner
	Dedup    *dedup.Deduplicator
	Chunker  *chunker.Chunker
	Tagger   *tagger.Tagger
	Embedder embeddings.Embedder
	Engine   *index.Engine
}

// New creates an Orchestrator and loads the manifest from the data dir.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Orchestrator, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Parser == nil {
		deps.Parser = TextParser{}
	}
	if deps.Cleaner == nil {
		deps.Cleaner = WhitespaceCleaner{}
	}
	if deps.Dedup == nil || deps.Chunker == nil || deps.Embedder == nil || deps.Engine == nil {
		return nil, errors.New("pipeline: dedup, chunker, embedder, and engine are required")
	}

	manifest, err := LoadManifest(filepath.Join(cfg.DataDir, "index_manifest.json"), cfg.MaxRunHistory)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		parser:   deps.Parser,
		cleaner:  deps.Cleaner,
		dedup:    deps.Dedup,
		chunker:  deps.Chunker,
		tagger:   deps.Tagger,
		embedder: deps.Embedder,
		engine:   deps.Engine,
		manifest: manifest,
	}, nil
}

// Manifest exposes the loaded manifest for stats and inspection.
func (o *Orchestrator) Manifest() *Manifest { return o.manifest }

// Run processes a batch of scraped documents end to end and updates the
// index and manifest. Per-document failures are counted and logged, never
// fatal to the batch; rerunning over the same input is idempotent through
// the dedup registry and manifest.
func (o *Orchestrator) Run(ctx context.Context, docs []ScrapedDocument) (*RunSummary, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.Int("documents", len(docs))))
	defer span.End()

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	start := time.Now()
	summary := RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Input:     len(docs),
	}
	o.logger.Info("ingestion run started",
		zap.String("run_id", summary.RunID),
		zap.Int("documents", len(docs)))

	var batch []chunker.Chunk
	for _, doc := range docs {
		chunks, verdict, err := o.processDocument(ctx, doc)
		switch {
		case err != nil:
			summary.Errors++
		case verdict.IsDuplicate:
			summary.Duplicates++
			o.logger.Info("duplicate skipped",
				zap.String("doc_id", doc.DocID),
				zap.String("kind", string(verdict.Kind)),
				zap.String("duplicate_of", verdict.DuplicateOf),
				zap.Float64("similarity", verdict.Similarity))
		default:
			summary.Parsed++
			batch = append(batch, chunks...)
		}
	}
	summary.Chunks = len(batch)

	if len(batch) > 0 {
		if err := o.indexChunks(ctx, batch); err != nil {
			o.logger.Error("indexing failed", zap.Error(err))
			summary.Errors++
		} else {
			summary.Indexed = len(batch)
		}
	}

	summary.CompletedAt = time.Now().UTC()
	summary.DurationSeconds = time.Since(start).Seconds()
	o.manifest.AppendRun(summary)
	if err := o.manifest.Save(); err != nil {
		return nil, fmt.Errorf("saving manifest: %w", err)
	}

	o.logger.Info("ingestion run complete",
		zap.String("run_id", summary.RunID),
		zap.Int("parsed", summary.Parsed),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("errors", summary.Errors),
		zap.Int("chunks", summary.Chunks),
		zap.Int("indexed", summary.Indexed),
		zap.Duration("duration", time.Since(start)))
	return &summary, nil
}

// processDocument runs one document through parse → clean → dedup gate →
// register → persist → classify → tag → chunk. Errors carry the stage
// and document id so a single document can be retried later.
func (o *Orchestrator) processDocument(ctx context.Context, doc ScrapedDocument) ([]chunker.Chunk, dedup.Verdict, error) {
	_ = ctx
	fail := func(stage string, err error) ([]chunker.Chunk, dedup.Verdict, error) {
		o.logger.Warn("document skipped",
			zap.String("doc_id", doc.DocID),
			zap.String("source_id", doc.SourceID),
			zap.String("stage", stage),
			zap.Error(err))
		return nil, dedup.Unique, fmt.Errorf("%s %s: %w", stage, doc.DocID, err)
	}

	if doc.RawFile == "" {
		return fail("verify", errors.New("no raw file"))
	}
	if _, err := os.Stat(doc.RawFile); err != nil {
		return fail("verify", err)
	}

	text, pages, err := o.parser.Parse(doc.RawFile, doc.DocType)
	if err != nil {
		return fail("parse", err)
	}

	cleaned := o.cleaner.Clean(text)
	if len(cleaned) < o.cfg.MinTextLength {
		return fail("clean", fmt.Errorf("text too short after cleaning (%d chars)", len(cleaned)))
	}

	// Manifest gate: a document already processed with identical content is
	// skipped, which is what makes reruns over the same input idempotent.
	// The dedup registry only catches the same content under a different id.
	hash := dedup.ContentHash(cleaned)
	if prev, ok := o.manifest.Document(doc.DocID); ok && prev.ContentHash == hash {
		return nil, dedup.Verdict{IsDuplicate: true, Kind: dedup.KindExact, DuplicateOf: doc.DocID, Similarity: 1.0}, nil
	}

	verdict, err := o.dedup.Check(doc.DocID, cleaned, doc.URL)
	if err != nil {
		return fail("dedup", err)
	}
	if verdict.IsDuplicate {
		return nil, verdict, nil
	}
	if err := o.dedup.Register(doc.DocID, cleaned, doc.URL); err != nil {
		return fail("dedup", err)
	}

	textPath := filepath.Join(o.cfg.DataDir, "processed", doc.SourceID, doc.DocID+".txt")
	if err := os.MkdirAll(filepath.Dir(textPath), 0o755); err != nil {
		return fail("persist", err)
	}
	if err := os.WriteFile(textPath, []byte(cleaned), 0o644); err != nil {
		return fail("persist", err)
	}

	meta := docmeta.DocumentMeta{
		DocID:            doc.DocID,
		SourceID:         doc.SourceID,
		SourceName:       doc.SourceName,
		Title:            doc.Title,
		URL:              doc.URL,
		DocType:          doc.DocType,
		InstitutionType:  doc.InstitutionType,
		FinancialDomains: doc.FinancialDomains,
		RegulatoryClass:  docmeta.ClassifyDocument(doc.Title, cleaned),
		DatePublished:    doc.DateHint,
		DateIndexed:      time.Now().UTC().Format(time.RFC3339),
		Pages:            pages,
		WordCount:        len(strings.Fields(cleaned)),
		CharCount:        len(cleaned),
		ContentHash:      hash,
		RawFile:          doc.RawFile,
		TextFile:         textPath,
	}
	if o.tagger != nil {
		o.tagger.TagDocument(cleaned, &meta)
	}

	chunks, err := o.chunker.ChunkDocument(cleaned, &meta)
	if err != nil {
		return fail("chunk", err)
	}
	meta.ChunkCount = len(chunks)
	o.manifest.Upsert(meta)

	return chunks, dedup.Unique, nil
}

// indexChunks embeds the batch in fixed-size groups and hands the vectors
// to the engine: a fresh build when the index is empty, an incremental
// insert otherwise. The index persists after either path.
func (o *Orchestrator) indexChunks(ctx context.Context, batch []chunker.Chunk) error {
	vectors := make([][]float32, 0, len(batch))
	metas := make([]docmeta.ChunkMeta, 0, len(batch))

	for start := 0; start < len(batch); start += o.cfg.EmbedBatchSize {
		end := start + o.cfg.EmbedBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		texts := make([]string, 0, end-start)
		for _, c := range batch[start:end] {
			texts = append(texts, c.Text)
		}
		embedded, err := o.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch at %d: %w", start, err)
		}
		vectors = append(vectors, embedded...)
		for _, c := range batch[start:end] {
			metas = append(metas, c.Meta)
		}
	}

	if o.engine.Count() == 0 {
		decision, err := o.engine.Build(ctx, vectors, metas)
		if err != nil {
			return fmt.Errorf("building index: %w", err)
		}
		o.logger.Info("index build decision",
			zap.String("strategy", string(decision.Strategy)),
			zap.Int("vectors", decision.VectorCount),
			zap.Int("nlist", decision.Nlist))
	} else {
		if err := o.engine.Insert(ctx, vectors, metas); err != nil {
			return fmt.Errorf("inserting into index: %w", err)
		}
	}
	return o.engine.Save()
}
