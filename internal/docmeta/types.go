// Package docmeta defines the typed metadata carried by documents and
// retrieval chunks, and the keyword rules that classify documents.
//
// This schema is the contract between scraping, indexing, and retrieval.
// Per-chunk metadata is deliberately small; the full document record lives
// in the ingestion manifest.
package docmeta

import "fmt"

// DocType identifies the raw artifact format.
type DocType string

const (
	DocTypePDF  DocType = "pdf"
	DocTypeHTML DocType = "html"
	DocTypeText DocType = "text"
)

// InstitutionType is the closed set of source-institution categories.
type InstitutionType string

const (
	InstitutionRegulatory  InstitutionType = "regulatory"
	InstitutionBank        InstitutionType = "bank"
	InstitutionInvestment  InstitutionType = "investment"
	InstitutionSacco       InstitutionType = "sacco"
	InstitutionPlatform    InstitutionType = "platform"
	InstitutionStockbroker InstitutionType = "stockbroker"
	InstitutionMedia       InstitutionType = "media"
	InstitutionEducation   InstitutionType = "education"
)

// RegulatoryClass categorizes a document's regulatory role.
type RegulatoryClass string

const (
	ClassPolicy      RegulatoryClass = "policy"
	ClassReport      RegulatoryClass = "report"
	ClassNotice      RegulatoryClass = "notice"
	ClassGuideline   RegulatoryClass = "guideline"
	ClassData        RegulatoryClass = "data"
	ClassEducation   RegulatoryClass = "education"
	ClassNews        RegulatoryClass = "news"
	ClassProductInfo RegulatoryClass = "product_info"
	ClassOther       RegulatoryClass = "other"
)

// LifeStage grades content by reader sophistication.
type LifeStage string

const (
	LifeStageBeginner     LifeStage = "beginner"
	LifeStageIntermediate LifeStage = "intermediate"
	LifeStageAdvanced     LifeStage = "advanced"
)

// RiskLevel grades the financial products a document discusses.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// ChunkType is the coarse type tag of a retrieval chunk.
type ChunkType string

const (
	ChunkText    ChunkType = "text"
	ChunkTable   ChunkType = "table"
	ChunkArticle ChunkType = "article"
)

// Tags holds audience and product classification produced by the tagger.
// Multi-value fields are ordered lists; they serialize as lists.
type Tags struct {
	Persona        []string  `json:"persona,omitempty"`
	LifeStage      LifeStage `json:"life_stage,omitempty"`
	RiskLevel      RiskLevel `json:"risk_level,omitempty"`
	ProductTypes   []string  `json:"product_types,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
}

// DocumentMeta is the full metadata for one ingested document. It is stored
// in the ingestion manifest, not alongside vectors.
type DocumentMeta struct {
	DocID      string `json:"doc_id"`
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`

	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	DocType DocType `json:"doc_type"`

	InstitutionType  InstitutionType `json:"institution_type,omitempty"`
	FinancialDomains []string        `json:"financial_domains,omitempty"`
	RegulatoryClass  RegulatoryClass `json:"regulatory_class,omitempty"`

	Tags Tags `json:"tags"`

	DatePublished string `json:"date_published,omitempty"`
	DateIndexed   string `json:"date_indexed,omitempty"`

	Pages       int    `json:"pages,omitempty"`
	WordCount   int    `json:"word_count"`
	CharCount   int    `json:"char_count"`
	ChunkCount  int    `json:"chunk_count"`
	ContentHash string `json:"content_hash"`

	RawFile  string `json:"raw_file,omitempty"`
	TextFile string `json:"text_file,omitempty"`
}

// ChunkMeta is the metadata stored alongside each vector. Kept small: it
// carries just enough for retrieval filtering and source attribution.
type ChunkMeta struct {
	ChunkID string `json:"chunk_id"`
	DocID   string `json:"doc_id"`

	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`

	SectionTitle string `json:"section_title,omitempty"`

	InstitutionType InstitutionType `json:"institution_type,omitempty"`
	FinancialDomain string          `json:"financial_domain,omitempty"`
	RegulatoryClass RegulatoryClass `json:"regulatory_class,omitempty"`
	DocType         DocType         `json:"doc_type,omitempty"`

	Persona        []string  `json:"persona,omitempty"`
	LifeStage      LifeStage `json:"life_stage,omitempty"`
	RiskLevel      RiskLevel `json:"risk_level,omitempty"`
	ProductTypes   []string  `json:"product_types,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`

	Ordinal     int       `json:"ordinal"`
	TotalChunks int       `json:"total_chunks"`
	ChunkType   ChunkType `json:"chunk_type"`
	Size        int       `json:"size"`

	DatePublished string `json:"date_published,omitempty"`
	DateIndexed   string `json:"date_indexed,omitempty"`
}

// ChunkID derives the stable chunk identifier from its parent and ordinal.
func ChunkID(docID string, ordinal int) string {
	return fmt.Sprintf("%s_%04d", docID, ordinal)
}

// Field reads a named metadata field as a string or string list, for filter
// matching. Multi-value fields return the list form.
func (m *ChunkMeta) Field(name string) (single string, multi []string, ok bool) {
	switch name {
	case "chunk_id":
		return m.ChunkID, nil, true
	case "doc_id":
		return m.DocID, nil, true
	case "source_id":
		return m.SourceID, nil, true
	case "source_name":
		return m.SourceName, nil, true
	case "title":
		return m.Title, nil, true
	case "url":
		return m.URL, nil, true
	case "section_title":
		return m.SectionTitle, nil, true
	case "institution_type":
		return string(m.InstitutionType), nil, true
	case "financial_domain":
		return m.FinancialDomain, nil, true
	case "regulatory_class":
		return string(m.RegulatoryClass), nil, true
	case "doc_type":
		return string(m.DocType), nil, true
	case "persona":
		return "", m.Persona, true
	case "life_stage":
		return string(m.LifeStage), nil, true
	case "risk_level":
		return string(m.RiskLevel), nil, true
	case "product_types":
		return "", m.ProductTypes, true
	case "chunk_type":
		return string(m.ChunkType), nil, true
	default:
		return "", nil, false
	}
}
