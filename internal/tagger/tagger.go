// Package tagger classifies financial content along five dimensions:
// audience persona, literacy life stage, product risk level, product
// types, and a relevance score. The domain is narrow enough that keyword
// rules tuned to Kenyan financial terminology give high precision without
// a model.
package tagger

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

// contextLimit caps how much text the keyword rules scan. The opening of
// a document carries nearly all of the classification signal.
const contextLimit = 3000

// Tagger is a rule-based content classifier.
type Tagger struct {
	logger *zap.Logger
}

// New creates a Tagger. A nil logger falls back to a no-op logger.
func New(logger *zap.Logger) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{logger: logger}
}

// Input carries the text and metadata context for one tagging call.
type Input struct {
	Text            string
	Title           string
	SectionTitle    string
	SourceID        string
	InstitutionType docmeta.InstitutionType
}

// Tag classifies the input along all five dimensions. The title and
// section title are folded into the scanned text because they often name
// the audience or product more directly than the body does.
func (t *Tagger) Tag(in Input) docmeta.Tags {
	body := in.Text
	if len(body) > contextLimit {
		body = body[:contextLimit]
	}
	context := strings.ToLower(in.Title + " " + in.SectionTitle + " " + body)

	tags := docmeta.Tags{
		Persona:        classifyPersona(context, in.SourceID),
		LifeStage:      classifyLifeStage(context, in.SourceID, in.InstitutionType),
		RiskLevel:      classifyRiskLevel(context),
		ProductTypes:   classifyProductTypes(context),
		RelevanceScore: scoreRelevance(in.Text, in.InstitutionType),
	}

	t.logger.Debug("tagged content",
		zap.String("source_id", in.SourceID),
		zap.Strings("persona", tags.Persona),
		zap.String("life_stage", string(tags.LifeStage)),
		zap.String("risk_level", string(tags.RiskLevel)),
		zap.Float64("relevance", tags.RelevanceScore))

	return tags
}

// TagDocument tags a full document and stores the result on its metadata.
func (t *Tagger) TagDocument(text string, meta *docmeta.DocumentMeta) {
	meta.Tags = t.Tag(Input{
		Text:            text,
		Title:           meta.Title,
		SourceID:        meta.SourceID,
		InstitutionType: meta.InstitutionType,
	})
}

// TagChunk tags one chunk in place. Chunks are tagged individually rather
// than inheriting document tags: a risk warning buried in a product guide
// should carry its own risk level.
func (t *Tagger) TagChunk(text string, meta *docmeta.ChunkMeta) {
	tags := t.Tag(Input{
		Text:            text,
		Title:           meta.Title,
		SectionTitle:    meta.SectionTitle,
		SourceID:        meta.SourceID,
		InstitutionType: meta.InstitutionType,
	})
	meta.Persona = tags.Persona
	meta.LifeStage = tags.LifeStage
	meta.RiskLevel = tags.RiskLevel
	meta.ProductTypes = tags.ProductTypes
	meta.RelevanceScore = tags.RelevanceScore
}

// classifyPersona returns the matching personas, or ["general"] when no
// rule scores high enough. A strong keyword counts once; weak keywords
// accumulate; a score of 3 claims the persona.
func classifyPersona(context, sourceID string) []string {
	_ = sourceID // reserved for per-source hints
	var matches []string
	for _, rule := range personaRules {
		score := 0
		for _, kw := range rule.strong {
			if strings.Contains(context, kw) {
				score += 3
				break
			}
		}
		for _, kw := range rule.weak {
			if strings.Contains(context, kw) {
				score++
			}
		}
		if score >= 3 {
			matches = append(matches, rule.persona)
		}
	}
	if len(matches) == 0 {
		return []string{"general"}
	}
	return matches
}

// classifyLifeStage picks the literacy level with the highest score,
// defaulting to intermediate when nothing matches.
func classifyLifeStage(context, sourceID string, inst docmeta.InstitutionType) docmeta.LifeStage {
	best := docmeta.LifeStageIntermediate
	bestScore := 0
	for _, rule := range lifeStageRules {
		score := 0
		for _, kw := range rule.keywords {
			if strings.Contains(context, kw) {
				score++
			}
		}
		for _, hint := range rule.sourceHints {
			if sourceID == hint {
				score += 3
				break
			}
		}
		for _, hint := range rule.institutionHints {
			if inst == hint {
				score += 2
				break
			}
		}
		if score > bestScore {
			best = rule.stage
			bestScore = score
		}
	}
	return best
}

// classifyRiskLevel picks the risk level with the highest keyword count,
// defaulting to medium. Ties go to the riskier level.
func classifyRiskLevel(context string) docmeta.RiskLevel {
	best := docmeta.RiskMedium
	bestScore := 0
	for _, rule := range riskRules {
		score := 0
		for _, kw := range rule.keywords {
			if strings.Contains(context, kw) {
				score++
			}
		}
		if score > bestScore {
			best = rule.level
			bestScore = score
		}
	}
	return best
}

// classifyProductTypes returns every product category with at least two
// keyword hits. The result may be empty.
func classifyProductTypes(context string) []string {
	var matches []string
	for _, rule := range productRules {
		count := 0
		for _, kw := range rule.keywords {
			if strings.Contains(context, kw) {
				count++
				if count >= 2 {
					matches = append(matches, rule.product)
					break
				}
			}
		}
	}
	return matches
}

// kenyaTerms are market-specific financial terms that signal high-value
// content for this corpus.
var kenyaTerms = []string{
	"kes", "cbk", "nse", "kra", "cma", "knbs", "nssf", "nhif",
	"m-pesa", "mpesa", "sacco", "chama", "paye", "treasury bill",
	"nairobi", "kenya", "shilling", "central bank rate",
	"safaricom", "equity bank", "kcb", "cooperative",
}

// authorityWeights adjust relevance by source authority. Regulators score
// highest; media lowest.
var authorityWeights = map[docmeta.InstitutionType]float64{
	docmeta.InstitutionRegulatory:  0.15,
	docmeta.InstitutionBank:        0.10,
	docmeta.InstitutionInvestment:  0.10,
	docmeta.InstitutionStockbroker: 0.10,
	docmeta.InstitutionSacco:       0.05,
	docmeta.InstitutionPlatform:    0.05,
	docmeta.InstitutionEducation:   0.0,
	docmeta.InstitutionMedia:       -0.05,
}

var numberPattern = regexp.MustCompile(`\d+\.?\d*%?`)

// scoreRelevance grades content quality on [0, 1] from length, density of
// market-specific terms, source authority, and data richness.
func scoreRelevance(text string, inst docmeta.InstitutionType) float64 {
	score := 0.5

	textLen := len(text)
	switch {
	case textLen < 100:
		score -= 0.2
	case textLen > 300:
		score += 0.1
	}

	lower := strings.ToLower(text)
	termCount := 0
	for _, term := range kenyaTerms {
		if strings.Contains(lower, term) {
			termCount++
		}
	}
	termBonus := float64(termCount) * 0.03
	if termBonus > 0.15 {
		termBonus = 0.15
	}
	score += termBonus

	score += authorityWeights[inst]

	if len(numberPattern.FindAllString(text, 6)) > 5 {
		score += 0.05
	}

	if len(strings.Fields(text)) < 20 {
		score -= 0.15
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return float64(int(score*1000+0.5)) / 1000
}
