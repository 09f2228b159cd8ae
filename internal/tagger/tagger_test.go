package tagger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

func TestTagPersona(t *testing.T) {
	tg := New(zaptest.NewLogger(t))

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "student via strong keyword",
			text: "HELB repayment options for graduates entering their first job.",
			want: []string{"student"},
		},
		{
			name: "sme via strong keyword",
			text: "Apply for an SME loan with flexible working capital terms.",
			want: []string{"sme"},
		},
		{
			name: "no match falls back to general",
			text: "The weather in July was unusually cold this year.",
			want: []string{"general"},
		},
		{
			name: "weak keywords alone need to accumulate",
			text: "A young graduate joined a university youth program.",
			want: []string{"student"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := tg.Tag(Input{Text: tt.text})
			assert.Equal(t, tt.want, tags.Persona)
		})
	}
}

func TestTagLifeStage(t *testing.T) {
	tg := New(zaptest.NewLogger(t))

	tests := []struct {
		name string
		in   Input
		want docmeta.LifeStage
	}{
		{
			name: "beginner keywords",
			in:   Input{Text: "How to open an account: a simple guide to the basics of saving, step by step."},
			want: docmeta.LifeStageBeginner,
		},
		{
			name: "advanced keywords",
			in:   Input{Text: "The monetary policy committee reviewed capital adequacy under the prudential guidelines and systemic risk exposure."},
			want: docmeta.LifeStageAdvanced,
		},
		{
			name: "regulatory institution hint tips advanced",
			in: Input{
				Text:            "Quarterly banking sector statistics.",
				SourceID:        "cbk",
				InstitutionType: docmeta.InstitutionRegulatory,
			},
			want: docmeta.LifeStageAdvanced,
		},
		{
			name: "default is intermediate",
			in:   Input{Text: "General commentary without signal."},
			want: docmeta.LifeStageIntermediate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tg.Tag(tt.in).LifeStage)
		})
	}
}

func TestTagRiskLevel(t *testing.T) {
	tg := New(zaptest.NewLogger(t))

	tests := []struct {
		name string
		text string
		want docmeta.RiskLevel
	}{
		{
			name: "very high for leveraged trading",
			text: "Forex trading with leveraged margin trading positions is speculative.",
			want: docmeta.RiskVeryHigh,
		},
		{
			name: "low for government paper",
			text: "A 91-day treasury bill is a guaranteed, capital protection instrument.",
			want: docmeta.RiskLow,
		},
		{
			name: "default medium",
			text: "Opening hours for the downtown branch.",
			want: docmeta.RiskMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tg.Tag(Input{Text: tt.text}).RiskLevel)
		})
	}
}

func TestTagProductTypes(t *testing.T) {
	tg := New(zaptest.NewLogger(t))

	tags := tg.Tag(Input{
		Text: "Compare savings account rates and fixed deposit terms; loan repayment on a personal loan accrues interest monthly.",
	})
	assert.Contains(t, tags.ProductTypes, "savings")
	assert.Contains(t, tags.ProductTypes, "loans")

	// A single keyword hit is not enough to claim a category.
	tags = tg.Tag(Input{Text: "The mortgage desk is closed."})
	assert.NotContains(t, tags.ProductTypes, "mortgage")
}

func TestRelevanceScore(t *testing.T) {
	tg := New(zaptest.NewLogger(t))

	rich := tg.Tag(Input{
		Text: "The CBK retained the central bank rate at 9.5% in Nairobi. " +
			"Treasury bill yields for KES instruments were 12.1%, 12.8% and 13.2% " +
			"across the 91, 182 and 364 day tenors, per KNBS data on Kenya shilling liquidity.",
		InstitutionType: docmeta.InstitutionRegulatory,
	})
	thin := tg.Tag(Input{
		Text:            "Short note.",
		InstitutionType: docmeta.InstitutionMedia,
	})

	assert.Greater(t, rich.RelevanceScore, thin.RelevanceScore)
	assert.GreaterOrEqual(t, rich.RelevanceScore, 0.0)
	assert.LessOrEqual(t, rich.RelevanceScore, 1.0)
	assert.GreaterOrEqual(t, thin.RelevanceScore, 0.0)
}

func TestTagChunkInPlace(t *testing.T) {
	tg := New(zaptest.NewLogger(t))

	meta := docmeta.ChunkMeta{
		ChunkID:         "doc_0001",
		Title:           "HELB loan repayment guide",
		SourceID:        "helb",
		InstitutionType: docmeta.InstitutionRegulatory,
	}
	tg.TagChunk("How to repay your student loan after graduation: the basics, step by step.", &meta)

	assert.Contains(t, meta.Persona, "student")
	assert.NotEmpty(t, meta.LifeStage)
	assert.NotEmpty(t, meta.RiskLevel)
	assert.Greater(t, meta.RelevanceScore, 0.0)
}

func TestTagDocumentStoresTags(t *testing.T) {
	tg := New(zaptest.NewLogger(t))

	meta := docmeta.DocumentMeta{
		DocID:           "cbk_mpc_2025",
		Title:           "Monetary Policy Committee statement",
		SourceID:        "cbk",
		InstitutionType: docmeta.InstitutionRegulatory,
	}
	tg.TagDocument("The monetary policy committee held the central bank rate steady citing macroprudential stability.", &meta)

	assert.Equal(t, docmeta.LifeStageAdvanced, meta.Tags.LifeStage)
	assert.NotEmpty(t, meta.Tags.Persona)
}

func TestTagTruncatesLongContext(t *testing.T) {
	tg := New(zaptest.NewLogger(t))

	// Keyword past the scan window should not register.
	text := strings.Repeat("filler text without signal. ", 200) + " helb repayment"
	tags := tg.Tag(Input{Text: text})
	assert.Equal(t, []string{"general"}, tags.Persona)
}
