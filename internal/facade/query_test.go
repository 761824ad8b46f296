package facade

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      string
		translate bool
	}{
		{"empty", "", "", false},
		{"whitespace", " \t\n ", "", false},
		{"ascii trimmed", "  aspirin ", "aspirin", false},
		{"full-width latin folds", "ａｓｐｉｒｉｎ", "aspirin", false},
		{"korean", "두통", "두통", true},
		{"japanese", "頭痛", "頭痛", true},
		{"latin with accents", "café", "café", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Normalize(tt.raw)
			assert.Equal(t, tt.want, q.Text)
			assert.Equal(t, tt.want == "", q.Empty())
			assert.Equal(t, tt.translate, q.NeedsTranslation)
		})
	}
}

func TestTranslate(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	t.Run("ascii is identity with zero calls", func(t *testing.T) {
		gen := &mockGenerator{}
		tr := NewTranslator(gen, logger)

		assert.Equal(t, "headache", tr.Translate(context.Background(), "headache"))
		gen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
	})

	t.Run("uses first line of reply", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("GenerateText", mock.Anything, mock.Anything).Return("\n  'Hypertension.'\nExplanation follows", nil).Once()
		tr := NewTranslator(gen, logger)

		assert.Equal(t, "Hypertension", tr.Translate(context.Background(), "고혈압"))
		gen.AssertExpectations(t)
	})

	t.Run("strips leading label", func(t *testing.T) {
		tests := map[string]string{
			"English: Cold":          "Cold",
			"**Translation:** Rash":  "Rash",
			"\"English: Insomnia.\"": "Insomnia",
			"Type 2: diabetes":       "Type 2: diabetes",
		}
		for reply, want := range tests {
			gen := &mockGenerator{}
			gen.On("GenerateText", mock.Anything, mock.Anything).Return(reply, nil).Once()
			tr := NewTranslator(gen, logger)

			assert.Equal(t, want, tr.Translate(context.Background(), "감기"), reply)
		}
	})

	t.Run("error returns original", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("GenerateText", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()
		tr := NewTranslator(gen, logger)

		assert.Equal(t, "비염", tr.Translate(context.Background(), "비염"))
	})

	t.Run("empty reply returns original", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("GenerateText", mock.Anything, mock.Anything).Return(" \"\" ", nil).Once()
		tr := NewTranslator(gen, logger)

		assert.Equal(t, "불면증", tr.Translate(context.Background(), "불면증"))
	})
}

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name   string
		term   string
		intent Intent
		want   NormalizedRequest
	}{
		{
			name:   "drugs by condition",
			term:   "cold",
			intent: IntentDrugsByCondition,
			want: NormalizedRequest{
				Intent: IntentDrugsByCondition, Term: "cold", Endpoint: "event.json",
				Search:     "patient.drug.drugindication:cold",
				CountField: "patient.drug.medicinalproduct.exact", Limit: 10,
			},
		},
		{
			name:   "multi-word side effects are quoted",
			term:   `acetylsalicylic "acid"`,
			intent: IntentSideEffectsByDrug,
			want: NormalizedRequest{
				Intent: IntentSideEffectsByDrug, Term: `acetylsalicylic "acid"`, Endpoint: "event.json",
				Search:     `patient.drug.medicinalproduct:"acetylsalicylic acid"`,
				CountField: "patient.reaction.reactionmeddrapt.exact", Limit: 10,
			},
		},
		{
			name:   "literature",
			term:   "sleep apnea",
			intent: IntentLiteratureByTerm,
			want: NormalizedRequest{
				Intent: IntentLiteratureByTerm, Term: "sleep apnea", Endpoint: "esearch.fcgi",
				Search: "sleep apnea", Limit: 10,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := BuildRequest(tt.term, tt.intent)
			assert.Equal(t, tt.want, req)
			assert.Equal(t, tt.want.CountField != "", req.IsCount())
		})
	}
}

func TestError(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewUpstreamError(UpstreamPubMed, 502, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upstream_unavailable")
	assert.Contains(t, err.Error(), "HTTP 502")

	var wrapped error = errors.Join(errors.New("outer"), err)
	assert.Equal(t, ErrorKindUpstreamUnavailable, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}
