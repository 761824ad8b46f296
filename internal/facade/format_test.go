package facade

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_Counts(t *testing.T) {
	t.Run("keeps received order", func(t *testing.T) {
		result := &ExternalResult{
			Query:  "aspirin",
			Counts: []CountItem{{Term: "Nausea", Count: 120}, {Term: "Headache", Count: 95}},
		}

		artifact := Format(result, IntentSideEffectsByDrug)
		require.NotNil(t, artifact.Chart)
		assert.Equal(t, []string{"Nausea", "Headache"}, artifact.Chart.Labels)
		assert.Equal(t, []int{120, 95}, artifact.Chart.Values)
		assert.False(t, artifact.Placeholder)
	})

	t.Run("truncates to ten items", func(t *testing.T) {
		result := &ExternalResult{Query: "ibuprofen"}
		for i := 0; i < 15; i++ {
			result.Counts = append(result.Counts, CountItem{Term: fmt.Sprintf("R%d", i), Count: 100 - i})
		}

		artifact := Format(result, IntentSideEffectsByDrug)
		assert.Len(t, artifact.Chart.Labels, 10)
		assert.Len(t, artifact.Chart.Values, 10)
		assert.Equal(t, "R9", artifact.Chart.Labels[9])
		assert.Len(t, result.Counts, 15, "result must not be mutated")
	})

	t.Run("empty counts become placeholder chart", func(t *testing.T) {
		artifact := Format(&ExternalResult{Query: "x"}, IntentDrugsByCondition)
		assert.True(t, artifact.Placeholder)
		assert.Equal(t, ArtifactChart, artifact.Kind)
		assert.Equal(t, MessageNoData, artifact.Chart.Annotation)
		assert.True(t, artifact.Chart.Empty())
	})

	t.Run("drug listing", func(t *testing.T) {
		result := &ExternalResult{
			Query:  "cold",
			Counts: []CountItem{{Term: "ASPIRIN", Count: 1234567}, {Term: "TYLENOL", Count: 8}},
		}

		artifact := Format(result, IntentDrugsByCondition)
		assert.Equal(t, "'cold' drug search results:\n\n"+
			"1. ASPIRIN\n   Reports: 1,234,567\n\n"+
			"2. TYLENOL\n   Reports: 8\n", artifact.Text)
	})
}

func TestFormat_Narrative(t *testing.T) {
	result := &ExternalResult{
		Narrative: "Overview.",
		Papers: []Paper{
			{ID: "1", Title: "A"},
			{ID: "2", Title: "B"},
			{ID: "3", Title: "C"},
			{ID: "4", Title: "D"},
		},
	}

	artifact := Format(result, IntentLiteratureByTerm)
	assert.Equal(t, ArtifactText, artifact.Kind)
	assert.Equal(t, "Overview.\n\n- A [PMID: 1]\n- B [PMID: 2]\n- C [PMID: 3]", artifact.Text)

	assert.True(t, Format(nil, IntentLiteratureByTerm).Placeholder)
}

func TestFormat_Deterministic(t *testing.T) {
	result := &ExternalResult{Query: "q", Counts: []CountItem{{Term: "A", Count: 1}}}
	assert.Equal(t, Format(result, IntentDrugsByCondition), Format(result, IntentDrugsByCondition))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "999", FormatCount(999))
	assert.Equal(t, "1,234", FormatCount(1234))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, MessageNoData, errorMessage(NewUpstreamError(UpstreamOpenFDA, 404, nil)))
	assert.Equal(t, MessageFetchFailed, errorMessage(NewUpstreamError(UpstreamOpenFDA, 503, nil)))
	assert.Equal(t, MessageNoData, errorMessage(NewMalformedResponseError(UpstreamPubMed, "missing result", nil)))
	assert.Equal(t, MessageEnterQuestion, errorMessage(NewEmptyInputError(MessageEnterQuestion)))
}

func TestPlainText(t *testing.T) {
	sideEffects := Format(&ExternalResult{
		Query:  "aspirin",
		Counts: []CountItem{{Term: "NAUSEA", Count: 1234}, {Term: "HEADACHE", Count: 5}},
	}, IntentSideEffectsByDrug)
	assert.Equal(t, "aspirin: most reported side effects:\n\n1. NAUSEA: 1,234\n2. HEADACHE: 5", sideEffects.PlainText())

	drugs := Format(&ExternalResult{Query: "cold", Counts: []CountItem{{Term: "ACETAMINOPHEN", Count: 10}}}, IntentDrugsByCondition)
	assert.Equal(t, drugs.Text, drugs.PlainText())

	assert.Equal(t, MessageNoData, chartPlaceholder(MessageNoData).PlainText())
	assert.Equal(t, MessageNoData, (&DisplayArtifact{Kind: ArtifactChart, Chart: &ChartSpec{Annotation: MessageNoData}}).PlainText())
	assert.Equal(t, "hello", textPlaceholder("hello").PlainText())

	var nilArtifact *DisplayArtifact
	assert.Empty(t, nilArtifact.PlainText())
}
