package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConditionsResponse(t *testing.T) {
	resp := "Here you go:\n```json\n" + `{"conditions": [
		{"originalTerm": " Asthma ", "confidence": 0.92, "status": "Active", "severity": "mild"},
		{"originalTerm": "hypertension"},
		{"originalTerm": "", "confidence": 0.5},
		{"originalTerm": "gout", "confidence": 1.7, "onsetDate": "2019-04-01"}
	]}` + "\n```"

	terms, err := parseConditionsResponse(resp)
	require.NoError(t, err)
	require.Len(t, terms, 3)

	assert.Equal(t, "Asthma", terms[0].OriginalTerm)
	assert.InDelta(t, 0.92, terms[0].Confidence, 1e-9)
	assert.Equal(t, "active", terms[0].Status)
	assert.Equal(t, "mild", terms[0].Severity)

	assert.InDelta(t, defaultConfidence, terms[1].Confidence, 1e-9)

	assert.Equal(t, 1.0, terms[2].Confidence)
	assert.Equal(t, "2019-04-01", terms[2].OnsetDate)
}

func TestParseConditionsResponse_invalid(t *testing.T) {
	_, err := parseConditionsResponse("I could not find anything")
	assert.Error(t, err)
}

func TestBuildConditionExtractionPrompt_truncates(t *testing.T) {
	pb := NewPromptBuilder()
	prompt := pb.BuildConditionExtractionPrompt(strings.Repeat("z", 50), 10)

	assert.Contains(t, prompt, strings.Repeat("z", 10))
	assert.NotContains(t, prompt, strings.Repeat("z", 11))
	assert.Contains(t, prompt, `"conditions"`)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `[1,2]`, extractJSON("list: [1,2] done"))
}
