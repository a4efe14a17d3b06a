package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordExtractor(t *testing.T) {
	dict, err := LoadConditionDictionary("")
	require.NoError(t, err)
	k := NewKeywordExtractor(dict)

	terms, err := k.ExtractConditions(context.Background(),
		"Patient presents with history of Asthma and High Blood Pressure.")
	require.NoError(t, err)
	require.Len(t, terms, 2)

	assert.Equal(t, "Asthma", terms[0].OriginalTerm)
	assert.Equal(t, "High Blood Pressure", terms[1].OriginalTerm)
	for _, term := range terms {
		assert.GreaterOrEqual(t, term.Confidence, 0.75)
		assert.LessOrEqual(t, term.Confidence, 0.95)
		assert.Equal(t, "active", term.Status)
	}
	assert.Equal(t, "keyword", k.Name())
}

func TestKeywordExtractor_capsAtFive(t *testing.T) {
	dict, err := LoadConditionDictionary("")
	require.NoError(t, err)

	text := strings.Join([]string{"asthma", "hypertension", "diabetes", "copd", "depression", "anxiety", "arthritis"}, ", ")
	terms, err := NewKeywordExtractor(dict).ExtractConditions(context.Background(), text)
	require.NoError(t, err)
	assert.Len(t, terms, 5)
}

func TestKeywordConfidence_stable(t *testing.T) {
	assert.Equal(t, keywordConfidence("ASTHMA"), keywordConfidence("ASTHMA"))
}
