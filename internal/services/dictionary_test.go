package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/underwriting-intake/internal/models"
)

func TestDictionarySearch(t *testing.T) {
	dict, err := LoadConditionDictionary("")
	require.NoError(t, err)

	t.Run("short query returns empty slice", func(t *testing.T) {
		got := dict.Search("a")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("matches label case-insensitively", func(t *testing.T) {
		got := dict.Search("ASTHMA")
		require.NotEmpty(t, got)
		assert.Equal(t, models.DictionarySearchResult{Code: "ASTHMA", Label: "Asthma", Category: "respiratory"}, got[0])
	})

	t.Run("matches synonyms in catalog order", func(t *testing.T) {
		got := dict.Search("diabetes")
		require.Len(t, got, 2)
		assert.Equal(t, "DIABETES_TYPE2", got[0].Code)
		assert.Equal(t, "DIABETES_TYPE1", got[1].Code)
	})

}

func TestDictionarySearch_capsAtTen(t *testing.T) {
	var entries []models.DictionaryEntry
	for i := 0; i < 12; i++ {
		entries = append(entries, models.DictionaryEntry{
			Code:  fmt.Sprintf("C%02d", i),
			Label: fmt.Sprintf("Condition %d", i),
		})
	}
	dict, err := NewConditionDictionary(entries)
	require.NoError(t, err)

	got := dict.Search("condition")
	require.Len(t, got, 10)
	assert.Equal(t, "C00", got[0].Code)
	assert.Equal(t, "C09", got[9].Code)
}

func TestDictionaryByCode(t *testing.T) {
	dict, err := LoadConditionDictionary("")
	require.NoError(t, err)

	e, ok := dict.ByCode("HYPERTENSION")
	require.True(t, ok)
	assert.Equal(t, "Hypertension", e.Label)

	e, ok = dict.ByCode("UNSPECIFIED")
	require.True(t, ok)
	assert.Equal(t, UnspecifiedCondition, e)

	_, ok = dict.ByCode("NOPE")
	assert.False(t, ok)
}

func TestNewConditionDictionary_duplicateCode(t *testing.T) {
	_, err := NewConditionDictionary([]models.DictionaryEntry{
		{Code: "A", Label: "a"},
		{Code: "A", Label: "b"},
	})
	assert.Error(t, err)
}
