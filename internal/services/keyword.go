package services

import (
	"context"
	"hash/fnv"
	"strings"

	"alfredoptarigan/underwriting-intake/internal/models"
)

const maxKeywordMatches = 5

type keywordExtractor struct {
	dict  *ConditionDictionary
	limit int
}

// NewKeywordExtractor scans text for dictionary labels and synonyms. It needs
// no external provider, so the pipeline falls back to it whenever the
// configured provider fails.
func NewKeywordExtractor(dict *ConditionDictionary) ConditionExtractor {
	return &keywordExtractor{dict: dict, limit: maxKeywordMatches}
}

func (k *keywordExtractor) Name() string {
	return "keyword"
}

// ExtractConditions reports at most one term per dictionary entry, in
// dictionary order, capped at five.
func (k *keywordExtractor) ExtractConditions(_ context.Context, text string) ([]models.ExtractedTerm, error) {
	lower := strings.ToLower(text)
	sameWidth := len(lower) == len(text)

	var terms []models.ExtractedTerm
	for _, entry := range k.dict.Entries() {
		if len(terms) == k.limit {
			break
		}
		candidates := append([]string{entry.Label}, entry.Synonyms...)
		for _, syn := range candidates {
			needle := strings.ToLower(strings.TrimSpace(syn))
			if needle == "" {
				continue
			}
			idx := strings.Index(lower, needle)
			if idx < 0 {
				continue
			}
			found := needle
			if sameWidth {
				found = text[idx : idx+len(needle)]
			}
			terms = append(terms, models.ExtractedTerm{
				OriginalTerm: found,
				Confidence:   keywordConfidence(entry.Code),
				Status:       string(models.ClinicalActive),
			})
			break
		}
	}
	return terms, nil
}

// keywordConfidence is a stable value in [0.75, 0.95] derived from code.
func keywordConfidence(code string) float64 {
	h := fnv.New32a()
	h.Write([]byte(code))
	return 0.75 + float64(h.Sum32()%21)/100
}
