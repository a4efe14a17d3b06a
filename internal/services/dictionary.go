package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/underwriting-intake/internal/models"
)

const (
	minSearchQueryLength = 2
	maxSearchResults     = 10
)

// UnspecifiedCondition is the resolution target for terms that match nothing.
// It is not part of the searchable dictionary.
var UnspecifiedCondition = models.DictionaryEntry{
	Code:     "UNSPECIFIED",
	Label:    "Unspecified condition",
	Category: "unclassified",
}

func DefaultDictionaryEntries() []models.DictionaryEntry {
	return []models.DictionaryEntry{
		{Code: "ASTHMA", Label: "Asthma", Synonyms: []string{"asthma", "bronchial asthma", "asthmatic"}, Category: "respiratory"},
		{Code: "HYPERTENSION", Label: "Hypertension", Synonyms: []string{"hypertension", "high blood pressure", "htn"}, Category: "cardiovascular"},
		{Code: "DIABETES_TYPE2", Label: "Type 2 Diabetes", Synonyms: []string{"diabetes", "type 2 diabetes", "diabetes mellitus"}, Category: "endocrine"},
		{Code: "DIABETES_TYPE1", Label: "Type 1 Diabetes", Synonyms: []string{"type 1 diabetes", "insulin dependent diabetes"}, Category: "endocrine"},
		{Code: "COPD", Label: "Chronic Obstructive Pulmonary Disease", Synonyms: []string{"copd", "chronic obstructive pulmonary disease", "emphysema"}, Category: "respiratory"},
		{Code: "DEPRESSION", Label: "Depression", Synonyms: []string{"depression", "major depressive disorder", "mdd"}, Category: "mental health"},
		{Code: "ANXIETY", Label: "Anxiety Disorder", Synonyms: []string{"anxiety", "anxiety disorder", "generalized anxiety"}, Category: "mental health"},
		{Code: "ARTHRITIS", Label: "Arthritis", Synonyms: []string{"arthritis", "osteoarthritis", "rheumatoid arthritis"}, Category: "musculoskeletal"},
		{Code: "OBESITY", Label: "Obesity", Synonyms: []string{"obesity", "obese", "morbid obesity"}, Category: "metabolic"},
		{Code: "HEART_DISEASE", Label: "Heart Disease", Synonyms: []string{"heart disease", "coronary heart disease", "chd"}, Category: "cardiovascular"},
		{Code: "STROKE", Label: "Stroke", Synonyms: []string{"stroke", "cerebrovascular accident", "cva"}, Category: "neurological"},
		{Code: "CANCER", Label: "Cancer", Synonyms: []string{"cancer", "malignancy", "tumor"}, Category: "oncology"},
		{Code: "EPILEPSY", Label: "Epilepsy", Synonyms: []string{"epilepsy", "seizure disorder", "convulsions"}, Category: "neurological"},
		{Code: "KIDNEY_DISEASE", Label: "Kidney Disease", Synonyms: []string{"kidney disease", "renal disease", "ckd"}, Category: "renal"},
		{Code: "LIVER_DISEASE", Label: "Liver Disease", Synonyms: []string{"liver disease", "hepatic disease", "cirrhosis"}, Category: "hepatic"},
	}
}

// ConditionDictionary is the static table of canonical conditions. Entries
// keep catalog order; lowered label and synonyms are precomputed for matching.
type ConditionDictionary struct {
	entries []models.DictionaryEntry
	lowered [][]string
	byCode  map[string]int
}

func NewConditionDictionary(entries []models.DictionaryEntry) (*ConditionDictionary, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("condition dictionary is empty")
	}

	d := &ConditionDictionary{
		entries: make([]models.DictionaryEntry, len(entries)),
		lowered: make([][]string, len(entries)),
		byCode:  make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.Code == "" || e.Label == "" {
			return nil, fmt.Errorf("dictionary entry at index %d needs both code and label", i)
		}
		if _, dup := d.byCode[e.Code]; dup {
			return nil, fmt.Errorf("duplicate dictionary code %q", e.Code)
		}
		e.Synonyms = append([]string(nil), e.Synonyms...)
		d.entries[i] = e
		d.byCode[e.Code] = i

		terms := []string{strings.ToLower(e.Label)}
		for _, syn := range e.Synonyms {
			terms = append(terms, strings.ToLower(strings.TrimSpace(syn)))
		}
		d.lowered[i] = terms
	}
	return d, nil
}

// LoadConditionDictionary reads YAML entries from path, or returns the
// default dictionary when path is empty.
func LoadConditionDictionary(path string) (*ConditionDictionary, error) {
	if path == "" {
		return NewConditionDictionary(DefaultDictionaryEntries())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}

	var doc struct {
		Conditions []models.DictionaryEntry `yaml:"conditions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	return NewConditionDictionary(doc.Conditions)
}

// Search returns up to 10 entries whose label or a synonym contains query,
// case-insensitively, in catalog order. Queries shorter than 2 characters
// return nothing.
func (d *ConditionDictionary) Search(query string) []models.DictionarySearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []models.DictionarySearchResult{}
	if len([]rune(q)) < minSearchQueryLength {
		return results
	}

	for i, terms := range d.lowered {
		for _, term := range terms {
			if strings.Contains(term, q) {
				e := d.entries[i]
				results = append(results, models.DictionarySearchResult{
					Code:     e.Code,
					Label:    e.Label,
					Category: e.Category,
				})
				break
			}
		}
		if len(results) == maxSearchResults {
			break
		}
	}
	return results
}

func (d *ConditionDictionary) Entries() []models.DictionaryEntry {
	out := make([]models.DictionaryEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

func (d *ConditionDictionary) ByCode(code string) (models.DictionaryEntry, bool) {
	if code == UnspecifiedCondition.Code {
		return UnspecifiedCondition, true
	}
	i, ok := d.byCode[code]
	if !ok {
		return models.DictionaryEntry{}, false
	}
	return d.entries[i], true
}

func (d *ConditionDictionary) Fallback() models.DictionaryEntry {
	return UnspecifiedCondition
}
