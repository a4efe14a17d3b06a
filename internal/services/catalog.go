package services

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/underwriting-intake/internal/models"
)

const (
	FieldFullName          = "fullName"
	FieldDateOfBirth       = "dateOfBirth"
	FieldGender            = "gender"
	FieldHeight            = "height"
	FieldWeight            = "weight"
	FieldSmoking           = "smoking"
	FieldMedicalConditions = "medicalConditions"
	FieldAnnualIncome      = "annualIncome"
	FieldCoverageAmount    = "coverageAmount"
	FieldPurpose           = "purpose"
)

func floatPtr(v float64) *float64 {
	return &v
}

// DefaultQuestions is the life insurance interview.
func DefaultQuestions() []models.Question {
	return []models.Question{
		{
			ID:          "q-001",
			Type:        models.QuestionText,
			Prompt:      "What is your full name as it appears on your official identification?",
			HelpText:    "Example: John Michael Smith",
			Constraints: models.Constraints{Required: true, Min: floatPtr(2), Max: floatPtr(100), Sensitive: true},
			Field:       FieldFullName,
		},
		{
			ID:          "q-002",
			Type:        models.QuestionDate,
			Prompt:      "What is your date of birth? (DD/MM/YYYY)",
			HelpText:    "Example: 12/06/1980",
			Constraints: models.Constraints{Required: true, Pattern: `^\d{2}/\d{2}/\d{4}$`},
			Field:       FieldDateOfBirth,
		},
		{
			ID:          "q-003",
			Type:        models.QuestionSelectOne,
			Prompt:      "What is your gender?",
			Options:     []string{"Male", "Female", "Other", "Prefer not to say"},
			Constraints: models.Constraints{Required: true},
			Field:       FieldGender,
		},
		{
			ID:          "q-004",
			Type:        models.QuestionNumber,
			Prompt:      "What is your height in centimeters?",
			HelpText:    "Example: 175",
			Constraints: models.Constraints{Required: true, Min: floatPtr(100), Max: floatPtr(250)},
			Field:       FieldHeight,
		},
		{
			ID:          "q-005",
			Type:        models.QuestionNumber,
			Prompt:      "What is your weight in kilograms?",
			HelpText:    "Example: 70",
			Constraints: models.Constraints{Required: true, Min: floatPtr(30), Max: floatPtr(300)},
			Field:       FieldWeight,
		},
		{
			ID:          "q-006",
			Type:        models.QuestionSelectOne,
			Prompt:      "Do you smoke?",
			Options:     []string{"Yes", "No"},
			Constraints: models.Constraints{Required: true},
			Field:       FieldSmoking,
		},
		{
			ID:          "q-007",
			Type:        models.QuestionSelectOne,
			Prompt:      "Do you have any pre-existing medical conditions?",
			Options:     []string{"Yes", "No"},
			Constraints: models.Constraints{Required: true},
			Field:       FieldMedicalConditions,
		},
		{
			ID:          "q-008",
			Type:        models.QuestionNumber,
			Prompt:      "What is your annual income in GBP?",
			HelpText:    "Example: 50000",
			Constraints: models.Constraints{Required: true, Min: floatPtr(0)},
			Field:       FieldAnnualIncome,
		},
		{
			ID:          "q-009",
			Type:        models.QuestionNumber,
			Prompt:      "What coverage amount (sum assured) are you seeking in GBP?",
			HelpText:    "Example: 500000",
			Constraints: models.Constraints{Required: true, Min: floatPtr(10000), Max: floatPtr(10000000)},
			Field:       FieldCoverageAmount,
		},
		{
			ID:          "q-010",
			Type:        models.QuestionSelectOne,
			Prompt:      "What is the primary purpose of this life insurance?",
			Options:     []string{"Family Protection", "Mortgage Protection", "Business Protection", "Estate Planning", "Other"},
			Constraints: models.Constraints{Required: true},
			Field:       FieldPurpose,
		},
	}
}

// QuestionCatalog is the immutable, ordered list of interview questions.
type QuestionCatalog struct {
	questions []models.Question
	byID      map[string]int
	byField   map[string]int
	patterns  map[string]*regexp.Regexp
}

func NewQuestionCatalog(questions []models.Question) (*QuestionCatalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("question catalog is empty")
	}

	c := &QuestionCatalog{
		questions: make([]models.Question, len(questions)),
		byID:      make(map[string]int, len(questions)),
		byField:   make(map[string]int, len(questions)),
		patterns:  make(map[string]*regexp.Regexp),
	}
	copy(c.questions, questions)

	for i, q := range c.questions {
		if q.ID == "" || q.Field == "" {
			return nil, fmt.Errorf("question at index %d needs both id and field", i)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		if _, dup := c.byField[q.Field]; dup {
			return nil, fmt.Errorf("duplicate question field %q", q.Field)
		}
		switch q.Type {
		case models.QuestionText, models.QuestionNumber, models.QuestionDate:
		case models.QuestionSelectOne, models.QuestionSelectMany:
			if len(q.Options) == 0 {
				return nil, fmt.Errorf("question %q of type %s has no options", q.ID, q.Type)
			}
		default:
			return nil, fmt.Errorf("question %q has unknown type %q", q.ID, q.Type)
		}
		if q.Constraints.Pattern != "" {
			re, err := regexp.Compile(q.Constraints.Pattern)
			if err != nil {
				return nil, fmt.Errorf("question %q has invalid pattern: %w", q.ID, err)
			}
			c.patterns[q.ID] = re
		}
		c.byID[q.ID] = i
		c.byField[q.Field] = i
	}

	return c, nil
}

// LoadQuestionCatalog reads a YAML catalog from path, or returns the default
// catalog when path is empty.
func LoadQuestionCatalog(path string) (*QuestionCatalog, error) {
	if path == "" {
		return NewQuestionCatalog(DefaultQuestions())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var doc struct {
		Questions []models.Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewQuestionCatalog(doc.Questions)
}

func (c *QuestionCatalog) Len() int {
	return len(c.questions)
}

// At returns a copy of the question at index i.
func (c *QuestionCatalog) At(i int) (models.Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return models.Question{}, false
	}
	return cloneQuestion(c.questions[i]), true
}

func (c *QuestionCatalog) IndexOf(questionID string) (int, bool) {
	i, ok := c.byID[questionID]
	return i, ok
}

func (c *QuestionCatalog) IndexOfField(field string) (int, bool) {
	i, ok := c.byField[field]
	return i, ok
}

// MedicalConditionsQuestion is the prefill target.
func (c *QuestionCatalog) MedicalConditionsQuestion() (models.Question, int, bool) {
	i, ok := c.byField[FieldMedicalConditions]
	if !ok {
		return models.Question{}, -1, false
	}
	return cloneQuestion(c.questions[i]), i, true
}

func (c *QuestionCatalog) pattern(questionID string) *regexp.Regexp {
	return c.patterns[questionID]
}

func cloneQuestion(q models.Question) models.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
