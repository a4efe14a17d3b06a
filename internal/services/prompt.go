package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"alfredoptarigan/underwriting-intake/internal/models"
)

const conditionExtractionSystemPrompt = "You are a medical information extraction system. " +
	"Extract medical conditions from text. Return a JSON object with a \"conditions\" array."

const imageTranscriptionPrompt = "Extract all text from this medical document. " +
	"Return only the extracted text without any formatting or explanation."

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// SystemPrompt is sent as the system role where the provider supports one.
func (pb *PromptBuilder) SystemPrompt() string {
	return conditionExtractionSystemPrompt
}

// BuildConditionExtractionPrompt asks for the conditions found in text,
// truncated to maxChars runes.
func (pb *PromptBuilder) BuildConditionExtractionPrompt(text string, maxChars int) string {
	return fmt.Sprintf(`Extract medical conditions from the following medical document text.
Return a JSON object with a "conditions" array. Each condition should have:
- originalTerm: the exact term found in the text
- confidence: confidence score 0-1
- status: "active" or "resolved" if mentioned
- severity: "mild", "moderate", or "severe" if mentioned
- onsetDate: date in YYYY-MM-DD format if mentioned

Medical text:
%s

Return format: {"conditions": [{"originalTerm": "...", "confidence": 0.8, ...}]}`,
		truncateRunes(text, maxChars))
}

func (pb *PromptBuilder) BuildImageTranscriptionPrompt() string {
	return imageTranscriptionPrompt
}

type conditionsEnvelope struct {
	Conditions []struct {
		OriginalTerm string   `json:"originalTerm"`
		Confidence   *float64 `json:"confidence"`
		Status       string   `json:"status"`
		Severity     string   `json:"severity"`
		OnsetDate    string   `json:"onsetDate"`
	} `json:"conditions"`
}

// parseConditionsResponse decodes a provider reply into extracted terms,
// dropping entries without a term and clamping confidence into [0,1].
func parseConditionsResponse(response string) ([]models.ExtractedTerm, error) {
	var env conditionsEnvelope
	if err := parseJSONResponse(response, &env); err != nil {
		return nil, err
	}

	terms := make([]models.ExtractedTerm, 0, len(env.Conditions))
	for _, c := range env.Conditions {
		term := strings.TrimSpace(c.OriginalTerm)
		if term == "" {
			continue
		}
		confidence := defaultConfidence
		if c.Confidence != nil {
			confidence = clamp01(*c.Confidence)
		}
		terms = append(terms, models.ExtractedTerm{
			OriginalTerm: term,
			Confidence:   confidence,
			Status:       strings.ToLower(strings.TrimSpace(c.Status)),
			Severity:     strings.TrimSpace(c.Severity),
			OnsetDate:    strings.TrimSpace(c.OnsetDate),
		})
	}
	return terms, nil
}

func parseJSONResponse(response string, target interface{}) error {
	// LLMs sometimes wrap the JSON in markdown
	jsonStr := extractJSON(response)

	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w\nResponse: %s", err, response)
	}

	return nil
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}

func truncateRunes(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max])
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
