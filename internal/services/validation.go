package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/models"
)

// ValidateAnswer checks value against q and returns the normalized value to
// store: trimmed strings, float64 numbers, canonical option spellings.
func ValidateAnswer(q models.Question, pattern *regexp.Regexp, value any) (any, error) {
	fail := func(format string, args ...any) error {
		msg := fmt.Sprintf(format, args...)
		return apperrors.Validation("Answer failed validation", apperrors.FieldError{
			QuestionID: q.ID,
			Field:      q.Field,
			Message:    msg,
		})
	}

	if isEmptyAnswer(value) {
		if q.Constraints.Required {
			return nil, fail("This field is required")
		}
		return nil, nil
	}

	switch q.Type {
	case models.QuestionText:
		s, ok := value.(string)
		if !ok {
			return nil, fail("Expected a text answer")
		}
		s = strings.TrimSpace(s)
		n := float64(utf8.RuneCountInString(s))
		if q.Constraints.Min != nil && n < *q.Constraints.Min {
			return nil, fail("Must be at least %d characters", int(*q.Constraints.Min))
		}
		if q.Constraints.Max != nil && n > *q.Constraints.Max {
			return nil, fail("Must be at most %d characters", int(*q.Constraints.Max))
		}
		if pattern != nil && !pattern.MatchString(s) {
			return nil, fail("Invalid format")
		}
		return s, nil

	case models.QuestionNumber:
		f, ok := toFloat(value)
		if !ok {
			return nil, fail("Expected a number")
		}
		if q.Constraints.Min != nil && f < *q.Constraints.Min {
			return nil, fail("Must be at least %s", formatBound(*q.Constraints.Min))
		}
		if q.Constraints.Max != nil && f > *q.Constraints.Max {
			return nil, fail("Must be at most %s", formatBound(*q.Constraints.Max))
		}
		return f, nil

	case models.QuestionDate:
		s, ok := value.(string)
		if !ok {
			return nil, fail("Expected a date in DD/MM/YYYY format")
		}
		s = strings.TrimSpace(s)
		if pattern != nil && !pattern.MatchString(s) {
			return nil, fail("Expected a date in DD/MM/YYYY format")
		}
		if _, err := time.Parse(DateOfBirthLayout, s); err != nil {
			return nil, fail("%q is not a valid calendar date", s)
		}
		return s, nil

	case models.QuestionSelectOne:
		s, ok := value.(string)
		if !ok {
			return nil, fail("Expected one of: %s", strings.Join(q.Options, ", "))
		}
		opt, ok := matchOption(q.Options, s)
		if !ok {
			return nil, fail("Expected one of: %s", strings.Join(q.Options, ", "))
		}
		return opt, nil

	case models.QuestionSelectMany:
		items, ok := stringList(value)
		if !ok {
			return nil, fail("Expected a list of options")
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			opt, ok := matchOption(q.Options, item)
			if !ok {
				return nil, fail("%q is not one of: %s", item, strings.Join(q.Options, ", "))
			}
			out = append(out, opt)
		}
		return out, nil
	}

	return nil, fail("Unsupported question type %q", q.Type)
}

func isEmptyAnswer(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

func matchOption(options []string, value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, opt := range options {
		if strings.EqualFold(opt, value) {
			return opt, true
		}
	}
	return "", false
}

// stringList accepts []string or a decoded JSON array of strings.
func stringList(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func formatBound(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
