package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	nhsNumberPattern = regexp.MustCompile(`\b\d{3}\s?\d{3}\s?\d{4}\b`)
	dobPattern       = regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{4}\b`)
	postcodePattern  = regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2}\b`)
	addressPattern   = regexp.MustCompile(`(?i)\b\d+[A-Z]?\s+[A-Z]+(?:\s+[A-Z]+)*\s+(?:Street|Road|Avenue|Lane|Drive|Close|Way|Gardens|Crescent|Place|Square|Terrace)\b`)
	emailPattern     = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
)

const (
	maskedNHSNumber = "••• ••• ••••"
	maskedDate      = "••/••/••••"
	maskedPostcode  = "•••••••"
	maskedAddress   = "•••• •••• ••••"
	maskedEmail     = "•••••@•••••.com"
)

// PHIRedactor masks identifiers in evidence snippets. Emails are only masked
// when RedactEmails is set.
type PHIRedactor struct {
	RedactEmails bool
}

func NewPHIRedactor(redactEmails bool) *PHIRedactor {
	return &PHIRedactor{RedactEmails: redactEmails}
}

func (r *PHIRedactor) Redact(text string) string {
	if text == "" {
		return text
	}
	out := nhsNumberPattern.ReplaceAllString(text, maskedNHSNumber)
	out = dobPattern.ReplaceAllString(out, maskedDate)
	out = postcodePattern.ReplaceAllString(out, maskedPostcode)
	out = addressPattern.ReplaceAllString(out, maskedAddress)
	if r.RedactEmails {
		out = emailPattern.ReplaceAllString(out, maskedEmail)
	}
	return out
}

func (r *PHIRedactor) ContainsPHI(text string) bool {
	return nhsNumberPattern.MatchString(text) ||
		dobPattern.MatchString(text) ||
		postcodePattern.MatchString(text) ||
		addressPattern.MatchString(text)
}

// MaskValue replaces every character of a sensitive answer with a bullet.
func MaskValue(s string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}
	return strings.Repeat("•", n)
}
