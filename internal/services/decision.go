package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/models"
)

const DateOfBirthLayout = "02/01/2006"

const (
	ReasonLowRisk      = "Low risk profile"
	ReasonModerateRisk = "Moderate risk profile - requires manual review"
	ReasonHighRisk     = "High risk profile"
)

const (
	referThreshold  = 30
	rejectThreshold = 70
)

type DecisionResult struct {
	Decision  models.Decision `json:"decision"`
	Reason    string          `json:"reason"`
	RiskScore int             `json:"riskScore"`
}

// DecisionEngine scores a completed answer set. The clock only feeds the age
// calculation, so results are reproducible for a fixed now.
type DecisionEngine struct {
	now func() time.Time
}

func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{now: time.Now}
}

func NewDecisionEngineAt(now func() time.Time) *DecisionEngine {
	return &DecisionEngine{now: now}
}

func (e *DecisionEngine) Decide(answers *models.Answers) (DecisionResult, error) {
	return Decide(answers, e.now())
}

// Decide computes the underwriting outcome for answers as of asOf.
func Decide(answers *models.Answers, asOf time.Time) (DecisionResult, error) {
	if answers == nil {
		answers = models.NewAnswers()
	}

	dobRaw, _ := answers.Get(FieldDateOfBirth)
	dobStr, _ := dobRaw.(string)
	dob, err := time.Parse(DateOfBirthLayout, strings.TrimSpace(dobStr))
	if err != nil {
		return DecisionResult{}, apperrors.InvalidAnswerFormat(FieldDateOfBirth,
			fmt.Sprintf("date of birth %q must be in DD/MM/YYYY format", dobStr))
	}

	score := 0

	age := CalculateAge(dob, asOf)
	switch {
	case age > 50:
		score += 30
	case age > 30:
		score += 15
	default:
		score += 5
	}

	height := answerFloat(answers, FieldHeight)
	weight := answerFloat(answers, FieldWeight)
	if bmi, ok := CalculateBMI(weight, height); ok {
		switch {
		case bmi > 30:
			score += 25
		case bmi > 25:
			score += 15
		case bmi < 18.5:
			score += 10
		}
	}

	if isAffirmative(answerValue(answers, FieldSmoking)) {
		score += 40
	}
	if hasDeclaredConditions(answerValue(answers, FieldMedicalConditions)) {
		score += 30
	}

	ratio := CoverageRatio(answerFloat(answers, FieldCoverageAmount), answerFloat(answers, FieldAnnualIncome))
	switch {
	case ratio > 20:
		score += 20
	case ratio > 15:
		score += 10
	}

	result := DecisionResult{RiskScore: score}
	switch {
	case score < referThreshold:
		result.Decision, result.Reason = models.DecisionAccept, ReasonLowRisk
	case score < rejectThreshold:
		result.Decision, result.Reason = models.DecisionRefer, ReasonModerateRisk
	default:
		result.Decision, result.Reason = models.DecisionReject, ReasonHighRisk
	}
	return result, nil
}

// CalculateAge returns whole years between dob and asOf, decremented when the
// birthday has not yet been reached in asOf's year.
func CalculateAge(dob, asOf time.Time) int {
	age := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		age--
	}
	return age
}

// CalculateBMI reports false when height is not positive.
func CalculateBMI(weightKg, heightCm float64) (float64, bool) {
	if heightCm <= 0 {
		return 0, false
	}
	m := heightCm / 100
	return weightKg / (m * m), true
}

// CoverageRatio is +Inf when income is zero or negative.
func CoverageRatio(coverage, income float64) float64 {
	if income <= 0 {
		return math.Inf(1)
	}
	return coverage / income
}

func answerValue(answers *models.Answers, field string) any {
	v, _ := answers.Get(field)
	return v
}

func answerFloat(answers *models.Answers, field string) float64 {
	f, _ := toFloat(answerValue(answers, field))
	return f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func isAffirmative(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "yes")
	}
	return false
}

// hasDeclaredConditions accepts the Yes/No answer and the list of condition
// labels a prefill stores under the same field.
func hasDeclaredConditions(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		return s != "" && s != "no" && s != "none"
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	}
	return false
}
