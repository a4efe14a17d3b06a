package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/models"
)

var decisionDate = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func baseProfile() *models.Answers {
	a := models.NewAnswers()
	a.Set(FieldDateOfBirth, "01/01/1990")
	a.Set(FieldHeight, 175.0)
	a.Set(FieldWeight, 70.0)
	a.Set(FieldSmoking, "No")
	a.Set(FieldMedicalConditions, "No")
	a.Set(FieldAnnualIncome, 50000.0)
	a.Set(FieldCoverageAmount, 200000.0)
	return a
}

func TestDecide_lowRiskAccepts(t *testing.T) {
	got, err := Decide(baseProfile(), decisionDate)
	require.NoError(t, err)

	assert.Equal(t, 15, got.RiskScore)
	assert.Equal(t, models.DecisionAccept, got.Decision)
	assert.Equal(t, ReasonLowRisk, got.Reason)
}

func TestDecide_smokerWithConditionsRejects(t *testing.T) {
	a := baseProfile()
	a.Set(FieldSmoking, "Yes")
	a.Set(FieldMedicalConditions, "Yes")

	got, err := Decide(a, decisionDate)
	require.NoError(t, err)

	assert.Equal(t, 85, got.RiskScore)
	assert.Equal(t, models.DecisionReject, got.Decision)
	assert.Equal(t, ReasonHighRisk, got.Reason)
}

func TestDecide_prefilledConditionListCounts(t *testing.T) {
	a := baseProfile()
	a.Set(FieldMedicalConditions, []string{"Asthma"})

	got, err := Decide(a, decisionDate)
	require.NoError(t, err)

	assert.Equal(t, 45, got.RiskScore)
	assert.Equal(t, models.DecisionRefer, got.Decision)
	assert.Equal(t, ReasonModerateRisk, got.Reason)
}

func TestDecide_zeroIncomeHitsTopRatioTier(t *testing.T) {
	a := baseProfile()
	a.Set(FieldAnnualIncome, 0.0)

	got, err := Decide(a, decisionDate)
	require.NoError(t, err)
	assert.Equal(t, 35, got.RiskScore)
	assert.Equal(t, models.DecisionRefer, got.Decision)
}

func TestDecide_bmiTiers(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		want   int
	}{
		{"underweight", 50, 25},
		{"normal", 70, 15},
		{"overweight", 80, 30},
		{"obese", 100, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := baseProfile()
			a.Set(FieldWeight, tt.weight)
			got, err := Decide(a, decisionDate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.RiskScore)
		})
	}
}

func TestDecide_ageAndRatioFenceposts(t *testing.T) {
	// base profile scores 15: age 35, BMI ~22.9, ratio 4
	tests := []struct {
		name  string
		field string
		value any
		want  int
	}{
		{"age 30", FieldDateOfBirth, "02/06/1994", 5},
		{"age 31", FieldDateOfBirth, "01/06/1994", 15},
		{"age 50", FieldDateOfBirth, "02/06/1974", 15},
		{"age 51", FieldDateOfBirth, "01/06/1974", 30},
		{"ratio exactly 15", FieldCoverageAmount, 750000.0, 15},
		{"ratio just over 15", FieldCoverageAmount, 750050.0, 25},
		{"ratio exactly 20", FieldCoverageAmount, 1000000.0, 25},
		{"ratio just over 20", FieldCoverageAmount, 1000050.0, 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := baseProfile()
			a.Set(tt.field, tt.value)
			got, err := Decide(a, decisionDate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.RiskScore)
		})
	}
}

func TestDecide_bmiFenceposts(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		want   int
	}{
		{"exactly 18.5", 74, 15},
		{"just under 18.5", 73.9, 25},
		{"exactly 25", 100, 15},
		{"just over 25", 100.1, 30},
		{"exactly 30", 120, 30},
		{"just over 30", 120.1, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := baseProfile()
			a.Set(FieldHeight, 200.0)
			a.Set(FieldWeight, tt.weight)
			got, err := Decide(a, decisionDate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.RiskScore)
		})
	}
}

func TestDecide_bmiExactly25Accepts(t *testing.T) {
	a := baseProfile()
	a.Set(FieldHeight, 200.0)
	a.Set(FieldWeight, 100.0)

	got, err := Decide(a, decisionDate)
	require.NoError(t, err)
	assert.Equal(t, 15, got.RiskScore)
	assert.Equal(t, models.DecisionAccept, got.Decision)
}

func TestDecide_malformedDateOfBirth(t *testing.T) {
	a := baseProfile()
	a.Set(FieldDateOfBirth, "1990-01-01")

	_, err := Decide(a, decisionDate)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAnswerFormat)
}

func TestDecisionEngine_usesClock(t *testing.T) {
	engine := NewDecisionEngineAt(func() time.Time { return decisionDate })
	got, err := engine.Decide(baseProfile())
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAccept, got.Decision)
}

func TestCalculateAge(t *testing.T) {
	dob := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 25, CalculateAge(dob, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, CalculateAge(dob, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)))
}

func TestCalculateBMI(t *testing.T) {
	bmi, ok := CalculateBMI(70, 175)
	require.True(t, ok)
	assert.InDelta(t, 22.86, bmi, 0.01)

	_, ok = CalculateBMI(70, 0)
	assert.False(t, ok)
}

func TestCoverageRatio(t *testing.T) {
	assert.Equal(t, 4.0, CoverageRatio(200000, 50000))
	assert.True(t, math.IsInf(CoverageRatio(1, 0), 1))
}
