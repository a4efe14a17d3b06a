package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSemantic struct {
	code  string
	score float64
	err   error
	calls int
}

func (f *fakeSemantic) NearestCondition(_ context.Context, _ string) (string, float64, error) {
	f.calls++
	return f.code, f.score, f.err
}

func TestConditionMatcher(t *testing.T) {
	dict, err := LoadConditionDictionary("")
	require.NoError(t, err)
	m := NewConditionMatcher(dict, nil, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		term       string
		wantCode   string
		wantMethod string
	}{
		{"Asthma", "ASTHMA", MatchExact},
		{"  high blood pressure ", "HYPERTENSION", MatchExact},
		{"blood pressure", "HYPERTENSION", MatchSubstring},
		{"severe bronchial asthma attacks", "ASTHMA", MatchSubstring},
		{"chronic type 2 diabetes mellitus", "DIABETES_TYPE2", MatchSubstring},
		{"broken leg", "UNSPECIFIED", MatchFallback},
		{"", "UNSPECIFIED", MatchFallback},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := m.Match(ctx, tt.term)
			assert.Equal(t, tt.wantCode, got.Entry.Code)
			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Equal(t, tt.wantMethod == MatchFallback, got.Unresolved)
		})
	}
}

func TestConditionMatcher_semantic(t *testing.T) {
	dict, err := LoadConditionDictionary("")
	require.NoError(t, err)
	ctx := context.Background()

	semantic := &fakeSemantic{code: "HEART_DISEASE", score: 0.91}
	got := NewConditionMatcher(dict, semantic, zap.NewNop()).Match(ctx, "angina")
	assert.Equal(t, "HEART_DISEASE", got.Entry.Code)
	assert.Equal(t, MatchSemantic, got.Method)
	assert.InDelta(t, 0.91, got.Score, 1e-9)

	// exact matches never reach the index
	semantic.calls = 0
	NewConditionMatcher(dict, semantic, zap.NewNop()).Match(ctx, "asthma")
	assert.Zero(t, semantic.calls)

	failing := &fakeSemantic{err: errors.New("index down")}
	got = NewConditionMatcher(dict, failing, zap.NewNop()).Match(ctx, "angina")
	assert.Equal(t, "UNSPECIFIED", got.Entry.Code)
	assert.True(t, got.Unresolved)

	unknown := &fakeSemantic{code: "NOT_IN_DICT", score: 0.99}
	got = NewConditionMatcher(dict, unknown, zap.NewNop()).Match(ctx, "angina")
	assert.Equal(t, MatchFallback, got.Method)
}
