package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/models"
)

const (
	MatchExact     = "exact"
	MatchSubstring = "substring"
	MatchSemantic  = "semantic"
	MatchFallback  = "fallback"
)

type MatchResult struct {
	Entry      models.DictionaryEntry
	Method     string
	Score      float64
	Unresolved bool
}

// SemanticMatcher resolves a term to the nearest dictionary code. An empty
// code with a nil error means nothing was close enough.
type SemanticMatcher interface {
	NearestCondition(ctx context.Context, term string) (code string, score float64, err error)
}

// ConditionMatcher resolves extracted terms against the dictionary: exact
// label or synonym, then substring in either direction, then the semantic
// index when configured, then the unspecified entry.
type ConditionMatcher struct {
	dict     *ConditionDictionary
	semantic SemanticMatcher
	log      *zap.Logger
}

func NewConditionMatcher(dict *ConditionDictionary, semantic SemanticMatcher, log *zap.Logger) *ConditionMatcher {
	return &ConditionMatcher{dict: dict, semantic: semantic, log: log.Named("matcher")}
}

func (m *ConditionMatcher) Match(ctx context.Context, term string) MatchResult {
	q := strings.ToLower(strings.TrimSpace(term))

	if q != "" {
		for i, terms := range m.dict.lowered {
			for _, t := range terms {
				if t == q {
					return MatchResult{Entry: m.dict.entries[i], Method: MatchExact, Score: 1}
				}
			}
		}
	}

	if len([]rune(q)) >= minSearchQueryLength {
		// the dictionary term contains the extracted term
		for i, terms := range m.dict.lowered {
			for _, t := range terms {
				if strings.Contains(t, q) {
					return MatchResult{Entry: m.dict.entries[i], Method: MatchSubstring}
				}
			}
		}

		// the extracted term contains a dictionary term; longest wins
		best, bestLen := -1, 0
		for i, terms := range m.dict.lowered {
			for _, t := range terms {
				if t != "" && len(t) > bestLen && strings.Contains(q, t) {
					best, bestLen = i, len(t)
				}
			}
		}
		if best >= 0 {
			return MatchResult{Entry: m.dict.entries[best], Method: MatchSubstring}
		}
	}

	if m.semantic != nil && q != "" {
		code, score, err := m.semantic.NearestCondition(ctx, term)
		switch {
		case err != nil:
			m.log.Debug("Semantic match failed", zap.String("term", term), zap.Error(err))
		case code != "":
			if entry, ok := m.dict.ByCode(code); ok {
				return MatchResult{Entry: entry, Method: MatchSemantic, Score: score}
			}
		}
	}

	return MatchResult{Entry: m.dict.Fallback(), Method: MatchFallback, Unresolved: true}
}
