package models

type QuestionType string

const (
	QuestionText       QuestionType = "text"
	QuestionNumber     QuestionType = "number"
	QuestionDate       QuestionType = "date"
	QuestionSelectOne  QuestionType = "selectOne"
	QuestionSelectMany QuestionType = "selectMany"
)

// Constraints bound an answer. Min and Max are value bounds for number questions
// and length bounds for text questions.
type Constraints struct {
	Required  bool     `json:"required" yaml:"required"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Sensitive bool     `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
}

type Question struct {
	ID          string       `json:"id" yaml:"id"`
	Type        QuestionType `json:"type" yaml:"type"`
	Prompt      string       `json:"prompt" yaml:"prompt"`
	HelpText    string       `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	Options     []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Constraints Constraints  `json:"constraints" yaml:"constraints"`
	Field       string       `json:"field" yaml:"field"`
}

// QuestionEnvelope is what the client renders for the next step of the interview.
type QuestionEnvelope struct {
	Question       *Question       `json:"question"`
	IsTerminal     bool            `json:"isTerminal"`
	Progress       float64         `json:"progress"`
	Decision       *Decision       `json:"decision,omitempty"`
	DecisionReason *string         `json:"decisionReason,omitempty"`
	PrefillContext *PrefillContext `json:"prefillContext,omitempty"`
}

type PrefillContext struct {
	ConfirmedConditions []string       `json:"confirmedConditions"`
	AdaptivePrompt      string         `json:"adaptivePrompt"`
	Prefill             *PrefillAnswer `json:"prefill,omitempty"`
}
