package models

import (
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCanceled  SessionStatus = "canceled"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionRefer  Decision = "refer"
	DecisionReject Decision = "reject"
)

// Session is one interview instance. It is only mutated by the orchestrator.
type Session struct {
	ID                   string        `json:"id"`
	TenantID             string        `json:"tenantId"`
	Status               SessionStatus `json:"status"`
	Answers              *Answers      `json:"answers"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	Progress             float64       `json:"progress"`
	Decision             *Decision     `json:"decision"`
	DecisionReason       *string       `json:"decisionReason"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
	CompletedAt          *time.Time    `json:"completedAt,omitempty"`
}

// IsClosed reports whether the session no longer accepts answers.
func (s *Session) IsClosed() bool {
	return s.Status == SessionCompleted || s.Status == SessionCanceled
}

// HasDecision reports whether a terminal decision was already recorded.
func (s *Session) HasDecision() bool {
	return s.Decision != nil
}
