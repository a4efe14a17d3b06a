package models

import "time"

type CreateSessionRequest struct {
	TenantID string `json:"tenantId"`
}

type AnswerMeta struct {
	Source       string   `json:"source,omitempty"`
	EvidenceRefs []string `json:"evidenceRefs,omitempty"`
}

type SubmitAnswerRequest struct {
	QuestionID string      `json:"questionId"`
	Answer     any         `json:"answer"`
	InputMode  string      `json:"inputMode,omitempty"`
	Meta       *AnswerMeta `json:"meta,omitempty"`
}

type SubmitAnswerResponse struct {
	Accepted     bool              `json:"accepted"`
	NextQuestion *QuestionEnvelope `json:"nextQuestion"`
}

type EndSessionResponse struct {
	ID     string        `json:"id"`
	Status SessionStatus `json:"status"`
}

type UploadResponse struct {
	FileID  string     `json:"fileId"`
	Status  FileStatus `json:"status"`
	Message string     `json:"message"`
}

type SummaryResponse struct {
	SessionID        string               `json:"sessionId"`
	Status           ExtractionStatus     `json:"status"`
	ExtractionStatus ExtractionStatus     `json:"extractionStatus"`
	Candidates       []CandidateCondition `json:"candidates"`
	CompletedAt      *time.Time           `json:"completedAt,omitempty"`
	Message          string               `json:"message,omitempty"`
}

type ConfirmationRequest struct {
	SessionID string               `json:"sessionId"`
	Confirmed []ConfirmedCondition `json:"confirmed"`
	Rejected  []string             `json:"rejected"`
	ManualAdd []ManualCondition    `json:"manualAdd"`
}

type ConfirmationResponse struct {
	SessionID      string          `json:"sessionId"`
	ConfirmedCount int             `json:"confirmedCount"`
	RejectedCount  int             `json:"rejectedCount"`
	Prefill        []PrefillAnswer `json:"prefill"`
}
