package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/metrics"
	"alfredoptarigan/underwriting-intake/internal/models"
	"alfredoptarigan/underwriting-intake/internal/repositories"
)

const defaultTenant = "default"

// PrefillSource supplies adaptive prompts and prefilled answers derived from
// confirmed document evidence.
type PrefillSource interface {
	GetAdaptivePrompt(ctx context.Context, sessionID, questionID string) (*models.PrefillContext, error)
	ConsumePrefill(ctx context.Context, sessionID string) error
}

// SessionOrchestrator owns the interview state machine. Every session
// mutation goes through the session repository's atomic update.
type SessionOrchestrator struct {
	sessions    repositories.SessionRepository
	transcripts repositories.TranscriptRepository
	catalog     *QuestionCatalog
	engine      *DecisionEngine
	prefill     PrefillSource
	now         func() time.Time
	log         *zap.Logger
}

func NewSessionOrchestrator(
	sessions repositories.SessionRepository,
	transcripts repositories.TranscriptRepository,
	catalog *QuestionCatalog,
	engine *DecisionEngine,
	prefill PrefillSource,
	log *zap.Logger,
) *SessionOrchestrator {
	return &SessionOrchestrator{
		sessions:    sessions,
		transcripts: transcripts,
		catalog:     catalog,
		engine:      engine,
		prefill:     prefill,
		now:         time.Now,
		log:         log.Named("orchestrator"),
	}
}

func (o *SessionOrchestrator) CreateSession(ctx context.Context, tenantID string) (*models.Session, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		tenantID = defaultTenant
	}

	now := o.now()
	session := &models.Session{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Status:    models.SessionActive,
		Answers:   models.NewAnswers(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	if err := o.transcripts.Create(ctx, session.ID); err != nil {
		return nil, err
	}
	o.appendTranscript(ctx, session.ID, models.TranscriptEntry{
		Role: models.RoleSystem,
		Text: "Session started",
		Meta: map[string]string{"tenantId": tenantID},
	})

	metrics.RecordSessionCreated(tenantID)
	o.log.Info("Session created", zap.String("session_id", session.ID), zap.String("tenant", tenantID))
	return session, nil
}

func (o *SessionOrchestrator) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := o.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, o.notFound(id, err)
	}
	return session, nil
}

// GetNextQuestion returns the question at the session's pointer. Once every
// question is answered it computes the decision exactly once and returns the
// same terminal envelope on every later call.
func (o *SessionOrchestrator) GetNextQuestion(ctx context.Context, id string) (*models.QuestionEnvelope, error) {
	var finalized bool
	session, err := o.sessions.Update(ctx, id, func(s *models.Session) error {
		finalized = false
		ensureAnswers(s)
		o.skipAnswered(s)

		if s.Status != models.SessionActive || s.CurrentQuestionIndex < o.catalog.Len() || s.HasDecision() {
			return nil
		}

		result, err := o.engine.Decide(s.Answers)
		if err != nil {
			return err
		}

		now := o.now()
		decision := result.Decision
		reason := result.Reason
		s.Status = models.SessionCompleted
		s.Decision = &decision
		s.DecisionReason = &reason
		s.Progress = 1.0
		s.CompletedAt = &now
		s.UpdatedAt = now
		finalized = true
		return nil
	})
	if err != nil {
		return nil, o.notFound(id, err)
	}

	if finalized {
		o.appendTranscript(ctx, id, models.TranscriptEntry{
			Role: models.RoleRules,
			Text: fmt.Sprintf("Decision: %s. Reason: %s", strings.ToUpper(string(*session.Decision)), *session.DecisionReason),
		})
		metrics.RecordDecision(string(*session.Decision))
		o.log.Info("Session decided",
			zap.String("session_id", id),
			zap.String("decision", string(*session.Decision)),
		)
	}

	return o.envelope(ctx, session), nil
}

// SubmitAnswer validates and records the answer to the current question and
// returns the next envelope. An answer with meta.source "prefill" and a list
// value is recorded for the medical conditions field instead; it moves the
// pointer only when the pointer sits on that question.
func (o *SessionOrchestrator) SubmitAnswer(ctx context.Context, id string, req models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	var (
		entry          models.TranscriptEntry
		prefillApplied bool
	)

	_, err := o.sessions.Update(ctx, id, func(s *models.Session) error {
		prefillApplied = false
		ensureAnswers(s)

		if s.IsClosed() {
			return apperrors.SessionClosed(id)
		}

		if isPrefillSubmission(req) {
			e, err := o.applyPrefill(s, req)
			if err != nil {
				return err
			}
			entry = e
			prefillApplied = true
			return nil
		}

		e, err := o.applyAnswer(s, req)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrInvalidAnswerFormat) {
			metrics.RecordAnswer("rejected")
		}
		return nil, o.notFound(id, err)
	}
	metrics.RecordAnswer("accepted")

	entry.Timestamp = o.now()
	o.appendTranscript(ctx, id, entry)

	if prefillApplied && o.prefill != nil {
		if err := o.prefill.ConsumePrefill(ctx, id); err != nil {
			o.log.Warn("Failed to mark prefill consumed", zap.String("session_id", id), zap.Error(err))
		}
	}

	next, err := o.GetNextQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !next.IsTerminal && next.Question != nil {
		o.appendTranscript(ctx, id, models.TranscriptEntry{
			Role: models.RoleAssistant,
			Text: next.Question.Prompt,
			Meta: map[string]string{"questionId": next.Question.ID},
		})
	}

	return &models.SubmitAnswerResponse{Accepted: true, NextQuestion: next}, nil
}

func (o *SessionOrchestrator) applyAnswer(s *models.Session, req models.SubmitAnswerRequest) (models.TranscriptEntry, error) {
	q, ok := o.catalog.At(s.CurrentQuestionIndex)
	if !ok {
		return models.TranscriptEntry{}, apperrors.InvalidQuestion(req.QuestionID, "")
	}
	if req.QuestionID != q.ID {
		return models.TranscriptEntry{}, apperrors.InvalidQuestion(req.QuestionID, q.ID)
	}

	value, err := ValidateAnswer(q, o.catalog.pattern(q.ID), req.Answer)
	if err != nil {
		return models.TranscriptEntry{}, err
	}

	s.Answers.Set(q.Field, value)
	s.CurrentQuestionIndex++
	o.touch(s)

	text := formatAnswer(value)
	entry := models.TranscriptEntry{
		Role: models.RoleUser,
		Text: text,
		Meta: map[string]string{"questionId": q.ID},
	}
	if q.Constraints.Sensitive {
		entry.Text = MaskValue(text)
		entry.Redacted = true
	}
	if req.InputMode != "" {
		entry.Meta["inputMode"] = req.InputMode
	}
	return entry, nil
}

func (o *SessionOrchestrator) applyPrefill(s *models.Session, req models.SubmitAnswerRequest) (models.TranscriptEntry, error) {
	q, idx, ok := o.catalog.MedicalConditionsQuestion()
	if !ok {
		return models.TranscriptEntry{}, apperrors.BadRequest("catalog has no medical conditions question")
	}
	if req.QuestionID != "" && req.QuestionID != q.ID {
		return models.TranscriptEntry{}, apperrors.InvalidQuestion(req.QuestionID, q.ID)
	}

	labels, ok := stringList(req.Answer)
	if !ok {
		return models.TranscriptEntry{}, apperrors.InvalidAnswerFormat(q.Field, "prefill answer must be a list of condition labels")
	}
	labels = uniqueFold(trimAll(labels))
	if len(labels) == 0 {
		return models.TranscriptEntry{}, apperrors.Validation("Answer failed validation", apperrors.FieldError{
			QuestionID: q.ID,
			Field:      q.Field,
			Message:    "At least one condition is required",
		})
	}

	s.Answers.Set(q.Field, labels)
	if s.CurrentQuestionIndex == idx {
		s.CurrentQuestionIndex++
	}
	o.touch(s)

	meta := map[string]string{
		"questionId": q.ID,
		"source":     models.SourcePrefill,
	}
	if req.Meta != nil && len(req.Meta.EvidenceRefs) > 0 {
		meta["evidenceRefs"] = strings.Join(req.Meta.EvidenceRefs, ",")
	}
	return models.TranscriptEntry{
		Role: models.RoleUser,
		Text: strings.Join(labels, ", "),
		Meta: meta,
	}, nil
}

// EndSession closes the session without computing a decision.
func (o *SessionOrchestrator) EndSession(ctx context.Context, id string) (*models.EndSessionResponse, error) {
	var ended bool
	session, err := o.sessions.Update(ctx, id, func(s *models.Session) error {
		ended = s.Status == models.SessionActive
		now := o.now()
		s.Status = models.SessionCompleted
		s.Progress = 1.0
		if s.CompletedAt == nil {
			s.CompletedAt = &now
		}
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, o.notFound(id, err)
	}

	if ended {
		o.appendTranscript(ctx, id, models.TranscriptEntry{Role: models.RoleSystem, Text: "Session ended"})
		o.log.Info("Session ended", zap.String("session_id", id))
	}

	return &models.EndSessionResponse{ID: session.ID, Status: session.Status}, nil
}

func (o *SessionOrchestrator) GetTranscript(ctx context.Context, id string) (*models.Transcript, error) {
	transcript, err := o.transcripts.FindBySessionID(ctx, id)
	if err != nil {
		return nil, o.notFound(id, err)
	}
	if transcript.Items == nil {
		transcript.Items = []models.TranscriptEntry{}
	}
	return transcript, nil
}

func (o *SessionOrchestrator) envelope(ctx context.Context, s *models.Session) *models.QuestionEnvelope {
	if s.IsClosed() || s.CurrentQuestionIndex >= o.catalog.Len() {
		return &models.QuestionEnvelope{
			IsTerminal:     true,
			Progress:       1.0,
			Decision:       s.Decision,
			DecisionReason: s.DecisionReason,
		}
	}

	q, _ := o.catalog.At(s.CurrentQuestionIndex)
	env := &models.QuestionEnvelope{
		Question: &q,
		Progress: s.Progress,
	}

	if o.prefill != nil {
		pc, err := o.prefill.GetAdaptivePrompt(ctx, s.ID, q.ID)
		if err != nil {
			o.log.Warn("Adaptive prompt lookup failed", zap.String("session_id", s.ID), zap.Error(err))
		} else if pc != nil {
			q.Prompt = pc.AdaptivePrompt
			env.PrefillContext = pc
		}
	}
	return env
}

// skipAnswered moves the pointer past questions whose field a prefill has
// already answered.
func (o *SessionOrchestrator) skipAnswered(s *models.Session) {
	moved := false
	for s.CurrentQuestionIndex < o.catalog.Len() {
		q, _ := o.catalog.At(s.CurrentQuestionIndex)
		if !s.Answers.Has(q.Field) {
			break
		}
		s.CurrentQuestionIndex++
		moved = true
	}
	if moved {
		o.touch(s)
	}
}

func (o *SessionOrchestrator) touch(s *models.Session) {
	s.Progress = float64(s.CurrentQuestionIndex) / float64(o.catalog.Len()+1)
	s.UpdatedAt = o.now()
}

func (o *SessionOrchestrator) appendTranscript(ctx context.Context, id string, entry models.TranscriptEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = o.now()
	}
	if err := o.transcripts.Append(ctx, id, entry); err != nil {
		o.log.Error("Failed to append transcript entry", zap.String("session_id", id), zap.Error(err))
	}
}

func (o *SessionOrchestrator) notFound(id string, err error) error {
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return apperrors.SessionNotFound(id)
	}
	return err
}

func isPrefillSubmission(req models.SubmitAnswerRequest) bool {
	if req.Meta == nil || req.Meta.Source != models.SourcePrefill {
		return false
	}
	switch req.Answer.(type) {
	case []string, []any:
		return true
	}
	return false
}

func ensureAnswers(s *models.Session) {
	if s.Answers == nil {
		s.Answers = models.NewAnswers()
	}
}

func formatAnswer(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ", ")
	}
	return fmt.Sprint(v)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
