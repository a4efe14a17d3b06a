package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/models"
	"alfredoptarigan/underwriting-intake/internal/repositories"
)

func TestIntake_unionAcrossFiles(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCandidates{byFile: map[string][]models.CandidateCondition{
		"f1": {candidate("c1", "f1", "ASTHMA", "Asthma", 1, 0.9)},
		"f2": {candidate("c2", "f2", "HYPERTENSION", "Hypertension", 2, 0.8)},
	}}
	h := newHarness(t, fake, IntakeOptions{})

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "f1"))
	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "f2"))
	assert.Len(t, h.queue.tasks, 2)

	require.NoError(t, h.coordinator.RunExtraction(ctx, "f1", "s1", nil, MimeText))

	summary, err := h.coordinator.GetSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionProcessing, summary.Status)
	assert.Len(t, summary.Candidates, 1)

	require.NoError(t, h.coordinator.RunExtraction(ctx, "f2", "s1", nil, MimeText))
	// a repeated result for the same file does not duplicate candidates
	_ = h.coordinator.RunExtraction(ctx, "f1", "s1", nil, MimeText)

	summary, err = h.coordinator.GetSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionCompleted, summary.Status)
	assert.Equal(t, summary.Status, summary.ExtractionStatus)
	assert.NotNil(t, summary.CompletedAt)

	ids := []string{}
	for _, c := range summary.Candidates {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
}

func TestIntake_partialFailureStillCompletes(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCandidates{
		byFile: map[string][]models.CandidateCondition{"ok": {candidate("c1", "ok", "ASTHMA", "Asthma", 1, 0.9)}},
		errs:   map[string]error{"bad": errors.New("provider exploded")},
	}
	h := newHarness(t, fake, IntakeOptions{})

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "bad"))
	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "ok"))

	assert.Error(t, h.coordinator.RunExtraction(ctx, "bad", "s1", nil, MimeText))
	require.NoError(t, h.coordinator.RunExtraction(ctx, "ok", "s1", nil, MimeText))

	summary, err := h.coordinator.GetSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionCompleted, summary.Status)
	assert.Len(t, summary.Candidates, 1)
}

func TestIntake_allFilesFailed(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCandidates{errs: map[string]error{"bad": errors.New("provider exploded")}}
	h := newHarness(t, fake, IntakeOptions{})

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "bad"))
	assert.Error(t, h.coordinator.RunExtraction(ctx, "bad", "s1", nil, MimeText))

	summary, err := h.coordinator.GetSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionFailed, summary.Status)
	assert.Contains(t, summary.Message, "provider exploded")

	// a failed job is never reopened by a later upload
	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "late"))
	summary, err = h.coordinator.GetSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionFailed, summary.Status)
}

func TestIntake_completedJobReopensOnUpload(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCandidates{byFile: map[string][]models.CandidateCondition{
		"f1": {candidate("c1", "f1", "ASTHMA", "Asthma", 1, 0.9)},
	}}
	h := newHarness(t, fake, IntakeOptions{})

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "f1"))
	require.NoError(t, h.coordinator.RunExtraction(ctx, "f1", "s1", nil, MimeText))
	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "f2"))

	summary, err := h.coordinator.GetSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionProcessing, summary.Status)
	assert.Nil(t, summary.CompletedAt)
	assert.Len(t, summary.Candidates, 1)
}

func TestIntake_summaryWithoutJob(t *testing.T) {
	h := newHarness(t, &fakeCandidates{}, IntakeOptions{})

	summary, err := h.coordinator.GetSummary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionPending, summary.Status)
	assert.NotNil(t, summary.Candidates)
	assert.Empty(t, summary.Candidates)
}

func TestIntake_pollCeilingSynthesizesTimeout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeCandidates{}, IntakeOptions{PollInterval: time.Second, PollAttempts: 2})

	now := testClock
	h.coordinator.now = func() time.Time { return now }

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "f1"))

	now = now.Add(time.Second)
	summary, err := h.coordinator.GetSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionProcessing, summary.Status)

	now = now.Add(2 * time.Second)
	summary, err = h.coordinator.GetSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionFailed, summary.Status)
	assert.Contains(t, summary.Message, "did not complete within 2s")

	job, err := h.repos.Extractions.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, job.TimedOut)
}

func TestIntake_waitForSummary(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCandidates{byFile: map[string][]models.CandidateCondition{
		"f1": {candidate("c1", "f1", "ASTHMA", "Asthma", 1, 0.9)},
	}}
	h := newHarness(t, fake, IntakeOptions{PollInterval: 5 * time.Millisecond, PollAttempts: 200})

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "f1"))

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = h.coordinator.RunExtraction(ctx, "f1", "s1", nil, MimeText)
	}()

	summary, err := h.coordinator.WaitForSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionCompleted, summary.Status)
}

func TestIntake_confirmationBuildsPrefill(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCandidates{byFile: map[string][]models.CandidateCondition{
		"doc1": {
			candidate("c1", "doc1", "ASTHMA", "Asthma", 2, 0.9),
			candidate("c2", "doc1", "HYPERTENSION", "Hypertension", 3, 0.6),
		},
	}}
	h := newHarness(t, fake, IntakeOptions{})

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "doc1"))
	require.NoError(t, h.coordinator.RunExtraction(ctx, "doc1", "s1", nil, MimeText))

	resp, err := h.coordinator.SubmitConfirmation(ctx, models.ConfirmationRequest{
		SessionID: "s1",
		Confirmed: []models.ConfirmedCondition{
			{CandidateID: "c1", Severity: "mild"},
			{CandidateID: "does-not-exist"},
		},
		Rejected:  []string{"c2"},
		ManualAdd: []models.ManualCondition{{Code: "HYPERTENSION", Label: "Hypertension"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ConfirmedCount)
	assert.Equal(t, 1, resp.RejectedCount)
	require.Len(t, resp.Prefill, 1)

	prefill := resp.Prefill[0]
	assert.Equal(t, "q-007", prefill.QuestionID)
	assert.Equal(t, []string{"Asthma", "Hypertension"}, prefill.Answer)
	assert.Equal(t, []string{"doc1:2"}, prefill.EvidenceRefs)
	assert.Equal(t, models.SourcePrefill, prefill.Source)

	record, err := h.repos.Confirmations.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, record.ConfirmedCandidates, 1)
	assert.Equal(t, "mild", record.ConfirmedCandidates[0].Severity)
}

func TestIntake_manualAddResolvesLabelFromCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeCandidates{}, IntakeOptions{})

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "f1"))
	require.NoError(t, h.coordinator.RunExtraction(ctx, "f1", "s1", nil, MimeText))

	resp, err := h.coordinator.SubmitConfirmation(ctx, models.ConfirmationRequest{
		SessionID: "s1",
		ManualAdd: []models.ManualCondition{{Code: "EPILEPSY"}, {Code: "UNKNOWN"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Prefill, 1)
	assert.Equal(t, []string{"Epilepsy"}, resp.Prefill[0].Answer)
	assert.Empty(t, resp.Prefill[0].EvidenceRefs)
}

func TestIntake_confirmationWithoutExtraction(t *testing.T) {
	h := newHarness(t, &fakeCandidates{}, IntakeOptions{})

	_, err := h.coordinator.SubmitConfirmation(context.Background(), models.ConfirmationRequest{SessionID: "s1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoExtraction)
	assert.Equal(t, 404, apperrors.As(err).HTTPStatus)
}

func TestIntake_adaptivePrompt(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCandidates{byFile: map[string][]models.CandidateCondition{
		"doc1": {candidate("c1", "doc1", "ASTHMA", "Asthma", 1, 0.9)},
	}}
	h := newHarness(t, fake, IntakeOptions{})

	pc, err := h.coordinator.GetAdaptivePrompt(ctx, "s1", "q-007")
	require.NoError(t, err)
	assert.Nil(t, pc)

	require.NoError(t, h.coordinator.RegisterUpload(ctx, "s1", "doc1"))
	require.NoError(t, h.coordinator.RunExtraction(ctx, "doc1", "s1", nil, MimeText))
	_, err = h.coordinator.SubmitConfirmation(ctx, models.ConfirmationRequest{
		SessionID: "s1",
		Confirmed: []models.ConfirmedCondition{{CandidateID: "c1"}},
		ManualAdd: []models.ManualCondition{{Label: "Hypertension"}},
	})
	require.NoError(t, err)

	pc, err = h.coordinator.GetAdaptivePrompt(ctx, "s1", "q-001")
	require.NoError(t, err)
	assert.Nil(t, pc)

	pc, err = h.coordinator.GetAdaptivePrompt(ctx, "s1", "q-007")
	require.NoError(t, err)
	require.NotNil(t, pc)
	assert.Equal(t, []string{"Asthma", "Hypertension"}, pc.ConfirmedConditions)
	assert.Equal(t, "We noted Asthma, Hypertension from your documents. "+
		"Please confirm this and add any other conditions you'd like to declare.", pc.AdaptivePrompt)
	require.NotNil(t, pc.Prefill)

	require.NoError(t, h.coordinator.ConsumePrefill(ctx, "s1"))
	pc, err = h.coordinator.GetAdaptivePrompt(ctx, "s1", "q-007")
	require.NoError(t, err)
	require.NotNil(t, pc)
	assert.Nil(t, pc.Prefill)
}

func TestIntake_acceptUploadAndProcess(t *testing.T) {
	ctx := context.Background()

	dict, err := LoadConditionDictionary("")
	require.NoError(t, err)
	pipeline := NewExtractionPipeline(
		NewDocumentTextExtractor(nil),
		nil,
		dict,
		NewConditionMatcher(dict, nil, zap.NewNop()),
		PipelineOptions{},
		zap.NewNop(),
	)
	h := newHarness(t, pipeline, IntakeOptions{ExtractionTimeout: 5 * time.Second})

	session, err := h.orchestrator.CreateSession(ctx, "")
	require.NoError(t, err)

	resp, err := h.coordinator.AcceptUpload(ctx, session.ID,
		newFileHeader(t, "gp-letter.txt", []byte("The patient has a long history of asthma.")))
	require.NoError(t, err)
	assert.Equal(t, models.FileUploaded, resp.Status)
	assert.Equal(t, "File uploaded successfully. Processing started.", resp.Message)
	require.Len(t, h.queue.tasks, 1)
	assert.Equal(t, resp.FileID, h.queue.tasks[0].FileID)

	require.NoError(t, h.coordinator.ProcessFile(ctx, resp.FileID))
	// a second delivery of the same task is a no-op
	require.NoError(t, h.coordinator.ProcessFile(ctx, resp.FileID))

	summary, err := h.coordinator.GetSummary(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionCompleted, summary.Status)
	require.Len(t, summary.Candidates, 1)
	assert.Equal(t, "ASTHMA", summary.Candidates[0].Canonical.Code)
	assert.True(t, strings.HasPrefix(summary.Candidates[0].ID, "candidate-"+resp.FileID))

	file, err := h.repos.Files.FindByID(ctx, resp.FileID)
	require.NoError(t, err)
	assert.Equal(t, models.FileExtracted, file.Status)
	assert.Equal(t, 1, file.Candidates)

	job, err := h.repos.Extractions.FindBySessionID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Succeeded)
}

func TestIntake_acceptUploadErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeCandidates{}, IntakeOptions{})

	_, err := h.coordinator.AcceptUpload(ctx, "", newFileHeader(t, "a.txt", []byte("x")))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = h.coordinator.AcceptUpload(ctx, "missing", newFileHeader(t, "a.txt", []byte("x")))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	session, err := h.orchestrator.CreateSession(ctx, "acme")
	require.NoError(t, err)

	_, err = h.coordinator.AcceptUpload(ctx, session.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = h.coordinator.AcceptUpload(ctx, session.ID, newFileHeader(t, "run.exe", []byte("MZ")))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = h.repos.Extractions.FindBySessionID(ctx, session.ID)
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
}
