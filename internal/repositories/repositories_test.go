package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/underwriting-intake/internal/models"
)

func TestSessionRepository_roundTrip(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(0)

	answers := models.NewAnswers()
	answers.Set("height", 175.0)
	answers.Set("medicalConditions", []string{"Asthma"})

	require.NoError(t, reg.Sessions.Create(ctx, &models.Session{
		ID:      "s1",
		Status:  models.SessionActive,
		Answers: answers,
	}))

	updated, err := reg.Sessions.Update(ctx, "s1", func(s *models.Session) error {
		s.CurrentQuestionIndex = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.CurrentQuestionIndex)

	got, err := reg.Sessions.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"height", "medicalConditions"}, got.Answers.Fields())
	v, _ := got.Answers.Get("medicalConditions")
	assert.Equal(t, []string{"Asthma"}, v)

	_, err = reg.Sessions.Update(ctx, "nope", func(*models.Session) error { return nil })
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestFileRepository_claimOnce(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(0)

	require.NoError(t, reg.Files.Create(ctx, &models.UploadedFile{
		ID:         "f1",
		SessionID:  "s1",
		Status:     models.FileUploaded,
		UploadedAt: time.Now().Add(-time.Hour),
	}))

	pending, err := reg.Files.FindPending(ctx, time.Minute, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	claimed, err := reg.Files.ClaimForScan(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = reg.Files.ClaimForScan(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, claimed)

	pending, err = reg.Files.FindPending(ctx, time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, reg.Files.UpdateResult(ctx, "f1", 2))
	f, err := reg.Files.FindByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.FileExtracted, f.Status)
	assert.Equal(t, 2, f.Candidates)

	_, err = reg.Files.ClaimForScan(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTranscriptRepository_append(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(0)

	require.NoError(t, reg.Transcripts.Create(ctx, "s1"))
	require.NoError(t, reg.Transcripts.Append(ctx, "s1",
		models.TranscriptEntry{Role: models.RoleSystem, Text: "Session started"},
		models.TranscriptEntry{Role: models.RoleAssistant, Text: "Name?"},
	))

	tr, err := reg.Transcripts.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, tr.Items, 2)
	assert.Equal(t, "Session started", tr.Items[0].Text)

	assert.ErrorIs(t, reg.Transcripts.Append(ctx, "nope"), ErrRecordNotFound)
}

func TestConfirmationRepository_markConsumed(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(0)

	assert.ErrorIs(t, reg.Confirmations.MarkConsumed(ctx, "s1"), ErrRecordNotFound)

	require.NoError(t, reg.Confirmations.Save(ctx, &models.ConfirmationRecord{SessionID: "s1"}))
	require.NoError(t, reg.Confirmations.MarkConsumed(ctx, "s1"))

	rec, err := reg.Confirmations.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec.ConsumedAt)
	first := *rec.ConsumedAt

	require.NoError(t, reg.Confirmations.MarkConsumed(ctx, "s1"))
	rec, _ = reg.Confirmations.FindBySessionID(ctx, "s1")
	assert.True(t, first.Equal(*rec.ConsumedAt))
}

func TestIdempotencyRepository(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(0)

	_, ok, err := reg.Idempotency.Get(ctx, "answers:s1", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, reg.Idempotency.Put(ctx, "answers:s1", &IdempotentResponse{
		Key:        "k1",
		StatusCode: 200,
		Body:       []byte(`{"accepted":true}`),
	}))

	got, ok, err := reg.Idempotency.Get(ctx, "answers:s1", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 200, got.StatusCode)
	assert.JSONEq(t, `{"accepted":true}`, string(got.Body))

	_, ok, _ = reg.Idempotency.Get(ctx, "answers:s2", "k1")
	assert.False(t, ok)
}
