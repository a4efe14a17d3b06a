package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/models"
	"alfredoptarigan/underwriting-intake/internal/repositories"
)

var testClock = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

func newFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["file"][0]
}

// fakeCandidates returns canned candidates or errors per file id.
type fakeCandidates struct {
	mu     sync.Mutex
	byFile map[string][]models.CandidateCondition
	errs   map[string]error
}

func (f *fakeCandidates) Process(_ context.Context, fileID string, _ []byte, _ string) ([]models.CandidateCondition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[fileID]; err != nil {
		return nil, err
	}
	return f.byFile[fileID], nil
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []ExtractionTask
}

func (q *recordingQueue) Enqueue(task ExtractionTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return true
}

type testHarness struct {
	repos        *repositories.Registry
	catalog      *QuestionCatalog
	dict         *ConditionDictionary
	coordinator  *IntakeCoordinator
	orchestrator *SessionOrchestrator
	queue        *recordingQueue
}

func newHarness(t *testing.T, pipeline CandidateExtractor, opts IntakeOptions) *testHarness {
	t.Helper()

	catalog, err := LoadQuestionCatalog("")
	require.NoError(t, err)
	dict, err := LoadConditionDictionary("")
	require.NoError(t, err)

	repos := repositories.NewMemoryRegistry(0)
	storage := NewStorageService(t.TempDir(), 1<<20)

	coordinator := NewIntakeCoordinator(repos, storage, pipeline, catalog, dict, opts, zap.NewNop())
	queue := &recordingQueue{}
	coordinator.SetQueue(queue)

	engine := NewDecisionEngineAt(func() time.Time { return testClock })
	orchestrator := NewSessionOrchestrator(repos.Sessions, repos.Transcripts, catalog, engine, coordinator, zap.NewNop())

	return &testHarness{
		repos:        repos,
		catalog:      catalog,
		dict:         dict,
		coordinator:  coordinator,
		orchestrator: orchestrator,
		queue:        queue,
	}
}

func candidate(id, fileID, code, label string, page int, confidence float64) models.CandidateCondition {
	return models.CandidateCondition{
		ID:           id,
		OriginalTerm: label,
		Canonical:    models.CanonicalCondition{Code: code, Label: label},
		Confidence:   confidence,
		Status:       models.ClinicalActive,
		Evidence:     models.Evidence{DocumentID: fileID, Page: page, Snippet: label},
	}
}
