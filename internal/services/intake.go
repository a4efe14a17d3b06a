package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/metrics"
	"alfredoptarigan/underwriting-intake/internal/models"
	"alfredoptarigan/underwriting-intake/internal/repositories"
)

const adaptivePromptTemplate = "We noted %s from your documents. " +
	"Please confirm this and add any other conditions you'd like to declare."

// CandidateExtractor is the part of the extraction pipeline the coordinator
// depends on.
type CandidateExtractor interface {
	Process(ctx context.Context, fileID string, content []byte, mimeType string) ([]models.CandidateCondition, error)
}

type TaskQueue interface {
	Enqueue(task ExtractionTask) bool
}

type IntakeOptions struct {
	ExtractionTimeout time.Duration
	PollInterval      time.Duration
	PollAttempts      int
}

// PollCeiling is how long a job may stay in processing before a summary
// request reports it as timed out.
func (o IntakeOptions) PollCeiling() time.Duration {
	return o.PollInterval * time.Duration(o.PollAttempts)
}

// IntakeCoordinator owns per-session extraction jobs and turns applicant
// confirmations into a prefill answer for the medical conditions question.
type IntakeCoordinator struct {
	sessions      repositories.SessionRepository
	files         repositories.FileRepository
	extractions   repositories.ExtractionRepository
	confirmations repositories.ConfirmationRepository
	storage       StorageService
	pipeline      CandidateExtractor
	catalog       *QuestionCatalog
	dict          *ConditionDictionary
	queue         TaskQueue
	opts          IntakeOptions
	now           func() time.Time
	log           *zap.Logger
}

func NewIntakeCoordinator(
	repos *repositories.Registry,
	storage StorageService,
	pipeline CandidateExtractor,
	catalog *QuestionCatalog,
	dict *ConditionDictionary,
	opts IntakeOptions,
	log *zap.Logger,
) *IntakeCoordinator {
	return &IntakeCoordinator{
		sessions:      repos.Sessions,
		files:         repos.Files,
		extractions:   repos.Extractions,
		confirmations: repos.Confirmations,
		storage:       storage,
		pipeline:      pipeline,
		catalog:       catalog,
		dict:          dict,
		opts:          opts,
		now:           time.Now,
		log:           log.Named("intake"),
	}
}

// SetQueue attaches the queue uploads are handed to. The worker consuming it
// needs the coordinator, so this is wired after construction.
func (c *IntakeCoordinator) SetQueue(queue TaskQueue) {
	c.queue = queue
}

// AcceptUpload stores an uploaded document for a session and schedules its
// extraction. It returns before extraction starts.
func (c *IntakeCoordinator) AcceptUpload(ctx context.Context, sessionID string, header *multipart.FileHeader) (*models.UploadResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperrors.BadRequest("sessionId is required")
	}
	if header == nil {
		return nil, apperrors.BadRequest("No file uploaded")
	}
	if _, err := c.sessions.FindByID(ctx, sessionID); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, apperrors.SessionNotFound(sessionID)
		}
		return nil, err
	}

	stored, err := c.storage.SaveFile(header)
	if err != nil {
		return nil, err
	}

	file := &models.UploadedFile{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		OriginalName: header.Filename,
		StoredName:   stored.StoredName,
		Path:         stored.Path,
		MimeType:     stored.MimeType,
		Size:         stored.Size,
		Status:       models.FileUploaded,
		UploadedAt:   c.now(),
	}
	if err := c.files.Create(ctx, file); err != nil {
		return nil, err
	}
	metrics.RecordUpload(stored.MimeType)

	if err := c.RegisterUpload(ctx, sessionID, file.ID); err != nil {
		return nil, err
	}

	return &models.UploadResponse{
		FileID:  file.ID,
		Status:  file.Status,
		Message: "File uploaded successfully. Processing started.",
	}, nil
}

// RegisterUpload adds fileID to the session's extraction job, creating the
// job on first upload, and queues the extraction. A completed job goes back
// to processing; a failed job stays failed.
func (c *IntakeCoordinator) RegisterUpload(ctx context.Context, sessionID, fileID string) error {
	now := c.now()
	_, err := c.extractions.Update(ctx, sessionID, func(job *models.ExtractionJob, exists bool) error {
		if !exists {
			*job = models.ExtractionJob{
				SessionID:  sessionID,
				Status:     models.ExtractionProcessing,
				Candidates: []models.CandidateCondition{},
				StartedAt:  now,
			}
		}
		if job.Status == models.ExtractionCompleted {
			job.Status = models.ExtractionProcessing
			job.StartedAt = now
			job.CompletedAt = nil
		}
		job.FileIDs = append(job.FileIDs, fileID)
		job.Outstanding++
		job.UpdatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register upload: %w", err)
	}

	if c.queue != nil {
		c.queue.Enqueue(ExtractionTask{FileID: fileID, SessionID: sessionID})
	}
	return nil
}

// ProcessFile implements FileProcessor. Files that another worker already
// claimed are skipped.
func (c *IntakeCoordinator) ProcessFile(ctx context.Context, fileID string) error {
	file, err := c.files.FindByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to load file %s: %w", fileID, err)
	}

	claimed, err := c.files.ClaimForScan(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to claim file %s: %w", fileID, err)
	}
	if !claimed {
		c.log.Debug("File already claimed", zap.String("file_id", fileID), zap.String("status", string(file.Status)))
		return nil
	}

	content, err := c.storage.ReadFile(file.Path)
	if err != nil {
		return c.recordResult(ctx, fileID, file.SessionID, nil, err, 0)
	}

	return c.RunExtraction(ctx, fileID, file.SessionID, content, file.MimeType)
}

// RunExtraction extracts candidates from one file within the extraction
// timeout and merges them into the session's job. The returned error is for
// the caller's logs only; the outcome is always recorded on the job.
func (c *IntakeCoordinator) RunExtraction(ctx context.Context, fileID, sessionID string, content []byte, mimeType string) error {
	start := c.now()

	fctx := ctx
	if c.opts.ExtractionTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, c.opts.ExtractionTimeout)
		defer cancel()
	}

	candidates, err := c.pipeline.Process(fctx, fileID, content, mimeType)
	return c.recordResult(ctx, fileID, sessionID, candidates, err, c.now().Sub(start))
}

func (c *IntakeCoordinator) recordResult(
	ctx context.Context,
	fileID, sessionID string,
	candidates []models.CandidateCondition,
	extractErr error,
	elapsed time.Duration,
) error {
	if extractErr != nil {
		metrics.RecordExtraction("failed", elapsed)
		if err := c.files.UpdateStatus(ctx, fileID, models.FileFailed, extractErr.Error()); err != nil {
			c.log.Warn("Failed to mark file failed", zap.String("file_id", fileID), zap.Error(err))
		}
	} else {
		metrics.RecordExtraction("succeeded", elapsed)
		if err := c.files.UpdateResult(ctx, fileID, len(candidates)); err != nil {
			c.log.Warn("Failed to record file result", zap.String("file_id", fileID), zap.Error(err))
		}
	}

	now := c.now()
	job, err := c.extractions.Update(ctx, sessionID, func(job *models.ExtractionJob, exists bool) error {
		if !exists {
			// the job expired or was never registered; rebuild it around this file
			*job = models.ExtractionJob{
				SessionID:   sessionID,
				Status:      models.ExtractionProcessing,
				Candidates:  []models.CandidateCondition{},
				FileIDs:     []string{fileID},
				Outstanding: 1,
				StartedAt:   now,
			}
		}

		have := make(map[string]bool, len(job.Candidates))
		for _, cand := range job.Candidates {
			have[cand.ID] = true
		}
		for _, cand := range candidates {
			if !have[cand.ID] {
				job.Candidates = append(job.Candidates, cand)
				have[cand.ID] = true
			}
		}

		if job.Outstanding > 0 {
			job.Outstanding--
		}
		if extractErr != nil {
			job.Failed++
			job.Error = extractErr.Error()
		} else {
			job.Succeeded++
		}

		if job.Status == models.ExtractionProcessing && job.Outstanding == 0 {
			if job.Succeeded > 0 {
				job.Status = models.ExtractionCompleted
			} else {
				job.Status = models.ExtractionFailed
			}
			job.CompletedAt = &now
		}
		job.UpdatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record extraction for session %s: %w", sessionID, err)
	}

	c.log.Info("Extraction recorded",
		zap.String("file_id", fileID),
		zap.String("session_id", sessionID),
		zap.Int("candidates", len(candidates)),
		zap.String("job_status", string(job.Status)),
		zap.Duration("elapsed", elapsed),
	)

	return extractErr
}

// GetSummary reports the session's extraction job. A job that has been
// processing for longer than the poll ceiling is failed with a timeout.
func (c *IntakeCoordinator) GetSummary(ctx context.Context, sessionID string) (*models.SummaryResponse, error) {
	job, err := c.extractions.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return &models.SummaryResponse{
				SessionID:        sessionID,
				Status:           models.ExtractionPending,
				ExtractionStatus: models.ExtractionPending,
				Candidates:       []models.CandidateCondition{},
			}, nil
		}
		return nil, err
	}

	ceiling := c.opts.PollCeiling()
	if job.Status == models.ExtractionProcessing && ceiling > 0 && c.now().Sub(job.StartedAt) > ceiling {
		job, err = c.expire(ctx, sessionID, ceiling)
		if err != nil {
			return nil, err
		}
	}

	return summaryOf(job), nil
}

func (c *IntakeCoordinator) expire(ctx context.Context, sessionID string, ceiling time.Duration) (*models.ExtractionJob, error) {
	now := c.now()
	job, err := c.extractions.Update(ctx, sessionID, func(job *models.ExtractionJob, exists bool) error {
		if !exists {
			return repositories.ErrRecordNotFound
		}
		if job.Status != models.ExtractionProcessing {
			return nil
		}
		job.Status = models.ExtractionFailed
		job.TimedOut = true
		job.Error = apperrors.ExtractionTimeout(
			fmt.Sprintf("Extraction did not complete within %s", ceiling)).Error()
		job.CompletedAt = &now
		job.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expire extraction: %w", err)
	}
	c.log.Warn("Extraction timed out", zap.String("session_id", sessionID), zap.Duration("ceiling", ceiling))
	return job, nil
}

// WaitForSummary polls GetSummary until the job leaves processing or the
// configured attempts run out.
func (c *IntakeCoordinator) WaitForSummary(ctx context.Context, sessionID string) (*models.SummaryResponse, error) {
	attempts := c.opts.PollAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		summary, err := c.GetSummary(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if summary.Status != models.ExtractionProcessing || attempt >= attempts {
			return summary, nil
		}

		select {
		case <-ctx.Done():
			return summary, nil
		case <-time.After(c.opts.PollInterval):
		}
	}
}

func summaryOf(job *models.ExtractionJob) *models.SummaryResponse {
	candidates := job.Candidates
	if candidates == nil {
		candidates = []models.CandidateCondition{}
	}

	summary := &models.SummaryResponse{
		SessionID:        job.SessionID,
		Status:           job.Status,
		ExtractionStatus: job.Status,
		Candidates:       candidates,
		CompletedAt:      job.CompletedAt,
	}
	switch job.Status {
	case models.ExtractionProcessing:
		summary.Message = "Extraction in progress"
	case models.ExtractionCompleted:
		summary.Message = fmt.Sprintf("Found %d condition(s)", len(candidates))
	case models.ExtractionFailed:
		summary.Message = job.Error
	}
	return summary
}

// SubmitConfirmation stores the applicant's decisions over the candidates
// and derives the prefill answer. Unknown candidate ids are skipped.
func (c *IntakeCoordinator) SubmitConfirmation(ctx context.Context, req models.ConfirmationRequest) (*models.ConfirmationResponse, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, apperrors.BadRequest("sessionId is required")
	}

	job, err := c.extractions.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, apperrors.NoExtractionForSession(sessionID)
		}
		return nil, err
	}

	record := &models.ConfirmationRecord{
		SessionID:   sessionID,
		SubmittedAt: c.now(),
	}

	confirmedIDs := make(map[string]bool)
	for _, conf := range req.Confirmed {
		cand, ok := job.Candidate(conf.CandidateID)
		if !ok || confirmedIDs[conf.CandidateID] {
			continue
		}
		confirmedIDs[conf.CandidateID] = true

		if conf.Status != "" {
			cand.Status = clinicalStatus(string(conf.Status))
		}
		if conf.Severity != "" {
			cand.Severity = conf.Severity
		}
		if conf.OnsetDate != "" {
			cand.OnsetDate = conf.OnsetDate
		}
		conf.Status = cand.Status
		record.Confirmed = append(record.Confirmed, conf)
		record.ConfirmedCandidates = append(record.ConfirmedCandidates, cand)
	}

	for _, id := range req.Rejected {
		if !confirmedIDs[id] {
			record.Rejected = append(record.Rejected, id)
		}
	}

	for _, m := range req.ManualAdd {
		m.Code = strings.TrimSpace(m.Code)
		m.Label = strings.TrimSpace(m.Label)
		if m.Label == "" {
			entry, ok := c.dict.ByCode(m.Code)
			if !ok {
				continue
			}
			m.Label = entry.Label
		}
		record.ManualAdd = append(record.ManualAdd, m)
	}

	record.Prefill = c.buildPrefill(record)

	if err := c.confirmations.Save(ctx, record); err != nil {
		return nil, err
	}

	c.log.Info("Confirmation stored",
		zap.String("session_id", sessionID),
		zap.Int("confirmed", len(record.ConfirmedCandidates)),
		zap.Int("rejected", len(record.Rejected)),
		zap.Int("manual", len(record.ManualAdd)),
	)

	prefill := record.Prefill
	if prefill == nil {
		prefill = []models.PrefillAnswer{}
	}
	return &models.ConfirmationResponse{
		SessionID:      sessionID,
		ConfirmedCount: len(record.ConfirmedCandidates),
		RejectedCount:  len(record.Rejected),
		Prefill:        prefill,
	}, nil
}

// buildPrefill answers the medical conditions question with confirmed labels
// followed by manual ones. Only confirmed candidates carry evidence.
func (c *IntakeCoordinator) buildPrefill(record *models.ConfirmationRecord) []models.PrefillAnswer {
	q, _, ok := c.catalog.MedicalConditionsQuestion()
	if !ok {
		return nil
	}

	labels := uniqueFold(record.Labels())
	if len(labels) == 0 {
		return nil
	}

	refs := []string{}
	seen := make(map[string]bool)
	for _, cand := range record.ConfirmedCandidates {
		if cand.Evidence.DocumentID == "" {
			continue
		}
		page := cand.Evidence.Page
		if page <= 0 {
			page = 1
		}
		ref := fmt.Sprintf("%s:%d", cand.Evidence.DocumentID, page)
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	return []models.PrefillAnswer{{
		QuestionID:   q.ID,
		Answer:       labels,
		Source:       models.SourcePrefill,
		EvidenceRefs: refs,
	}}
}

// GetAdaptivePrompt returns the prefill context for questionID, or nil when
// no confirmation applies to it. The prefill itself is omitted once consumed.
func (c *IntakeCoordinator) GetAdaptivePrompt(ctx context.Context, sessionID, questionID string) (*models.PrefillContext, error) {
	q, _, ok := c.catalog.MedicalConditionsQuestion()
	if !ok || q.ID != questionID {
		return nil, nil
	}

	record, err := c.confirmations.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	labels := uniqueFold(record.Labels())
	if len(labels) == 0 {
		return nil, nil
	}

	pc := &models.PrefillContext{
		ConfirmedConditions: labels,
		AdaptivePrompt:      fmt.Sprintf(adaptivePromptTemplate, strings.Join(labels, ", ")),
	}
	if record.ConsumedAt == nil && len(record.Prefill) > 0 {
		prefill := record.Prefill[0]
		pc.Prefill = &prefill
	}
	return pc, nil
}

// ConsumePrefill marks the session's prefill as folded into the answers.
func (c *IntakeCoordinator) ConsumePrefill(ctx context.Context, sessionID string) error {
	err := c.confirmations.MarkConsumed(ctx, sessionID)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return nil
	}
	return err
}

func uniqueFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
