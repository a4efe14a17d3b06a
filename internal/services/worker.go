package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/repositories"
)

// ExtractionTask asks the worker to extract conditions from one uploaded file.
type ExtractionTask struct {
	FileID    string
	SessionID string
}

// FileProcessor runs extraction for a stored file.
type FileProcessor interface {
	ProcessFile(ctx context.Context, fileID string) error
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(task ExtractionTask) bool
}

type worker struct {
	fileRepo       repositories.FileRepository
	processor      FileProcessor
	jobQueue       chan ExtractionTask
	concurrency    int
	rescanInterval time.Duration
	wg             sync.WaitGroup
	stopChan       chan struct{}
	stopOnce       sync.Once
	log            *zap.Logger
}

func NewWorker(
	fileRepo repositories.FileRepository,
	processor FileProcessor,
	concurrency int,
	queueSize int,
	rescanInterval time.Duration,
	log *zap.Logger,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &worker{
		fileRepo:       fileRepo,
		processor:      processor,
		jobQueue:       make(chan ExtractionTask, queueSize),
		concurrency:    concurrency,
		rescanInterval: rescanInterval,
		stopChan:       make(chan struct{}),
		log:            log.Named("worker"),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("🚀 Starting extraction worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	if w.rescanInterval > 0 {
		w.wg.Add(1)
		go w.pollPendingFiles(ctx)
	}

	w.log.Info("✅ Worker started successfully")
}

// Stop implements Worker. In-flight extractions finish before it returns.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("🛑 Stopping worker...")
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("✅ Worker stopped")
	})
}

// Enqueue implements Worker. It never blocks: when the queue is full the
// file stays in uploaded status and the rescan loop picks it up later.
func (w *worker) Enqueue(task ExtractionTask) bool {
	select {
	case <-w.stopChan:
		w.log.Warn("Worker stopped, cannot enqueue file", zap.String("file_id", task.FileID))
		return false
	default:
	}

	select {
	case w.jobQueue <- task:
		w.log.Debug("📥 File enqueued", zap.String("file_id", task.FileID), zap.String("session_id", task.SessionID))
		return true
	default:
		w.log.Warn("Extraction queue full, deferring to rescan", zap.String("file_id", task.FileID))
		return false
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("👷 Worker stopped", zap.Int("worker", workerID))
			return
		case <-ctx.Done():
			return
		case task := <-w.jobQueue:
			log := w.log.With(zap.Int("worker", workerID), zap.String("file_id", task.FileID))
			log.Info("👷 Processing file")
			if err := w.processor.ProcessFile(ctx, task.FileID); err != nil {
				log.Error("❌ Extraction failed", zap.Error(err))
			} else {
				log.Info("✅ Extraction finished")
			}
		}
	}
}

func (w *worker) pollPendingFiles(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.rescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.fileRepo.FindPending(ctx, w.rescanInterval, 10)
			if err != nil {
				w.log.Warn("Failed to fetch pending files", zap.Error(err))
				continue
			}

			if len(pending) > 0 {
				w.log.Info("📋 Found pending files", zap.Int("count", len(pending)))
			}

			for _, f := range pending {
				w.Enqueue(ExtractionTask{FileID: f.ID, SessionID: f.SessionID})
			}
		}
	}
}
