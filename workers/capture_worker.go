package workers

import (
	"bytes"
	"sync"

	"github.com/camden-git/attendancesys/media"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CaptureJob is one uploaded class photo waiting to be archived.
type CaptureJob struct {
	Date string // attendance day the photo was reconciled into
	Data []byte
}

// CaptureArchiver writes uploaded photos to the store on background workers
// so that archiving never delays the attendance response.
type CaptureArchiver struct {
	jobQueue chan CaptureJob
	store    media.Store
	logger   *zap.Logger
	wg       sync.WaitGroup
	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool
}

func NewCaptureArchiver(store media.Store, queueSize, numWorkers int, logger *zap.Logger) *CaptureArchiver {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 50
	}
	a := &CaptureArchiver{
		jobQueue: make(chan CaptureJob, queueSize),
		store:    store,
		logger:   logger.Named("captures"),
	}
	a.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go a.worker(i)
	}
	a.logger.Info("started capture workers", zap.Int("workers", numWorkers), zap.Int("queue_size", queueSize))
	return a
}

func (a *CaptureArchiver) worker(id int) {
	defer a.wg.Done()
	for job := range a.jobQueue {
		filename := uuid.NewString() + ".jpg"
		rel, err := a.store.Save(job.Date, filename, bytes.NewReader(job.Data))
		if err != nil {
			a.logger.Error("failed to archive capture", zap.Int("worker", id), zap.String("date", job.Date), zap.Error(err))
			continue
		}
		a.logger.Debug("archived capture", zap.Int("worker", id), zap.String("path", rel))
	}
}

// Enqueue queues a photo without blocking. It reports false when the queue
// is full or the archiver is stopped, in which case the photo is dropped.
func (a *CaptureArchiver) Enqueue(job CaptureJob) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.stopped {
		return false
	}
	select {
	case a.jobQueue <- job:
		return true
	default:
		a.logger.Warn("capture queue full, dropping photo", zap.String("date", job.Date))
		return false
	}
}

// Stop drains queued photos and waits for the workers to exit.
func (a *CaptureArchiver) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.stopped = true
		close(a.jobQueue)
		a.mu.Unlock()
		a.wg.Wait()
		a.logger.Info("capture workers stopped")
	})
}
