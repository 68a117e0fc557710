package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"clinicalnotes/cmd/internal/service"

	"github.com/labstack/gommon/log"
)

var ErrQueueFull = errors.New("transcription queue is full")

// WorkerPool runs transcription jobs in-process on a fixed number of
// goroutines fed by a bounded queue.
type WorkerPool struct {
	transcriber Transcriber
	audio       AudioReader
	timeout     time.Duration
	workers     int

	jobs    chan service.TranscriptionJob
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewWorkerPool(transcriber Transcriber, audio AudioReader, workers, queueSize int, timeout time.Duration) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	return &WorkerPool{
		transcriber: transcriber,
		audio:       audio,
		timeout:     timeout,
		workers:     workers,
		jobs:        make(chan service.TranscriptionJob, queueSize),
	}
}

func (p *WorkerPool) Start() {
	log.Infof("Transcription worker pool started with %d workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

// Enqueue never blocks. It fails when the queue is full or the pool is stopping.
func (p *WorkerPool) Enqueue(job service.TranscriptionJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return service.ErrDispatchUnavailable
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs, lets the workers drain what is queued and waits for
// them until ctx expires.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Transcription worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

// run detaches from any request context, the job has its own deadline.
func (p *WorkerPool) run(job service.TranscriptionJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("transcription job for note %s panicked: %v", job.NoteID, r)
		}
	}()

	audio, err := loadAudio(ctx, p.audio, job)
	if err != nil {
		log.Errorf("failed to load audio of note %s: %v", job.NoteID, err)
		return
	}

	// failures are logged by the transcriber
	_, _ = p.transcriber.Transcribe(ctx, job.NoteID, audio)
}

var _ service.TranscriptionDispatcher = (*WorkerPool)(nil)
