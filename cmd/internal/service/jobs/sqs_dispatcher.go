package jobs

import (
	"context"
	"sync"
	"time"

	"clinicalnotes/cmd/internal/infrastructure/aws/queue"
	"clinicalnotes/cmd/internal/service"

	"github.com/labstack/gommon/log"
)

const publishTimeout = 10 * time.Second

type Publisher interface {
	Publish(ctx context.Context, msg queue.TranscriptionMessage) error
}

// SQSDispatcher forwards jobs to a queue consumed by QueueConsumer. Only the
// storage path travels, the consumer reads the audio back.
type SQSDispatcher struct {
	publisher Publisher
	mu        sync.RWMutex
	stopped   bool
	wg        sync.WaitGroup
}

func NewSQSDispatcher(publisher Publisher) *SQSDispatcher {
	return &SQSDispatcher{publisher: publisher}
}

func (d *SQSDispatcher) Enqueue(job service.TranscriptionJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return service.ErrDispatchUnavailable
	}

	msg := queue.TranscriptionMessage{
		NoteID:      job.NoteID,
		AudioPath:   job.AudioPath,
		Filename:    job.Filename,
		ContentType: job.ContentType,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := d.publisher.Publish(ctx, msg); err != nil {
			log.Errorf("failed to publish transcription job for note %s: %v", msg.NoteID, err)
		}
	}()
	return nil
}

// Stop waits for in-flight publishes.
func (d *SQSDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ service.TranscriptionDispatcher = (*SQSDispatcher)(nil)
