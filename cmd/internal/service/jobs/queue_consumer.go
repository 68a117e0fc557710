package jobs

import (
	"context"
	"errors"
	"time"

	"clinicalnotes/cmd/internal/infrastructure/aws/queue"
	"clinicalnotes/cmd/internal/infrastructure/filestorage"
	"clinicalnotes/cmd/internal/service"

	"github.com/labstack/gommon/log"
)

const (
	receiveBatch   = 5
	receiveWait    = 20
	receiveBackoff = 5 * time.Second
)

type QueueReceiver interface {
	Receive(ctx context.Context, maxMessages, waitSeconds int32) ([]queue.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// QueueConsumer long-polls the transcription queue. A message is deleted
// once its note has a transcription or can never get one, anything else is
// left for redelivery.
type QueueConsumer struct {
	queue       QueueReceiver
	transcriber Transcriber
	audio       AudioReader
	timeout     time.Duration
	waitSeconds int32
}

func NewQueueConsumer(q QueueReceiver, transcriber Transcriber, audio AudioReader, timeout time.Duration) *QueueConsumer {
	return &QueueConsumer{
		queue:       q,
		transcriber: transcriber,
		audio:       audio,
		timeout:     timeout,
		waitSeconds: receiveWait,
	}
}

func (c *QueueConsumer) Start(ctx context.Context) {
	log.Info("Transcription queue consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping transcription queue consumer...")
			return
		default:
		}

		messages, err := c.queue.Receive(ctx, receiveBatch, c.waitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}

			log.Errorf("Consumer: failed to receive messages: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, msg := range messages {
			c.handle(msg)
		}
	}
}

func (c *QueueConsumer) handle(msg queue.Message) {
	// Fresh context, a shutdown must not cut a transcription in half
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	job := service.TranscriptionJob{
		NoteID:      msg.Body.NoteID,
		AudioPath:   msg.Body.AudioPath,
		Filename:    msg.Body.Filename,
		ContentType: msg.Body.ContentType,
	}

	audio, err := loadAudio(ctx, c.audio, job)
	if errors.Is(err, filestorage.ErrObjectNotFound) {
		log.Warnf("Consumer: audio of note %s is gone, dropping job", job.NoteID)
		c.ack(ctx, msg)
		return
	}

	if err != nil {
		log.Errorf("Consumer: failed to load audio of note %s: %v", job.NoteID, err)
		return
	}

	if _, err = c.transcriber.Transcribe(ctx, job.NoteID, audio); err != nil {
		return
	}
	c.ack(ctx, msg)
}

func (c *QueueConsumer) ack(ctx context.Context, msg queue.Message) {
	if err := c.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		log.Errorf("Consumer: failed to delete message of note %s: %v", msg.Body.NoteID, err)
	}
}
