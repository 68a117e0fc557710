package jobs

import (
	"context"
	"fmt"
	"io"

	"clinicalnotes/cmd/internal/domain/entity"
	"clinicalnotes/cmd/internal/infrastructure/transcription"
	"clinicalnotes/cmd/internal/service"
)

type Transcriber interface {
	Transcribe(ctx context.Context, noteID string, audio transcription.Audio) (*entity.Transcription, error)
}

type AudioReader interface {
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
}

// loadAudio uses the bytes carried by the job, or reads them back from
// storage when the job only points at them.
func loadAudio(ctx context.Context, reader AudioReader, job service.TranscriptionJob) (transcription.Audio, error) {
	audio := transcription.Audio{
		Data:        job.Audio,
		Filename:    job.Filename,
		ContentType: job.ContentType,
	}
	if audio.Data != nil {
		return audio, nil
	}

	rc, err := reader.Open(ctx, job.AudioPath)
	if err != nil {
		return audio, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return audio, fmt.Errorf("read audio %s: %w", job.AudioPath, err)
	}

	audio.Data = data
	return audio, nil
}
