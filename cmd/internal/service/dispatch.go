package service

import "errors"

var ErrDispatchUnavailable = errors.New("transcription dispatcher is not accepting jobs")

// TranscriptionJob is a unit of background transcription work. Audio may be
// nil when the executor reads it back from storage through AudioPath.
type TranscriptionJob struct {
	NoteID      string
	AudioPath   string
	Filename    string
	ContentType string
	Audio       []byte
}

// TranscriptionDispatcher hands jobs to a background executor. Enqueue must
// return immediately, a job is enqueued at most once and completion is best effort.
type TranscriptionDispatcher interface {
	Enqueue(job TranscriptionJob) error
}
