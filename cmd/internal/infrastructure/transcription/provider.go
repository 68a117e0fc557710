// Package transcription turns audio into normalized transcripts through
// interchangeable remote providers.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"clinicalnotes/cmd/internal/domain/entity"
)

const (
	ProviderWhisperAPI = "whisperApi"
	ProviderOpenAI     = "openai"

	defaultLanguage = "en"
)

var (
	// ErrTranscriptionFailed is the single failure class of every provider.
	// The underlying cause stays reachable through errors.Is/As.
	ErrTranscriptionFailed = errors.New("transcription failed")

	ErrEmptyAudio = errors.New("audio payload is empty")
)

type Audio struct {
	Data        []byte
	Filename    string
	ContentType string
}

type Options struct {
	NoteID       string
	SaveRawFiles bool
}

// Result is a complete normalized transcript. Providers never return a
// partial one.
type Result struct {
	Text           string
	Segments       []entity.Segment
	Language       string
	Metadata       map[string]any
	StructuredData map[string]any
}

type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio Audio, opts Options) (*Result, error)
}

func failed(provider string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrTranscriptionFailed, provider, cause)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &http.Client{Timeout: timeout}
}
