package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

const (
	whisperProviderName = "whisper-api"
	whisperModel        = "whisper-local"
)

// WhisperASRProvider talks to a self-hosted whisper-asr-webservice.
type WhisperASRProvider struct {
	baseURL    string
	httpClient *http.Client
}

type whisperResponse struct {
	Text     string            `json:"text"`
	Segments []segmentResponse `json:"segments"`
	Language string            `json:"language"`
	Duration float64           `json:"duration"`
}

func NewWhisperASRProvider(baseURL string, timeout time.Duration) *WhisperASRProvider {
	return &WhisperASRProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (p *WhisperASRProvider) Name() string {
	return ProviderWhisperAPI
}

func (p *WhisperASRProvider) Transcribe(ctx context.Context, audio Audio, opts Options) (*Result, error) {
	if len(audio.Data) == 0 {
		return nil, failed(whisperProviderName, ErrEmptyAudio)
	}

	started := time.Now()
	log.Infof("sending audio %q of note %s to whisper api", audio.Filename, opts.NoteID)

	body, contentType, err := multipartAudio("audio_file", audio, nil)
	if err != nil {
		return nil, failed(whisperProviderName, err)
	}

	url := p.baseURL + "/asr?encode=true&task=transcribe&output=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, failed(whisperProviderName, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	raw, err := do(p.httpClient, req)
	if err != nil {
		return nil, failed(whisperProviderName, err)
	}

	var resp whisperResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, failed(whisperProviderName, err)
	}

	segments, err := normalizeSegments(resp.Segments)
	if err != nil {
		return nil, failed(whisperProviderName, err)
	}

	result := &Result{
		Text:           strings.TrimSpace(resp.Text),
		Segments:       segments,
		Language:       normalizeLanguage(resp.Language),
		Metadata:       buildMetadata(whisperProviderName, whisperModel, started, resp.Duration),
		StructuredData: structuredData(raw, opts.SaveRawFiles),
	}

	log.Infof("whisper api transcription of note %s completed in %dms", opts.NoteID, result.Metadata["processingTime"])
	return result, nil
}

var _ Provider = (*WhisperASRProvider)(nil)
