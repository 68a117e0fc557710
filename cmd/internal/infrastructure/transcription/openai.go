package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

var errMissingAPIKey = errors.New("openai api key is not configured")

type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type openAIResponse struct {
	Text     string            `json:"text"`
	Language string            `json:"language"`
	Duration float64           `json:"duration"`
	Segments []segmentResponse `json:"segments"`
}

func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: newHTTPClient(timeout),
	}
}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, audio Audio, opts Options) (*Result, error) {
	if p.apiKey == "" {
		return nil, failed(ProviderOpenAI, errMissingAPIKey)
	}
	if len(audio.Data) == 0 {
		return nil, failed(ProviderOpenAI, ErrEmptyAudio)
	}

	started := time.Now()
	log.Infof("sending audio %q of note %s to openai", audio.Filename, opts.NoteID)

	body, contentType, err := multipartAudio("file", audio, [][2]string{
		{"model", p.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	})
	if err != nil {
		return nil, failed(ProviderOpenAI, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/audio/transcriptions", body)
	if err != nil {
		return nil, failed(ProviderOpenAI, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", contentType)

	raw, err := do(p.httpClient, req)
	if err != nil {
		return nil, failed(ProviderOpenAI, err)
	}

	var resp openAIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, failed(ProviderOpenAI, err)
	}

	segments, err := normalizeSegments(resp.Segments)
	if err != nil {
		return nil, failed(ProviderOpenAI, err)
	}

	return &Result{
		Text:           strings.TrimSpace(resp.Text),
		Segments:       segments,
		Language:       normalizeLanguage(resp.Language),
		Metadata:       buildMetadata(ProviderOpenAI, p.model, started, resp.Duration),
		StructuredData: structuredData(raw, opts.SaveRawFiles),
	}, nil
}

var _ Provider = (*OpenAIProvider)(nil)
