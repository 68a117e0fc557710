package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const whisperFixture = `{
	"text": " hello world",
	"language": "en",
	"segments": [
		{"id": 0, "start": 0.0, "end": 2.0, "text": " hello world", "avg_logprob": -0.1053605}
	]
}`

func TestWhisperASRProviderRequestAndNormalisation(t *testing.T) {
	audio := []byte{0x00, 0x01, 0x02, 0xfe}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/asr" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("task") != "transcribe" || q.Get("output") != "json" || q.Get("encode") != "true" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}

		file, header, err := r.FormFile("audio_file")
		if err != nil {
			t.Errorf("missing audio_file: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer file.Close()

		got, _ := io.ReadAll(file)
		if string(got) != string(audio) {
			t.Errorf("audio bytes differ")
		}
		if header.Filename != "clip.webm" || header.Header.Get("Content-Type") != "audio/webm" {
			t.Errorf("unexpected part header %v", header.Header)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, whisperFixture)
	}))
	defer srv.Close()

	p := NewWhisperASRProvider(srv.URL+"/", time.Second)
	res, err := p.Transcribe(context.Background(), Audio{Data: audio, Filename: "clip.webm", ContentType: "audio/webm"}, Options{NoteID: "n1", SaveRawFiles: true})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if res.Text != "hello world" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Language != "en" {
		t.Errorf("language = %q", res.Language)
	}
	if len(res.Segments) != 1 {
		t.Fatalf("expected one segment, got %d", len(res.Segments))
	}

	seg := res.Segments[0]
	if seg.Start != 0 || seg.End != 2 || seg.Text != "hello world" {
		t.Errorf("unexpected segment %+v", seg)
	}
	if seg.Confidence == nil || math.Abs(*seg.Confidence-0.9) > 1e-6 {
		t.Errorf("expected logprob converted to ~0.9, got %v", seg.Confidence)
	}

	for _, key := range []string{"provider", "processingTime", "model"} {
		if _, ok := res.Metadata[key]; !ok {
			t.Errorf("metadata missing %q", key)
		}
	}
	if res.Metadata["provider"] != "whisper-api" {
		t.Errorf("provider = %v", res.Metadata["provider"])
	}
	if _, ok := res.StructuredData["raw"]; !ok {
		t.Errorf("raw response not kept")
	}
}

func TestWhisperASRProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non 2xx", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}},
		{"malformed json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"text": "hel`)
		}},
		{"segments out of order", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"text":"a b","segments":[{"start":2,"end":3,"text":"a"},{"start":1,"end":2,"text":"b"}]}`)
		}},
		{"segment ends before previous end", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"text":"a b","segments":[{"start":0,"end":5,"text":"a"},{"start":1,"end":2,"text":"b"}]}`)
		}},
		{"segment ends before start", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"text":"a","segments":[{"start":2,"end":1,"text":"a"}]}`)
		}},
		{"negative start", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"text":"a","segments":[{"start":-1,"end":1,"text":"a"}]}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewWhisperASRProvider(srv.URL, time.Second)
			res, err := p.Transcribe(context.Background(), Audio{Data: []byte("x"), Filename: "a.wav"}, Options{})
			if !errors.Is(err, ErrTranscriptionFailed) {
				t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
			}
			if res != nil {
				t.Fatalf("partial result returned: %+v", res)
			}
		})
	}
}

func TestWhisperASRProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewWhisperASRProvider(srv.URL, 50*time.Millisecond)
	_, err := p.Transcribe(context.Background(), Audio{Data: []byte("x")}, Options{})
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestProvidersRejectEmptyAudio(t *testing.T) {
	providers := []Provider{
		NewWhisperASRProvider("http://127.0.0.1:1", time.Second),
		NewOpenAIProvider("http://127.0.0.1:1", "key", "whisper-1", time.Second),
	}

	for _, p := range providers {
		_, err := p.Transcribe(context.Background(), Audio{}, Options{})
		if !errors.Is(err, ErrEmptyAudio) || !errors.Is(err, ErrTranscriptionFailed) {
			t.Errorf("%s: expected empty audio failure, got %v", p.Name(), err)
		}
	}
}

func TestOpenAIProviderRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("response_format") != "verbose_json" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		if r.FormValue("timestamp_granularities[]") != "segment" {
			t.Errorf("segment granularity not requested")
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     "Patient reports mild pain.",
			"language": "english",
			"duration": 3.2,
			"segments": []map[string]any{
				{"id": 0, "start": 0.0, "end": 1.5, "text": "Patient reports", "avg_logprob": -0.2},
				{"id": 1, "start": 1.5, "end": 3.2, "text": "mild pain.", "avg_logprob": 0.5},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "sk-test", "whisper-1", time.Second)
	res, err := p.Transcribe(context.Background(), Audio{Data: []byte("abc"), Filename: "a.mp3", ContentType: "audio/mpeg"}, Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if res.Language != "en" {
		t.Errorf("language = %q, want en", res.Language)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}
	for _, s := range res.Segments {
		if s.Confidence == nil || *s.Confidence < 0 || *s.Confidence > 1 {
			t.Errorf("confidence out of range: %v", s.Confidence)
		}
	}
	if res.Metadata["model"] != "whisper-1" || res.Metadata["provider"] != "openai" {
		t.Errorf("unexpected metadata %v", res.Metadata)
	}
	if len(res.StructuredData) != 0 {
		t.Errorf("raw data kept without SaveRawFiles")
	}
}

func TestOpenAIProviderWithoutKey(t *testing.T) {
	p := NewOpenAIProvider("http://127.0.0.1:1", "", "whisper-1", time.Second)

	_, err := p.Transcribe(context.Background(), Audio{Data: []byte("x")}, Options{})
	if !errors.Is(err, ErrTranscriptionFailed) || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNormalizeConfidence(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name       string
		confidence *float64
		logprob    *float64
		want       *float64
	}{
		{"direct score", f(0.75), nil, f(0.75)},
		{"score wins over logprob", f(0.5), f(-3), f(0.5)},
		{"logprob converted", nil, f(0), f(1)},
		{"positive logprob clamped", nil, f(2), f(1)},
		{"out of range score falls back", f(4), f(math.Log(0.25)), f(0.25)},
		{"nothing supplied", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeConfidence(tt.confidence, tt.logprob)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected nil, got %v", *got)
			case tt.want != nil && (got == nil || math.Abs(*got-*tt.want) > 1e-9):
				t.Errorf("got %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestNormalizeSegmentsDefaultsIndex(t *testing.T) {
	start, end := 1.0, 2.0
	segs, err := normalizeSegments([]segmentResponse{{Start: &start, End: &end, Text: " hi "}})
	if err != nil {
		t.Fatalf("normalizeSegments: %v", err)
	}
	if segs[0].ID != 0 || segs[0].Text != "hi" || segs[0].Confidence != nil {
		t.Errorf("unexpected segment %+v", segs[0])
	}
}

func TestRegistryFallsBackToPrimary(t *testing.T) {
	whisper := NewWhisperASRProvider("http://localhost:9000", time.Second)
	openai := NewOpenAIProvider("https://api.openai.com", "k", "whisper-1", time.Second)
	r := NewRegistry(whisper, openai)

	if p, ok := r.Resolve("openai"); !ok || p != Provider(openai) {
		t.Errorf("openai not resolved")
	}
	if p, ok := r.Resolve("WhisperAPI"); !ok || p != Provider(whisper) {
		t.Errorf("lookup should ignore case")
	}
	if p, ok := r.Resolve("deepgram"); ok || p != Provider(whisper) {
		t.Errorf("unknown key should fall back to primary")
	}
}
