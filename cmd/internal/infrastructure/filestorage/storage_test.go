package filestorage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"clinicalnotes/cmd/internal/config"
)

func TestBuildPath(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"with extension", "recording.webm", "p-1/1700000000123-n-1.webm"},
		{"nested name", "../tmp/voice.mp3", "p-1/1700000000123-n-1.mp3"},
		{"no extension", "blob", "p-1/1700000000123-n-1"},
		{"empty name", "", "p-1/1700000000123-n-1"},
		{"dot name", ".", "p-1/1700000000123-n-1"},
		{"parent name", "..", "p-1/1700000000123-n-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildPath("p-1", "n-1", tt.filename, now)
			if got != tt.want {
				t.Errorf("BuildPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalBackendRoundTrip(t *testing.T) {
	root := t.TempDir()
	backend, err := NewLocalBackend(root)
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}

	data := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0xff, 0x10}
	router := NewRouterWithBackend(backend)

	rel, err := router.SaveFile(context.Background(), Upload{Data: data, Filename: "clip.webm"}, "patient", "note")
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if filepath.IsAbs(rel) || !strings.HasPrefix(rel, "patient/") || !strings.HasSuffix(rel, "-note.webm") {
		t.Fatalf("unexpected relative path %q", rel)
	}

	onDisk, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Fatalf("stored bytes differ")
	}

	rc, err := router.Open(context.Background(), rel)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip bytes differ")
	}

	leftovers, _ := filepath.Glob(filepath.Join(root, "patient", ".upload-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestLocalBackendIdempotentRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	for i := 0; i < 2; i++ {
		if _, err := NewLocalBackend(root); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
}

func TestLocalBackendRejectsEscapingPaths(t *testing.T) {
	backend, _ := NewLocalBackend(t.TempDir())

	for _, p := range []string{"../outside.webm", "/etc/passwd", ""} {
		if _, err := backend.Save(context.Background(), []byte("x"), p, ""); !errors.Is(err, ErrStorageFault) {
			t.Errorf("Save(%q) error = %v, want ErrStorageFault", p, err)
		}
	}
}

func TestLocalBackendMissingFile(t *testing.T) {
	backend, _ := NewLocalBackend(t.TempDir())

	_, err := backend.Open(context.Background(), "p/none.webm")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalBackendConcurrentSaves(t *testing.T) {
	backend, _ := NewLocalBackend(t.TempDir())
	router := NewRouterWithBackend(backend)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			noteID := string(rune('a' + i))
			if _, err := router.SaveFile(context.Background(), Upload{Data: []byte(noteID), Filename: "x.wav"}, "p", noteID); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent save: %v", err)
	}
}

func TestNewRouterUnknownType(t *testing.T) {
	_, err := NewRouter(context.Background(), config.StorageConfig{Type: "ftp"})
	if err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}

func TestNewRouterLocalWithRetries(t *testing.T) {
	router, err := NewRouter(context.Background(), config.StorageConfig{
		Type:      TypeLocal,
		LocalPath: t.TempDir(),
		Retries:   2,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if _, ok := router.backend.(*RetryBackend); !ok {
		t.Fatalf("expected retry decorator, got %T", router.backend)
	}
}

// fakeS3 speaks just enough of the path-style S3 REST API for Put and Get.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[r.URL.Path])
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Backend(t *testing.T, handler http.Handler) *S3Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("key", "secret", ""),
		Retryer:                    aws.NopRetryer{},
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return NewS3BackendWithClient(client, "notes")
}

func TestS3BackendRoundTrip(t *testing.T) {
	fake := newFakeS3()
	router := NewRouterWithBackend(newTestS3Backend(t, fake))

	data := []byte("RIFF....WAVEfmt ")
	rel, err := router.SaveFile(context.Background(), Upload{Data: data, Filename: "visit.wav", ContentType: "audio/wav"}, "p-9", "n-9")
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if !strings.HasPrefix(rel, "p-9/") || !strings.HasSuffix(rel, "-n-9.wav") {
		t.Fatalf("unexpected key %q", rel)
	}

	fake.mu.Lock()
	stored, ok := fake.objects["/notes/"+rel]
	contentType := fake.types["/notes/"+rel]
	fake.mu.Unlock()
	if !ok || !bytes.Equal(stored, data) {
		t.Fatalf("object not stored under /notes/%s", rel)
	}
	if contentType != "audio/wav" {
		t.Errorf("content type = %q, want audio/wav", contentType)
	}

	rc, err := router.Open(context.Background(), rel)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip bytes differ")
	}
}

func TestS3BackendMissingKey(t *testing.T) {
	backend := newTestS3Backend(t, newFakeS3())

	_, err := backend.Open(context.Background(), "p/missing.webm")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestS3BackendServerError(t *testing.T) {
	backend := newTestS3Backend(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := backend.Save(context.Background(), []byte("x"), "p/a.webm", "audio/webm")
	if !errors.Is(err, ErrStorageFault) {
		t.Fatalf("expected ErrStorageFault, got %v", err)
	}
}

func TestLocalAndS3ProduceSamePath(t *testing.T) {
	now := time.UnixMilli(42)
	local := NewRouterWithBackend(&recordingBackend{})
	local.now = func() time.Time { return now }
	remote := NewRouterWithBackend(&recordingBackend{})
	remote.now = func() time.Time { return now }

	a, _ := local.SaveFile(context.Background(), Upload{Data: []byte("x"), Filename: "a.ogg"}, "p", "n")
	b, _ := remote.SaveFile(context.Background(), Upload{Data: []byte("x"), Filename: "a.ogg"}, "p", "n")
	if a != b || a != "p/42-n.ogg" {
		t.Fatalf("paths differ: %q vs %q", a, b)
	}
}

type recordingBackend struct {
	mu    sync.Mutex
	calls int
	fails int
}

func (r *recordingBackend) Save(_ context.Context, _ []byte, relPath, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.fails {
		return "", ErrStorageFault
	}
	return relPath, nil
}

func (r *recordingBackend) Open(_ context.Context, relPath string) (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil, ErrObjectNotFound
}

func TestRetryBackendRetriesSave(t *testing.T) {
	inner := &recordingBackend{fails: 2}
	rb := NewRetryBackend(inner, 3)
	rb.initial = time.Millisecond

	path, err := rb.Save(context.Background(), []byte("x"), "p/a.webm", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != "p/a.webm" || inner.calls != 3 {
		t.Fatalf("path=%q calls=%d", path, inner.calls)
	}
}

func TestRetryBackendGivesUp(t *testing.T) {
	inner := &recordingBackend{fails: 10}
	rb := NewRetryBackend(inner, 1)
	rb.initial = time.Millisecond

	_, err := rb.Save(context.Background(), []byte("x"), "p/a.webm", "")
	if !errors.Is(err, ErrStorageFault) {
		t.Fatalf("expected ErrStorageFault, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", inner.calls)
	}
}

func TestRetryBackendDoesNotRetryNotFound(t *testing.T) {
	inner := &recordingBackend{}
	rb := NewRetryBackend(inner, 5)
	rb.initial = time.Millisecond

	_, err := rb.Open(context.Background(), "p/missing")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", inner.calls)
	}
}
