package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(New())

	if cfg.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Port)
	}
	if cfg.Storage.Type != "local" {
		t.Errorf("expected local storage by default, got %q", cfg.Storage.Type)
	}
	if cfg.Storage.LocalPath != "config/data/uploads" {
		t.Errorf("unexpected local path %q", cfg.Storage.LocalPath)
	}
	if cfg.Transcription.Timeout != 5*time.Minute {
		t.Errorf("expected 5m transcription timeout, got %s", cfg.Transcription.Timeout)
	}
	if cfg.Dispatch.Mode != "memory" {
		t.Errorf("expected memory dispatch, got %q", cfg.Dispatch.Mode)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv(KeyStorageType, "s3")
	t.Setenv(KeyS3Bucket, "notes-audio")
	t.Setenv(KeyTranscriptionTimeout, "90s")
	t.Setenv(KeyWorkers, "8")

	cfg := Load(New())

	if cfg.Storage.Type != "s3" {
		t.Errorf("expected s3, got %q", cfg.Storage.Type)
	}
	if cfg.Storage.S3.Bucket != "notes-audio" {
		t.Errorf("expected bucket notes-audio, got %q", cfg.Storage.S3.Bucket)
	}
	if cfg.Transcription.Timeout != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.Transcription.Timeout)
	}
	if cfg.Dispatch.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Dispatch.Workers)
	}
}

func TestProviderKeyIsLive(t *testing.T) {
	v := New()
	if got := v.GetString(KeyTranscriptionProvider); got != "whisperApi" {
		t.Fatalf("expected default whisperApi, got %q", got)
	}

	t.Setenv(KeyTranscriptionProvider, "openai")
	if got := v.GetString(KeyTranscriptionProvider); got != "openai" {
		t.Fatalf("expected viper to pick up the new value, got %q", got)
	}
}
