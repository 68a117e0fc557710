package service

import (
	"context"
	"fmt"

	"clinicalnotes/cmd/internal/config"
	"clinicalnotes/cmd/internal/contract"
	"clinicalnotes/cmd/internal/domain/entity"
	"clinicalnotes/cmd/internal/infrastructure/transcription"
	"clinicalnotes/cmd/internal/utils"
	"clinicalnotes/cmd/internal/utils/apierror"

	"github.com/labstack/gommon/log"
)

type TranscriptionRepository interface {
	FindByNoteID(noteID string) (*entity.Transcription, error)
	FindByNoteIDUnscoped(noteID string) (*entity.Transcription, error)
	Create(transcription *entity.Transcription) error
}

type ProviderResolver interface {
	Resolve(key string) (transcription.Provider, bool)
}

// SettingsReader is the live configuration surface, *viper.Viper satisfies it.
type SettingsReader interface {
	GetString(key string) string
}

type DefaultTranscriptionService struct {
	Repo      TranscriptionRepository
	Providers ProviderResolver
	Settings  SettingsReader
}

func NewTranscriptionService(
	repo TranscriptionRepository,
	providers ProviderResolver,
	settings SettingsReader,
) *DefaultTranscriptionService {
	return &DefaultTranscriptionService{
		Repo:      repo,
		Providers: providers,
		Settings:  settings,
	}
}

// Transcribe runs the configured provider on audio and persists the result
// for noteID. The provider key is looked up on every call. An existing
// transcription is returned untouched.
func (t *DefaultTranscriptionService) Transcribe(ctx context.Context, noteID string, audio transcription.Audio) (*entity.Transcription, error) {
	existing, err := t.Repo.FindByNoteIDUnscoped(noteID)
	if err != nil {
		return nil, fmt.Errorf("check existing transcription: %w", err)
	}

	if existing != nil {
		log.Infof("note %s already has a transcription, skipping", noteID)
		return existing, nil
	}

	key := t.Settings.GetString(config.KeyTranscriptionProvider)
	provider, known := t.Providers.Resolve(key)
	if !known {
		log.Warnf("unknown transcription provider %q, using %s", key, provider.Name())
	}

	log.Infof("starting transcription for note %s using %s provider", noteID, provider.Name())
	result, err := provider.Transcribe(ctx, audio, transcription.Options{NoteID: noteID, SaveRawFiles: true})
	if err != nil {
		log.Errorf("transcription failed for note %s: %v", noteID, err)
		return nil, err
	}

	record := toTranscriptionEntity(noteID, result)
	if err = t.Repo.Create(record); err != nil {
		// Another attempt may have won the unique slot in the meantime
		winner, ferr := t.Repo.FindByNoteIDUnscoped(noteID)
		if ferr == nil && winner != nil {
			log.Warnf("transcription for note %s was stored concurrently, discarding duplicate", noteID)
			return winner, nil
		}

		log.Errorf("failed to save transcription for note %s: %v", noteID, err)
		return nil, fmt.Errorf("save transcription: %w", err)
	}

	log.Infof("transcription completed for note %s", noteID)
	return record, nil
}

// GetByNoteID returns (nil, nil) while a note has no transcription.
func (t *DefaultTranscriptionService) GetByNoteID(noteID string) (*contract.TranscriptionResponse, apierror.ErrorResponse) {
	record, err := t.Repo.FindByNoteID(noteID)
	if err != nil {
		log.Errorf("failed to fetch transcription of note %s: %v", noteID, err)
		return nil, apierror.InternalServerError
	}

	if record == nil {
		return nil, nil
	}
	return toTranscriptionResponse(record), nil
}

func toTranscriptionEntity(noteID string, result *transcription.Result) *entity.Transcription {
	record := &entity.Transcription{
		NoteID:         noteID,
		Text:           result.Text,
		Segments:       result.Segments,
		StructuredData: result.StructuredData,
		Metadata:       result.Metadata,
	}

	if record.Segments == nil {
		record.Segments = []entity.Segment{}
	}
	if record.StructuredData == nil {
		record.StructuredData = map[string]any{}
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	if result.Language != "" {
		record.Language = &result.Language
	}
	return record
}

func toTranscriptionResponse(t *entity.Transcription) *contract.TranscriptionResponse {
	segments := []entity.Segment(t.Segments)
	if segments == nil {
		segments = []entity.Segment{}
	}

	structured := map[string]any(t.StructuredData)
	if structured == nil {
		structured = map[string]any{}
	}

	metadata := map[string]any(t.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	return &contract.TranscriptionResponse{
		ID:             t.ID,
		NoteID:         t.NoteID,
		Text:           t.Text,
		Segments:       segments,
		Language:       t.Language,
		StructuredData: structured,
		Metadata:       metadata,
		CreatedAt:      utils.FormatTime(t.CreatedAt),
		UpdatedAt:      utils.FormatTime(t.UpdatedAt),
	}
}
