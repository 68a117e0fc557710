package repository

import (
	"errors"

	"clinicalnotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultTranscriptionRepository struct {
	db *gorm.DB
}

func NewTranscriptionRepository(db *gorm.DB) *DefaultTranscriptionRepository {
	return &DefaultTranscriptionRepository{db: db}
}

func (d *DefaultTranscriptionRepository) FindByNoteID(noteID string) (*entity.Transcription, error) {
	var transcription entity.Transcription
	err := d.db.Where("note_id = ?", noteID).First(&transcription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &transcription, nil
}

// FindByNoteIDUnscoped also sees the transcription of a deleted note, which
// still holds the unique slot.
func (d *DefaultTranscriptionRepository) FindByNoteIDUnscoped(noteID string) (*entity.Transcription, error) {
	var transcription entity.Transcription
	err := d.db.Unscoped().Where("note_id = ?", noteID).First(&transcription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &transcription, nil
}

// Create fails on the unique note_id index when the note already has one.
func (d *DefaultTranscriptionRepository) Create(transcription *entity.Transcription) error {
	return d.db.Create(transcription).Error
}
