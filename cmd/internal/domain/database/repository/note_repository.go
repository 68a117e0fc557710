package repository

import (
	"errors"

	"clinicalnotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultNoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *DefaultNoteRepository {
	return &DefaultNoteRepository{db: db}
}

// withRelations loads the patient even when it has been soft-deleted, a note
// must always be able to show who it belongs to.
func (d *DefaultNoteRepository) withRelations() *gorm.DB {
	return d.db.
		Preload("Patient", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Preload("Transcription")
}

func (d *DefaultNoteRepository) FindAll() ([]*entity.Note, error) {
	var notes []*entity.Note
	err := d.withRelations().Order("created_at DESC").Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (d *DefaultNoteRepository) FindAllByPatient(patientID string) ([]*entity.Note, error) {
	var notes []*entity.Note
	err := d.withRelations().
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (d *DefaultNoteRepository) FindByID(id string) (*entity.Note, error) {
	var note entity.Note
	err := d.withRelations().First(&note, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &note, nil
}

// FindByIDUnscoped also returns soft-deleted notes.
func (d *DefaultNoteRepository) FindByIDUnscoped(id string) (*entity.Note, error) {
	var note entity.Note
	err := d.db.Unscoped().First(&note, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (d *DefaultNoteRepository) Create(note *entity.Note) error {
	return d.db.Omit(clause.Associations).Create(note).Error
}

// UpdateContent only touches an active note. The bool is false when no
// active note matched id.
func (d *DefaultNoteRepository) UpdateContent(id string, content *string) (bool, error) {
	result := d.db.Model(&entity.Note{}).Where("id = ?", id).Update("content", content)
	return result.RowsAffected > 0, result.Error
}

func (d *DefaultNoteRepository) UpdateAudioPath(id, path string) error {
	return d.db.Model(&entity.Note{ID: id}).Update("audio_file_path", path).Error
}

// Delete soft-deletes the note together with its transcription.
func (d *DefaultNoteRepository) Delete(note *entity.Note) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", note.ID).Delete(&entity.Transcription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Note{}, "id = ?", note.ID).Error
	})
}

// Purge removes the row for good. Only used to roll back a failed creation.
func (d *DefaultNoteRepository) Purge(id string) error {
	return d.db.Unscoped().Delete(&entity.Note{}, "id = ?", id).Error
}

// Restore brings back the note and its transcription.
func (d *DefaultNoteRepository) Restore(id string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Unscoped().
			Model(&entity.Note{}).
			Where("id = ?", id).
			Update("deleted_at", nil).Error
		if err != nil {
			return err
		}

		return tx.Unscoped().
			Model(&entity.Transcription{}).
			Where("note_id = ?", id).
			Update("deleted_at", nil).Error
	})
}
