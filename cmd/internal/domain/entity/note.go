package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note is a clinical record attached to one patient and written by one user.
//
// A voice note carries the relative path of its audio payload. The path is
// relative to whichever file storage backend was active when it got saved,
// so it survives swapping backends.
type Note struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)"`
	UserID        string  `gorm:"not null;index;type:varchar(36)"` // References: users(id)
	PatientID     string  `gorm:"not null;index;type:varchar(36)"` // References: patients(id)
	Content       *string `gorm:"type:text"`
	AudioFilePath *string `gorm:"type:varchar(255)"`
	IsVoiceNote   bool    `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`

	// Relations
	User          User           `gorm:"foreignKey:UserID;references:ID"`
	Patient       Patient        `gorm:"foreignKey:PatientID;references:ID"`
	Transcription *Transcription `gorm:"foreignKey:NoteID;references:ID"`
}

func (n *Note) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// HasAudio reports whether the audio payload of the note has been persisted.
func (n *Note) HasAudio() bool {
	return n.AudioFilePath != nil && *n.AudioFilePath != ""
}
