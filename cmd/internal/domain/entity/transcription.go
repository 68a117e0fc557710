package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Segment is a timed span of a transcription. Start and End are seconds.
type Segment struct {
	ID         int      `json:"id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Transcription is the normalized speech-to-text result of a voice note.
// A note owns at most one, enforced by the unique index on NoteID.
type Transcription struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	NoteID         string `gorm:"not null;uniqueIndex;type:varchar(36)"`
	Text           string `gorm:"type:text;not null"`
	Segments       datatypes.JSONSlice[Segment]
	Language       *string `gorm:"type:varchar(10)"`
	StructuredData datatypes.JSONMap
	Metadata       datatypes.JSONMap
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (t *Transcription) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
