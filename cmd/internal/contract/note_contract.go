package contract

import "clinicalnotes/cmd/internal/domain/entity"

const (
	MaxAudioFileSizeBytes = 50 * 1024 * 1024
	MaxNoteContentLength  = 100000
)

// CreateNoteRequest arrives as multipart/form-data next to the optional audio file.
type CreateNoteRequest struct {
	Content     string `form:"content" json:"content" validate:"required_unless=IsVoiceNote true,max=100000"`
	IsVoiceNote bool   `form:"isVoiceNote" json:"isVoiceNote"`
	UserID      string `form:"userId" json:"userId" validate:"required,uuid"`
}

type UpdateNoteRequest struct {
	Content *string `json:"content" validate:"omitempty,max=100000"`
}

type NoteResponse struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"userId"`
	PatientID     string                 `json:"patientId"`
	Content       *string                `json:"content"`
	AudioFilePath *string                `json:"audioFilePath"`
	IsVoiceNote   bool                   `json:"isVoiceNote"`
	Patient       *PatientResponse       `json:"patient,omitempty"`
	Transcription *TranscriptionResponse `json:"transcription,omitempty"`
	CreatedAt     string                 `json:"createdAt"`
	UpdatedAt     string                 `json:"updatedAt"`
}

type TranscriptionResponse struct {
	ID             string           `json:"id"`
	NoteID         string           `json:"noteId"`
	Text           string           `json:"text"`
	Segments       []entity.Segment `json:"segments"`
	Language       *string          `json:"language"`
	StructuredData map[string]any   `json:"structuredData"`
	Metadata       map[string]any   `json:"metadata"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
}

// AudioFile describes the stored audio of a voice note.
type AudioFile struct {
	Filename    string
	ContentType string
}
