package service

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"clinicalnotes/cmd/internal/contract"
	"clinicalnotes/cmd/internal/domain/entity"
	"clinicalnotes/cmd/internal/infrastructure/filestorage"
	"clinicalnotes/cmd/internal/utils"
	"clinicalnotes/cmd/internal/utils/apierror"
	"clinicalnotes/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

type NoteRepository interface {
	FindAll() ([]*entity.Note, error)
	FindAllByPatient(patientID string) ([]*entity.Note, error)
	FindByID(id string) (*entity.Note, error)
	FindByIDUnscoped(id string) (*entity.Note, error)
	Create(note *entity.Note) error
	UpdateContent(id string, content *string) (bool, error)
	UpdateAudioPath(id, path string) error
	Delete(note *entity.Note) error
	Purge(id string) error
	Restore(id string) error
}

type FileStorage interface {
	SaveFile(ctx context.Context, upload filestorage.Upload, patientID, noteID string) (string, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
}

type TranscriptionReader interface {
	GetByNoteID(noteID string) (*contract.TranscriptionResponse, apierror.ErrorResponse)
}

type DefaultNoteService struct {
	NoteRepo       NoteRepository
	PatientRepo    PatientRepository
	UserRepo       UserRepository
	Storage        FileStorage
	Transcriptions TranscriptionReader
	Dispatcher     TranscriptionDispatcher
	Validate       *validator.Validate
}

func NewNoteService(
	noteRepo NoteRepository,
	patientRepo PatientRepository,
	userRepo UserRepository,
	storage FileStorage,
	transcriptions TranscriptionReader,
	dispatcher TranscriptionDispatcher,
	validate *validator.Validate,
) *DefaultNoteService {
	return &DefaultNoteService{
		NoteRepo:       noteRepo,
		PatientRepo:    patientRepo,
		UserRepo:       userRepo,
		Storage:        storage,
		Transcriptions: transcriptions,
		Dispatcher:     dispatcher,
		Validate:       validate,
	}
}

// Create persists a note for patientID. When audio is given the note becomes
// a voice note: the row is inserted first to get its id, then the audio is
// stored and only once both are durable the transcription is dispatched.
// A storage failure rolls the row back.
func (n *DefaultNoteService) Create(ctx context.Context, req *contract.CreateNoteRequest, patientID string, audio *filestorage.Upload) (*contract.NoteResponse, apierror.ErrorResponse) {
	if audio != nil {
		req.IsVoiceNote = true
	}

	utils.Sanitize(req)
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	if req.IsVoiceNote && audio == nil {
		return nil, apierror.VoiceNoteNoAudioError
	}

	if audio != nil {
		if apierr := checkAudio(audio); apierr != nil {
			return nil, apierr
		}
	}

	patient, err := n.PatientRepo.FindByID(patientID)
	if err != nil {
		log.Errorf("failed to fetch patient %s: %v", patientID, err)
		return nil, apierror.InternalServerError
	}

	if patient == nil {
		return nil, apierror.NewNotFoundError("Patient", patientID)
	}

	user, err := n.UserRepo.FindByID(req.UserID)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", req.UserID, err)
		return nil, apierror.InternalServerError
	}

	if user == nil {
		return nil, apierror.NewNotFoundError("User", req.UserID)
	}

	note := &entity.Note{
		UserID:      user.ID,
		PatientID:   patient.ID,
		Content:     nilIfEmpty(req.Content),
		IsVoiceNote: req.IsVoiceNote,
	}

	if err = n.NoteRepo.Create(note); err != nil {
		log.Errorf("failed to create note: %v", err)
		return nil, apierror.InternalServerError
	}

	if audio != nil {
		if apierr := n.storeAudio(ctx, note, audio); apierr != nil {
			return nil, apierr
		}
		n.dispatchTranscription(note, audio)
	}

	note.Patient = *patient
	return toNoteResponse(note), nil
}

func (n *DefaultNoteService) storeAudio(ctx context.Context, note *entity.Note, audio *filestorage.Upload) apierror.ErrorResponse {
	relPath, err := n.Storage.SaveFile(ctx, *audio, note.PatientID, note.ID)
	if err != nil {
		log.Errorf("failed to store audio of note %s: %v", note.ID, err)
		n.rollback(note.ID)
		return apierror.StorageFaultError
	}

	if err = n.NoteRepo.UpdateAudioPath(note.ID, relPath); err != nil {
		log.Errorf("failed to save audio path of note %s: %v", note.ID, err)
		n.rollback(note.ID)
		return apierror.InternalServerError
	}

	note.AudioFilePath = &relPath
	return nil
}

func (n *DefaultNoteService) rollback(noteID string) {
	if err := n.NoteRepo.Purge(noteID); err != nil {
		log.Errorf("failed to roll back note %s: %v", noteID, err)
	}
}

// dispatchTranscription never fails the request, a rejected job only leaves
// the note without a transcription.
func (n *DefaultNoteService) dispatchTranscription(note *entity.Note, audio *filestorage.Upload) {
	job := TranscriptionJob{
		NoteID:      note.ID,
		AudioPath:   *note.AudioFilePath,
		Filename:    audio.Filename,
		ContentType: audio.ContentType,
		Audio:       audio.Data,
	}

	if err := n.Dispatcher.Enqueue(job); err != nil {
		log.Errorf("failed to dispatch transcription of note %s: %v", note.ID, err)
	}
}

func (n *DefaultNoteService) FindAll() ([]*contract.NoteResponse, apierror.ErrorResponse) {
	notes, err := n.NoteRepo.FindAll()
	if err != nil {
		log.Errorf("failed to fetch notes: %v", err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponses(notes), nil
}

func (n *DefaultNoteService) FindAllByPatient(patientID string) ([]*contract.NoteResponse, apierror.ErrorResponse) {
	patient, err := n.PatientRepo.FindByID(patientID)
	if err != nil {
		log.Errorf("failed to fetch patient %s: %v", patientID, err)
		return nil, apierror.InternalServerError
	}

	if patient == nil {
		return nil, apierror.NewNotFoundError("Patient", patientID)
	}

	notes, err := n.NoteRepo.FindAllByPatient(patientID)
	if err != nil {
		log.Errorf("failed to fetch notes of patient %s: %v", patientID, err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponses(notes), nil
}

func (n *DefaultNoteService) FindOne(id string) (*contract.NoteResponse, apierror.ErrorResponse) {
	note, apierr := n.findActive(id)
	if apierr != nil {
		return nil, apierr
	}
	return toNoteResponse(note), nil
}

func (n *DefaultNoteService) Update(id string, req *contract.UpdateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	note, apierr := n.findActive(id)
	if apierr != nil {
		return nil, apierr
	}

	if req.Content != nil {
		if *req.Content == "" && !note.IsVoiceNote {
			structured := apierror.NewStructured(http.StatusBadRequest)
			structured.Add("content", "Text notes cannot have empty content")
			return nil, structured
		}

		// A concurrent remove makes the scoped update miss
		updated, err := n.NoteRepo.UpdateContent(id, nilIfEmpty(*req.Content))
		if err != nil {
			log.Errorf("failed to update note %s: %v", id, err)
			return nil, apierror.InternalServerError
		}

		if !updated {
			return nil, apierror.NewNotFoundError("Note", id)
		}
	}

	return n.FindOne(id)
}

// Remove soft-deletes the note. A note that is already deleted is reported
// as not found, just like one that never existed.
func (n *DefaultNoteService) Remove(id string) apierror.ErrorResponse {
	note, apierr := n.findActive(id)
	if apierr != nil {
		return apierr
	}

	if err := n.NoteRepo.Delete(note); err != nil {
		log.Errorf("failed to delete note %s: %v", id, err)
		return apierror.InternalServerError
	}
	return nil
}

func (n *DefaultNoteService) Recover(id string) apierror.ErrorResponse {
	note, err := n.NoteRepo.FindByIDUnscoped(id)
	if err != nil {
		log.Errorf("failed to fetch note %s: %v", id, err)
		return apierror.InternalServerError
	}

	if note == nil {
		return apierror.NewNotFoundError("Note", id)
	}

	if !note.DeletedAt.Valid {
		return apierror.NewConflictError("Note with ID %q is not deleted", id)
	}

	if err = n.NoteRepo.Restore(id); err != nil {
		log.Errorf("failed to recover note %s: %v", id, err)
		return apierror.InternalServerError
	}
	return nil
}

// GetTranscription returns (nil, nil) while the transcription is pending or
// after it failed, the two cannot be told apart here.
func (n *DefaultNoteService) GetTranscription(id string) (*contract.TranscriptionResponse, apierror.ErrorResponse) {
	if _, apierr := n.findActive(id); apierr != nil {
		return nil, apierr
	}
	return n.Transcriptions.GetByNoteID(id)
}

// GetAudioFile opens the stored audio of a voice note. Callers close the reader.
func (n *DefaultNoteService) GetAudioFile(ctx context.Context, id string) (io.ReadCloser, *contract.AudioFile, apierror.ErrorResponse) {
	note, apierr := n.findActive(id)
	if apierr != nil {
		return nil, nil, apierr
	}

	if !note.HasAudio() {
		return nil, nil, apierror.NewNotFoundError("Audio file of note", id)
	}

	relPath := *note.AudioFilePath
	rc, err := n.Storage.Open(ctx, relPath)
	if errors.Is(err, filestorage.ErrObjectNotFound) {
		log.Warnf("audio %s of note %s is missing from storage", relPath, id)
		return nil, nil, apierror.NewNotFoundError("Audio file of note", id)
	}

	if err != nil {
		log.Errorf("failed to open audio of note %s: %v", id, err)
		return nil, nil, apierror.StorageFaultError
	}

	contentType := mime.TypeByExtension(path.Ext(relPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, &contract.AudioFile{Filename: path.Base(relPath), ContentType: contentType}, nil
}

func (n *DefaultNoteService) findActive(id string) (*entity.Note, apierror.ErrorResponse) {
	note, err := n.NoteRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch note %s: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if note == nil {
		return nil, apierror.NewNotFoundError("Note", id)
	}
	return note, nil
}

func checkAudio(audio *filestorage.Upload) apierror.ErrorResponse {
	if strings.TrimSpace(audio.Filename) == "" {
		return apierror.MissingFileNameError
	}

	if len(audio.Data) == 0 {
		return apierror.EmptyAudioError
	}

	if len(audio.Data) > contract.MaxAudioFileSizeBytes {
		return apierror.NewAudioTooLargeError(contract.MaxAudioFileSizeBytes)
	}

	if ext, ok := utils.CheckFileExt(audio.Filename, validators.AudioExtensions); !ok {
		return apierror.NewInvalidAudioExtError(ext)
	}
	return nil
}

func toNoteResponses(notes []*entity.Note) []*contract.NoteResponse {
	resp := make([]*contract.NoteResponse, len(notes))
	for i, note := range notes {
		resp[i] = toNoteResponse(note)
	}
	return resp
}

func toNoteResponse(note *entity.Note) *contract.NoteResponse {
	resp := &contract.NoteResponse{
		ID:            note.ID,
		UserID:        note.UserID,
		PatientID:     note.PatientID,
		Content:       note.Content,
		AudioFilePath: note.AudioFilePath,
		IsVoiceNote:   note.IsVoiceNote,
		CreatedAt:     utils.FormatTime(note.CreatedAt),
		UpdatedAt:     utils.FormatTime(note.UpdatedAt),
	}

	if note.Patient.ID != "" {
		resp.Patient = toPatientResponse(&note.Patient)
	}
	if note.Transcription != nil {
		resp.Transcription = toTranscriptionResponse(note.Transcription)
	}
	return resp
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
