package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"clinicalnotes/cmd/internal/contract"
	"clinicalnotes/cmd/internal/infrastructure/filestorage"
	"clinicalnotes/cmd/internal/utils/apierror"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type NoteService interface {
	Create(ctx context.Context, req *contract.CreateNoteRequest, patientID string, audio *filestorage.Upload) (*contract.NoteResponse, apierror.ErrorResponse)
	FindAll() ([]*contract.NoteResponse, apierror.ErrorResponse)
	FindAllByPatient(patientID string) ([]*contract.NoteResponse, apierror.ErrorResponse)
	FindOne(id string) (*contract.NoteResponse, apierror.ErrorResponse)
	Update(id string, req *contract.UpdateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse)
	Remove(id string) apierror.ErrorResponse
	Recover(id string) apierror.ErrorResponse
	GetTranscription(id string) (*contract.TranscriptionResponse, apierror.ErrorResponse)
	GetAudioFile(ctx context.Context, id string) (io.ReadCloser, *contract.AudioFile, apierror.ErrorResponse)
}

type DefaultNoteRoute struct {
	NoteService NoteService
}

func NewNoteDefault(noteService NoteService) *DefaultNoteRoute {
	return &DefaultNoteRoute{NoteService: noteService}
}

func (n *DefaultNoteRoute) GetNotes(c echo.Context) error {
	notes, apierr := n.NoteService.FindAll()
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"notes": notes}
	return c.JSON(http.StatusOK, &resp)
}

func (n *DefaultNoteRoute) GetPatientNotes(c echo.Context) error {
	patientID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	notes, apierr := n.NoteService.FindAllByPatient(patientID)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"notes": notes}
	return c.JSON(http.StatusOK, &resp)
}

func (n *DefaultNoteRoute) GetNote(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	note, apierr := n.NoteService.FindOne(id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, note)
}

// CreateNote expects multipart/form-data. The audio part is optional,
// its presence turns the note into a voice note.
func (n *DefaultNoteRoute) CreateNote(c echo.Context) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		mediaTypeError := apierror.InvalidMediaTypeError
		return c.JSON(http.StatusUnsupportedMediaType, &mediaTypeError)
	}

	patientID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	var req contract.CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	audio, apierr := readAudio(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	note, apierr := n.NoteService.Create(c.Request().Context(), &req, patientID, audio)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, &note)
}

func (n *DefaultNoteRoute) UpdateNote(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	var req contract.UpdateNoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	note, apierr := n.NoteService.Update(id, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, &note)
}

func (n *DefaultNoteRoute) DeleteNote(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	if apierr := n.NoteService.Remove(id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

func (n *DefaultNoteRoute) RecoverNote(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	if apierr := n.NoteService.Recover(id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

// GetTranscription answers 200 with a null body while no transcription exists.
func (n *DefaultNoteRoute) GetTranscription(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	transcription, apierr := n.NoteService.GetTranscription(id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, transcription)
}

func (n *DefaultNoteRoute) GetAudio(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	rc, info, apierr := n.NoteService.GetAudioFile(c.Request().Context(), id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", info.Filename))
	return c.Stream(http.StatusOK, info.ContentType, rc)
}

// readAudio returns (nil, nil) when the form carries no audio part.
func readAudio(c echo.Context) (*filestorage.Upload, apierror.ErrorResponse) {
	fileHeader, err := c.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}

	if err != nil {
		return nil, apierror.MalformedBodyError
	}

	if fileHeader.Size > contract.MaxAudioFileSizeBytes {
		return nil, apierror.NewAudioTooLargeError(contract.MaxAudioFileSizeBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("failed to open uploaded audio %q: %v", fileHeader.Filename, err)
		return nil, apierror.InternalServerError
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, contract.MaxAudioFileSizeBytes+1))
	if err != nil {
		log.Errorf("failed to read uploaded audio %q: %v", fileHeader.Filename, err)
		return nil, apierror.InternalServerError
	}

	return &filestorage.Upload{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
	}, nil
}

func pathID(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if err := uuid.Validate(id); err != nil {
		return "", false
	}
	return id, true
}
