package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse abstracts all API error responses to the user.
//
// This interface does not implement `error`, since its only purpose
// is to be used for API responses and not for logging circumstances.
//
// In general, the whole ErrorResponse can be sent for serialization.
type ErrorResponse interface {
	// Code is the HTTP status code to be returned.
	Code() int
}

type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (a *APIError) Code() int {
	return a.Status
}

type StructuredError struct {
	Errors map[string][]string `json:"errors"`
	Status int                 `json:"-"`
}

func (s *StructuredError) Code() int {
	return s.Status
}

func (s *StructuredError) Add(field, problem string) {
	s.Errors[field] = append(s.Errors[field], problem)
}

var (
	MalformedBodyError  = NewSimple(http.StatusBadRequest, "Malformed request body")
	InternalServerError = NewSimple(http.StatusInternalServerError, "Internal server error")
	NotFoundError       = NewSimple(http.StatusNotFound, "Resource not found")

	// StorageFaultError is returned when the audio payload of a note could not be persisted.
	StorageFaultError = NewSimple(http.StatusBadGateway, "Failed to store audio file")

	MissingFileNameError  = NewSimple(http.StatusBadRequest, "Audio file must have a name")
	EmptyAudioError       = NewSimple(http.StatusBadRequest, "Audio file is empty")
	VoiceNoteNoAudioError = NewSimple(http.StatusBadRequest, "Voice notes require an audio file")
	InvalidMediaTypeError = NewSimple(http.StatusUnsupportedMediaType, "Expected multipart/form-data")
	InvalidIDError        = NewSimple(http.StatusBadRequest, "The provided ID is invalid, IDs are UUIDs")
)

func FromValidationError(err error) *StructuredError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	problems := map[string][]string{}
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required", "required_unless":
			problems[field] = append(problems[field], "This field is required")
		case "min":
			problems[field] = append(problems[field], "Value is too short, min: "+fe.Param())
		case "max":
			problems[field] = append(problems[field], "Value is too long, max: "+fe.Param())
		case "uuid", "uuid4":
			problems[field] = append(problems[field], "Value must be a valid UUID")
		case "notfuture":
			problems[field] = append(problems[field], "Date cannot be in the future")

		default:
			problems[field] = append(problems[field], "Invalid value provided")
		}
	}

	return &StructuredError{
		Errors: problems,
		Status: http.StatusBadRequest,
	}
}

func NewSimple(status int, msg string, args ...any) *APIError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &APIError{Status: status, Message: msg}
}

func NewStructured(code int) *StructuredError {
	return &StructuredError{
		Errors: make(map[string][]string),
		Status: code,
	}
}

func NewNotFoundError(resource, id string) *APIError {
	return NewSimple(http.StatusNotFound, "%s with ID %q not found", resource, id)
}

func NewConflictError(msg string, args ...any) *APIError {
	return NewSimple(http.StatusConflict, msg, args...)
}

func NewAudioTooLargeError(max int64) *APIError {
	return NewSimple(http.StatusRequestEntityTooLarge, "Audio file exceeds the limit of %d bytes", max)
}

func NewInvalidAudioExtError(ext string) *APIError {
	return NewSimple(http.StatusBadRequest, "Unsupported audio file extension: %q", ext)
}

func NewInvalidParamTypeError(name, dataType string) *APIError {
	return NewSimple(http.StatusBadRequest, "Parameter '%s' has invalid type, expected: %s", name, dataType)
}
