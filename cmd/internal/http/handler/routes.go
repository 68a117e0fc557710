package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Register mounts every API route on e.
func Register(e *echo.Echo, notes *DefaultNoteRoute, patients *DefaultPatientRoute, users *DefaultUserRoute) {
	e.GET("/health", HealthCheck)

	api := e.Group("/api")

	// Notes
	api.GET("/notes", notes.GetNotes)
	api.GET("/notes/:id", notes.GetNote)
	api.PATCH("/notes/:id", notes.UpdateNote)
	api.DELETE("/notes/:id", notes.DeleteNote)
	api.PATCH("/notes/:id/recover", notes.RecoverNote)
	api.GET("/notes/:id/transcription", notes.GetTranscription)
	api.GET("/notes/:id/audio", notes.GetAudio)
	api.GET("/patients/:id/notes", notes.GetPatientNotes)
	api.POST("/patients/:id/notes", notes.CreateNote)

	// Patients
	api.GET("/patients", patients.GetPatients)
	api.POST("/patients", patients.CreatePatient)
	api.GET("/patients/:id", patients.GetPatient)
	api.PATCH("/patients/:id", patients.UpdatePatient)
	api.DELETE("/patients/:id", patients.DeletePatient)
	api.PATCH("/patients/:id/recover", patients.RecoverPatient)

	// Users
	api.GET("/users", users.GetUsers)
	api.POST("/users", users.CreateUser)
	api.GET("/users/:id", users.GetUser)
}

func HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
