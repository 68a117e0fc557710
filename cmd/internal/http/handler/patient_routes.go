package handler

import (
	"net/http"

	"clinicalnotes/cmd/internal/contract"
	"clinicalnotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type PatientService interface {
	Create(req *contract.CreatePatientRequest) (*contract.PatientResponse, apierror.ErrorResponse)
	FindAll() ([]*contract.PatientResponse, apierror.ErrorResponse)
	FindOne(id string) (*contract.PatientResponse, apierror.ErrorResponse)
	Update(id string, req *contract.UpdatePatientRequest) (*contract.PatientResponse, apierror.ErrorResponse)
	Remove(id string) apierror.ErrorResponse
	Recover(id string) apierror.ErrorResponse
}

type DefaultPatientRoute struct {
	PatientService PatientService
}

func NewPatientDefault(patientService PatientService) *DefaultPatientRoute {
	return &DefaultPatientRoute{PatientService: patientService}
}

func (p *DefaultPatientRoute) GetPatients(c echo.Context) error {
	patients, apierr := p.PatientService.FindAll()
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"patients": patients}
	return c.JSON(http.StatusOK, &resp)
}

func (p *DefaultPatientRoute) GetPatient(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	patient, apierr := p.PatientService.FindOne(id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, patient)
}

func (p *DefaultPatientRoute) CreatePatient(c echo.Context) error {
	var req contract.CreatePatientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	patient, apierr := p.PatientService.Create(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, &patient)
}

func (p *DefaultPatientRoute) UpdatePatient(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	var req contract.UpdatePatientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	patient, apierr := p.PatientService.Update(id, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, &patient)
}

func (p *DefaultPatientRoute) DeletePatient(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	if apierr := p.PatientService.Remove(id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

func (p *DefaultPatientRoute) RecoverPatient(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	if apierr := p.PatientService.Recover(id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}
