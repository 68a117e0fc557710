package service

import (
	"time"

	"clinicalnotes/cmd/internal/contract"
	"clinicalnotes/cmd/internal/domain/entity"
	"clinicalnotes/cmd/internal/utils"
	"clinicalnotes/cmd/internal/utils/apierror"
	"clinicalnotes/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

type PatientRepository interface {
	FindAll() ([]*entity.Patient, error)
	FindByID(id string) (*entity.Patient, error)
	FindByIDUnscoped(id string) (*entity.Patient, error)
	Count() (int64, error)
	Save(patient *entity.Patient) error
	UpdateDetails(patient *entity.Patient) (bool, error)
	Delete(patient *entity.Patient) error
	Restore(id string) error
}

type DefaultPatientService struct {
	PatientRepo PatientRepository
	Validate    *validator.Validate
}

func NewPatientService(patientRepo PatientRepository, validate *validator.Validate) *DefaultPatientService {
	return &DefaultPatientService{PatientRepo: patientRepo, Validate: validate}
}

func (p *DefaultPatientService) Create(req *contract.CreatePatientRequest) (*contract.PatientResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := p.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	patient := &entity.Patient{
		Name:        req.Name,
		DateOfBirth: parseDate(req.DateOfBirth),
	}

	if err := p.PatientRepo.Save(patient); err != nil {
		log.Errorf("failed to create patient: %v", err)
		return nil, apierror.InternalServerError
	}
	return toPatientResponse(patient), nil
}

func (p *DefaultPatientService) FindAll() ([]*contract.PatientResponse, apierror.ErrorResponse) {
	patients, err := p.PatientRepo.FindAll()
	if err != nil {
		log.Errorf("failed to fetch patients: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.PatientResponse, len(patients))
	for i, patient := range patients {
		resp[i] = toPatientResponse(patient)
	}
	return resp, nil
}

func (p *DefaultPatientService) FindOne(id string) (*contract.PatientResponse, apierror.ErrorResponse) {
	patient, apierr := p.findActive(id)
	if apierr != nil {
		return nil, apierr
	}
	return toPatientResponse(patient), nil
}

func (p *DefaultPatientService) Update(id string, req *contract.UpdatePatientRequest) (*contract.PatientResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := p.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	patient, apierr := p.findActive(id)
	if apierr != nil {
		return nil, apierr
	}

	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = parseDate(req.DateOfBirth)
	}

	updated, err := p.PatientRepo.UpdateDetails(patient)
	if err != nil {
		log.Errorf("failed to update patient %s: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if !updated {
		return nil, apierror.NewNotFoundError("Patient", id)
	}
	return p.FindOne(id)
}

func (p *DefaultPatientService) Remove(id string) apierror.ErrorResponse {
	patient, apierr := p.findActive(id)
	if apierr != nil {
		return apierr
	}

	if err := p.PatientRepo.Delete(patient); err != nil {
		log.Errorf("failed to delete patient %s: %v", id, err)
		return apierror.InternalServerError
	}
	return nil
}

func (p *DefaultPatientService) Recover(id string) apierror.ErrorResponse {
	patient, err := p.PatientRepo.FindByIDUnscoped(id)
	if err != nil {
		log.Errorf("failed to fetch patient %s: %v", id, err)
		return apierror.InternalServerError
	}

	if patient == nil {
		return apierror.NewNotFoundError("Patient", id)
	}

	if !patient.DeletedAt.Valid {
		return apierror.NewConflictError("Patient with ID %q is not deleted", id)
	}

	if err = p.PatientRepo.Restore(id); err != nil {
		log.Errorf("failed to recover patient %s: %v", id, err)
		return apierror.InternalServerError
	}
	return nil
}

func (p *DefaultPatientService) findActive(id string) (*entity.Patient, apierror.ErrorResponse) {
	patient, err := p.PatientRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch patient %s: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if patient == nil {
		return nil, apierror.NewNotFoundError("Patient", id)
	}
	return patient, nil
}

// parseDate expects an already validated YYYY-MM-DD string.
func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}

	t, err := time.Parse(validators.DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

func toPatientResponse(patient *entity.Patient) *contract.PatientResponse {
	resp := &contract.PatientResponse{
		ID:        patient.ID,
		Name:      patient.Name,
		CreatedAt: utils.FormatTime(patient.CreatedAt),
		UpdatedAt: utils.FormatTime(patient.UpdatedAt),
	}

	if patient.DateOfBirth != nil {
		dob := patient.DateOfBirth.Format(validators.DateLayout)
		resp.DateOfBirth = &dob
	}
	return resp
}
