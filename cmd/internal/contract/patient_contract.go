package contract

type CreatePatientRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=255"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02,notfuture"`
}

type UpdatePatientRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=255"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02,notfuture"`
}

type PatientResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DateOfBirth *string `json:"dateOfBirth"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}
