package repository

import (
	"errors"

	"clinicalnotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultPatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *DefaultPatientRepository {
	return &DefaultPatientRepository{db: db}
}

func (d *DefaultPatientRepository) FindAll() ([]*entity.Patient, error) {
	var patients []*entity.Patient
	err := d.db.Order("name ASC").Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (d *DefaultPatientRepository) FindByID(id string) (*entity.Patient, error) {
	var patient entity.Patient
	err := d.db.First(&patient, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (d *DefaultPatientRepository) FindByIDUnscoped(id string) (*entity.Patient, error) {
	var patient entity.Patient
	err := d.db.Unscoped().First(&patient, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (d *DefaultPatientRepository) Count() (int64, error) {
	var count int64
	err := d.db.Model(&entity.Patient{}).Count(&count).Error
	return count, err
}

func (d *DefaultPatientRepository) Save(patient *entity.Patient) error {
	return d.db.Save(patient).Error
}

// UpdateDetails writes name and date of birth of an active patient. The bool
// is false when no active patient matched.
func (d *DefaultPatientRepository) UpdateDetails(patient *entity.Patient) (bool, error) {
	result := d.db.Model(&entity.Patient{}).
		Where("id = ?", patient.ID).
		Updates(map[string]any{
			"name":          patient.Name,
			"date_of_birth": patient.DateOfBirth,
		})
	return result.RowsAffected > 0, result.Error
}

func (d *DefaultPatientRepository) Delete(patient *entity.Patient) error {
	return d.db.Delete(patient).Error
}

func (d *DefaultPatientRepository) Restore(id string) error {
	return d.db.Unscoped().
		Model(&entity.Patient{}).
		Where("id = ?", id).
		Update("deleted_at", nil).Error
}
