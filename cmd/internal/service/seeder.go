package service

import (
	"fmt"
	"time"

	"clinicalnotes/cmd/internal/domain/entity"

	"github.com/labstack/gommon/log"
)

const (
	demoUsername = "demo"
	demoPassword = "demo"
)

var demoPatients = []struct {
	name string
	dob  string
}{
	{"Maria Oliveira", "1958-03-14"},
	{"James Carter", "1972-11-02"},
	{"Aiko Tanaka", "1990-07-21"},
	{"Samuel Okafor", "1946-01-30"},
}

type DemoSeeder struct {
	UserRepo    UserRepository
	PatientRepo PatientRepository
}

func NewDemoSeeder(userRepo UserRepository, patientRepo PatientRepository) *DemoSeeder {
	return &DemoSeeder{UserRepo: userRepo, PatientRepo: patientRepo}
}

// Seed creates the demo user and a handful of patients. Each part is skipped
// when it already exists, so it is safe on every boot.
func (d *DemoSeeder) Seed() error {
	if err := d.seedUser(); err != nil {
		return err
	}
	return d.seedPatients()
}

func (d *DemoSeeder) seedUser() error {
	existing, err := d.UserRepo.FindByUsername(demoUsername)
	if err != nil {
		return fmt.Errorf("look up demo user: %w", err)
	}

	if existing != nil {
		log.Info("demo user already exists, skipping creation")
		return nil
	}

	user, err := newUser(demoUsername, demoPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	if err = d.UserRepo.Save(user); err != nil {
		return fmt.Errorf("save demo user: %w", err)
	}
	log.Info("demo user created")
	return nil
}

func (d *DemoSeeder) seedPatients() error {
	count, err := d.PatientRepo.Count()
	if err != nil {
		return fmt.Errorf("count patients: %w", err)
	}

	if count > 0 {
		log.Info("patients already exist, skipping creation")
		return nil
	}

	for _, p := range demoPatients {
		dob, _ := time.Parse("2006-01-02", p.dob)
		if err = d.PatientRepo.Save(&entity.Patient{Name: p.name, DateOfBirth: &dob}); err != nil {
			return fmt.Errorf("save demo patient: %w", err)
		}
	}

	log.Infof("%d demo patients created", len(demoPatients))
	return nil
}
