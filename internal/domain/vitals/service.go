package vitals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/healthtrack/healthtrack/internal/domain/apperr"
	"github.com/healthtrack/healthtrack/internal/domain/identity"
)

// Physiological bounds for a single reading. Values outside these ranges are
// treated as entry errors, not clinical outliers.
const (
	minSystolic, maxSystolic   = 50, 300
	minDiastolic, maxDiastolic = 30, 200
	minSugar, maxSugar         = 20, 600
	minHeartRate, maxHeartRate = 30, 220
	minWeight, maxWeight       = 10, 500
)

// PatientDirectory resolves patients. Satisfied by the identity service.
type PatientDirectory interface {
	GetPatient(ctx context.Context, patientID string) (*identity.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
}

func NewService(repo Repository, patients PatientDirectory) *Service {
	return &Service{repo: repo, patients: patients}
}

func validateRanges(r *Reading) error {
	if r.Systolic < minSystolic || r.Systolic > maxSystolic {
		return apperr.Validationf("systolic must be between %d and %d", minSystolic, maxSystolic)
	}
	if r.Diastolic < minDiastolic || r.Diastolic > maxDiastolic {
		return apperr.Validationf("diastolic must be between %d and %d", minDiastolic, maxDiastolic)
	}
	if r.SugarLevel < minSugar || r.SugarLevel > maxSugar {
		return apperr.Validationf("sugarLevel must be between %d and %d", minSugar, maxSugar)
	}
	if r.HeartRate < minHeartRate || r.HeartRate > maxHeartRate {
		return apperr.Validationf("heartRate must be between %d and %d", minHeartRate, maxHeartRate)
	}
	if r.Weight < minWeight || r.Weight > maxWeight {
		return apperr.Validationf("weight must be between %d and %d", minWeight, maxWeight)
	}
	return nil
}

// AddReading validates the measurement and records it for an existing
// patient. RecordedAt is stamped server-side.
func (s *Service) AddReading(ctx context.Context, r *Reading) error {
	if r.PatientID == "" {
		return apperr.Validationf("patientId is required")
	}
	if err := validateRanges(r); err != nil {
		return err
	}
	if _, err := s.patients.GetPatient(ctx, r.PatientID); err != nil {
		return err
	}
	r.RecordedAt = time.Now()
	return s.repo.Create(ctx, r)
}

func (s *Service) GetReading(ctx context.Context, id uuid.UUID) (*Reading, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Reading, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// UpdateReading replaces the measurement values of an existing reading and
// refreshes its timestamp. The owning patient never changes.
func (s *Service) UpdateReading(ctx context.Context, id uuid.UUID, values *Reading) (*Reading, error) {
	if err := validateRanges(values); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Systolic = values.Systolic
	existing.Diastolic = values.Diastolic
	existing.SugarLevel = values.SugarLevel
	existing.HeartRate = values.HeartRate
	existing.Weight = values.Weight
	existing.RecordedAt = time.Now()
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) DeleteReading(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
