package identity

import (
	"context"
)

// DoctorRepository persists doctor accounts.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByPhone(ctx context.Context, phone string) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	Update(ctx context.Context, d *Doctor) error
	Deactivate(ctx context.Context, phone string) error
}

// PatientRepository persists patient records.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByPatientID(ctx context.Context, patientID string) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	SavePushToken(ctx context.Context, patientID, token string) error
	CountByPatientIDs(ctx context.Context, ids []string) (int, error)
}

// SequenceRepository hands out values from named counters. Allocate must be
// atomic: concurrent callers each get a distinct, strictly increasing value
// with no existence pre-check on the counter row.
type SequenceRepository interface {
	Allocate(ctx context.Context, name string) (int64, error)
}
