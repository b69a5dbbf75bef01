package vitals

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Reading) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reading, error)
	// ListByPatient returns the patient's readings newest first.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Reading, int, error)
	Update(ctx context.Context, r *Reading) error
	Delete(ctx context.Context, id uuid.UUID) error
}
