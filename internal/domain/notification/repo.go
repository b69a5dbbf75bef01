package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists the notification together with one status row per
	// recipient. The write is atomic; a failed recipient row rolls back the
	// notification itself.
	Create(ctx context.Context, n *Notification, recipients []string) error

	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// ListForPatient returns notifications addressed to the given patient,
	// newest first, each joined with that patient's own status row.
	ListForPatient(ctx context.Context, patientID string, limit, offset int) ([]*PatientNotification, int, error)

	// AcknowledgeRead stamps read_at and delivered_at on the single
	// (notification, patient) status row. Repeated calls overwrite both
	// timestamps with the latest call time. A missing row reports not found.
	AcknowledgeRead(ctx context.Context, notificationID uuid.UUID, patientID string) error
}
