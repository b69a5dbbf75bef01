package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryInfo     = "info"
	CategoryAlert    = "alert"
	CategoryReminder = "reminder"
)

const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Notification is a message issued by a doctor to one or more patients.
// Delivery and read state live per recipient, not on the notification itself.
type Notification struct {
	ID           uuid.UUID         `json:"id"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	Category     string            `json:"category"`
	Priority     string            `json:"priority"`
	IssuerID     uuid.UUID         `json:"issuerId"`
	IssuerName   string            `json:"issuerName"`
	ScheduledFor *time.Time        `json:"scheduledFor,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	Recipients   []RecipientStatus `json:"recipients,omitempty"`
}

// RecipientStatus tracks one patient's delivery state for one notification.
// DeliveredAt and ReadAt are set together by the read acknowledgement and
// stay nil until then.
type RecipientStatus struct {
	PatientID   string     `json:"patientId"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

// PatientNotification is the patient-facing projection. It carries only the
// caller's own delivery state, never the other recipients'.
type PatientNotification struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Category     string     `json:"category"`
	Priority     string     `json:"priority"`
	IssuerID     uuid.UUID  `json:"issuerId"`
	IssuerName   string     `json:"issuerName"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeliveredAt  *time.Time `json:"deliveredAt"`
	ReadAt       *time.Time `json:"readAt"`
}
