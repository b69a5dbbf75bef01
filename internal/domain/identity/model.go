package identity

import (
	"time"

	"github.com/google/uuid"
)

// Doctor represents a clinic staff account that can broadcast notifications.
type Doctor struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Clinic       string    `db:"clinic" json:"clinic,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Patient represents a self-registered patient. PatientID is the public
// sequential identifier ("P002") used everywhere outside the database;
// the row UUID never leaves the persistence layer.
type Patient struct {
	ID           uuid.UUID `db:"id" json:"-"`
	PatientID    string    `db:"patient_id" json:"patientId"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Age          int       `db:"age" json:"age"`
	Gender       string    `db:"gender" json:"gender"`
	PushToken    *string   `db:"push_token" json:"pushToken,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
