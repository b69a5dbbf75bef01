package vitals

import (
	"time"

	"github.com/google/uuid"
)

// Reading is one vitals measurement reported for a patient. All values are
// captured together; partial readings are not supported.
type Reading struct {
	ID         uuid.UUID `json:"id"`
	PatientID  string    `json:"patientId"`
	Systolic   int       `json:"systolic"`
	Diastolic  int       `json:"diastolic"`
	SugarLevel int       `json:"sugarLevel"`
	HeartRate  int       `json:"heartRate"`
	Weight     float64   `json:"weight"`
	RecordedAt time.Time `json:"recordedAt"`
}
