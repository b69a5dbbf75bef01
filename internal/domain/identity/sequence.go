package identity

import "fmt"

// PatientSeqName is the counter that backs patient identifier allocation.
const PatientSeqName = "patientId"

// PatientSeqStart is the counter's starting offset. The seed record P001
// occupies the first slot, so a fresh counter's first allocation yields 2
// and the first registered patient becomes P002. Changing this constant is
// the only supported way to shift the identifier range.
const PatientSeqStart = 1

// FormatPatientID renders a sequence value as a public patient identifier.
// Values are zero-padded to three digits and simply grow wider beyond P999.
func FormatPatientID(n int64) string {
	return fmt.Sprintf("P%03d", n)
}
