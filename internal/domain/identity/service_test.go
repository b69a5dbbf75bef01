package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/healthtrack/healthtrack/internal/domain/apperr"
	"github.com/healthtrack/healthtrack/internal/platform/auth"
)

// -- map-backed mocks --

type mockDoctorRepo struct {
	items map[string]*Doctor // keyed by phone
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{items: make(map[string]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	if _, ok := m.items[d.Phone]; ok {
		return apperr.Conflictf("doctor with phone %s already exists", d.Phone)
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	cp := *d
	m.items[d.Phone] = &cp
	return nil
}

func (m *mockDoctorRepo) GetByPhone(_ context.Context, phone string) (*Doctor, error) {
	d, ok := m.items[phone]
	if !ok {
		return nil, apperr.NotFoundf("doctor with phone %s not found", phone)
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.items {
		if d.Active {
			cp := *d
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	existing, ok := m.items[d.Phone]
	if !ok || !existing.Active {
		return apperr.NotFoundf("doctor with phone %s not found", d.Phone)
	}
	existing.Name = d.Name
	existing.Email = d.Email
	existing.Clinic = d.Clinic
	return nil
}

func (m *mockDoctorRepo) Deactivate(_ context.Context, phone string) error {
	d, ok := m.items[phone]
	if !ok || !d.Active {
		return apperr.NotFoundf("doctor with phone %s not found", phone)
	}
	d.Active = false
	return nil
}

type mockPatientRepo struct {
	items map[string]*Patient // keyed by patient_id
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{items: make(map[string]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.items {
		if existing.Phone == p.Phone {
			return apperr.Conflictf("patient with phone %s already exists", p.Phone)
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	m.items[p.PatientID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByPatientID(_ context.Context, patientID string) (*Patient, error) {
	p, ok := m.items[patientID]
	if !ok {
		return nil, apperr.NotFoundf("patient %s not found", patientID)
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) GetByPhone(_ context.Context, phone string) (*Patient, error) {
	for _, p := range m.items {
		if p.Phone == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFoundf("patient with phone %s not found", phone)
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.items {
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockPatientRepo) SavePushToken(_ context.Context, patientID, token string) error {
	p, ok := m.items[patientID]
	if !ok {
		return apperr.NotFoundf("patient %s not found", patientID)
	}
	p.PushToken = &token
	return nil
}

func (m *mockPatientRepo) CountByPatientIDs(_ context.Context, ids []string) (int, error) {
	seen := make(map[string]bool)
	for _, id := range ids {
		if _, ok := m.items[id]; ok {
			seen[id] = true
		}
	}
	return len(seen), nil
}

type mockSequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int64
	fail     bool
}

func newMockSequenceRepo() *mockSequenceRepo {
	return &mockSequenceRepo{counters: make(map[string]int64)}
}

func (m *mockSequenceRepo) Allocate(_ context.Context, name string) (int64, error) {
	if m.fail {
		return 0, apperr.Storage("allocate sequence "+name, errors.New("connection refused"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[name]; !ok {
		m.counters[name] = PatientSeqStart
	}
	m.counters[name]++
	return m.counters[name], nil
}

func newTestService() (*Service, *mockDoctorRepo, *mockPatientRepo, *mockSequenceRepo) {
	doctors := newMockDoctorRepo()
	patients := newMockPatientRepo()
	seq := newMockSequenceRepo()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewService(doctors, patients, seq, tokens), doctors, patients, seq
}

// -- sequence --

func TestFormatPatientID(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{2, "P002"},
		{15, "P015"},
		{999, "P999"},
		{1000, "P1000"},
		{10001, "P10001"},
	}
	for _, tt := range tests {
		if got := FormatPatientID(tt.n); got != tt.want {
			t.Errorf("FormatPatientID(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRegisterPatient_FirstAllocationIsP002(t *testing.T) {
	svc, _, _, _ := newTestService()

	p := Patient{Name: "Asha Rao", Phone: "9876500001", Age: 34, Gender: "Female"}
	if err := svc.RegisterPatient(context.Background(), &p, "secret1"); err != nil {
		t.Fatalf("RegisterPatient() error: %v", err)
	}
	if p.PatientID != "P002" {
		t.Errorf("expected first allocated identifier P002, got %s", p.PatientID)
	}
}

func TestRegisterPatient_SequentialIdentifiers(t *testing.T) {
	svc, _, _, _ := newTestService()

	want := []string{"P002", "P003", "P004"}
	for i, id := range want {
		p := Patient{Name: "Patient", Phone: "987650000" + string(rune('1'+i)), Age: 30, Gender: "Male"}
		if err := svc.RegisterPatient(context.Background(), &p, "secret1"); err != nil {
			t.Fatalf("RegisterPatient() #%d error: %v", i, err)
		}
		if p.PatientID != id {
			t.Errorf("registration %d: expected %s, got %s", i, id, p.PatientID)
		}
	}
}

func TestRegisterPatient_AllocationFailureFailsRegistration(t *testing.T) {
	svc, _, patients, seq := newTestService()
	seq.fail = true

	p := Patient{Name: "Asha Rao", Phone: "9876500001", Age: 34, Gender: "Female"}
	err := svc.RegisterPatient(context.Background(), &p, "secret1")
	if err == nil {
		t.Fatal("expected error when sequence allocation fails")
	}
	if !apperr.IsKind(err, apperr.KindStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
	if len(patients.items) != 0 {
		t.Error("no patient should be created when allocation fails")
	}
	if p.PatientID != "" {
		t.Errorf("identifier must never be fabricated locally, got %s", p.PatientID)
	}
}

func TestRegisterPatient_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()

	tests := []struct {
		name     string
		patient  Patient
		password string
	}{
		{"missing name", Patient{Phone: "9876500001", Age: 30, Gender: "Male"}, "secret1"},
		{"missing phone", Patient{Name: "X", Age: 30, Gender: "Male"}, "secret1"},
		{"short password", Patient{Name: "X", Phone: "9876500001", Age: 30, Gender: "Male"}, "abc"},
		{"age too low", Patient{Name: "X", Phone: "9876500001", Age: 0, Gender: "Male"}, "secret1"},
		{"age too high", Patient{Name: "X", Phone: "9876500001", Age: 121, Gender: "Male"}, "secret1"},
		{"bad gender", Patient{Name: "X", Phone: "9876500001", Age: 30, Gender: "unknown"}, "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.patient
			err := svc.RegisterPatient(context.Background(), &p, tt.password)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterPatient_DuplicatePhone(t *testing.T) {
	svc, _, _, _ := newTestService()

	p1 := Patient{Name: "A", Phone: "9876500001", Age: 30, Gender: "Male"}
	if err := svc.RegisterPatient(context.Background(), &p1, "secret1"); err != nil {
		t.Fatalf("first registration error: %v", err)
	}

	p2 := Patient{Name: "B", Phone: "9876500001", Age: 31, Gender: "Female"}
	err := svc.RegisterPatient(context.Background(), &p2, "secret1")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}
}

// -- authentication --

func TestAuthenticatePatient_RoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService()

	p := Patient{Name: "Asha Rao", Phone: "9876500001", Age: 34, Gender: "Female"}
	if err := svc.RegisterPatient(context.Background(), &p, "secret1"); err != nil {
		t.Fatalf("RegisterPatient() error: %v", err)
	}

	got, token, err := svc.AuthenticatePatient(context.Background(), "9876500001", "secret1")
	if err != nil {
		t.Fatalf("AuthenticatePatient() error: %v", err)
	}
	if got.PatientID != p.PatientID {
		t.Errorf("expected patient %s, got %s", p.PatientID, got.PatientID)
	}
	if token == "" {
		t.Error("expected a session token")
	}
}

func TestAuthenticatePatient_WrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService()

	p := Patient{Name: "Asha Rao", Phone: "9876500001", Age: 34, Gender: "Female"}
	if err := svc.RegisterPatient(context.Background(), &p, "secret1"); err != nil {
		t.Fatalf("RegisterPatient() error: %v", err)
	}

	_, _, err := svc.AuthenticatePatient(context.Background(), "9876500001", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateDoctor_GenericFailures(t *testing.T) {
	svc, _, _, _ := newTestService()

	d := Doctor{Name: "Dr. Mehta", Phone: "9876511111"}
	if err := svc.CreateDoctor(context.Background(), &d, "secret1"); err != nil {
		t.Fatalf("CreateDoctor() error: %v", err)
	}

	// Unknown phone and wrong password must be indistinguishable.
	_, _, errUnknown := svc.AuthenticateDoctor(context.Background(), "0000000000", "secret1")
	_, _, errWrongPw := svc.AuthenticateDoctor(context.Background(), "9876511111", "wrong")
	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for both, got %v / %v", errUnknown, errWrongPw)
	}

	// Deactivated account fails the same way.
	if err := svc.DeactivateDoctor(context.Background(), "9876511111"); err != nil {
		t.Fatalf("DeactivateDoctor() error: %v", err)
	}
	_, _, errInactive := svc.AuthenticateDoctor(context.Background(), "9876511111", "secret1")
	if !errors.Is(errInactive, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for inactive doctor, got %v", errInactive)
	}
}

func TestCreateDoctor_ShortPassword(t *testing.T) {
	svc, _, _, _ := newTestService()

	d := Doctor{Name: "Dr. Mehta", Phone: "9876511111"}
	err := svc.CreateDoctor(context.Background(), &d, "abc")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGetDoctor_InactiveHidden(t *testing.T) {
	svc, _, _, _ := newTestService()

	d := Doctor{Name: "Dr. Mehta", Phone: "9876511111"}
	if err := svc.CreateDoctor(context.Background(), &d, "secret1"); err != nil {
		t.Fatalf("CreateDoctor() error: %v", err)
	}
	if err := svc.DeactivateDoctor(context.Background(), "9876511111"); err != nil {
		t.Fatalf("DeactivateDoctor() error: %v", err)
	}

	_, err := svc.GetDoctor(context.Background(), "9876511111")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found for deactivated doctor, got %v", err)
	}
}

// -- push tokens --

func TestSavePushToken(t *testing.T) {
	svc, _, patients, _ := newTestService()

	p := Patient{Name: "Asha Rao", Phone: "9876500001", Age: 34, Gender: "Female"}
	if err := svc.RegisterPatient(context.Background(), &p, "secret1"); err != nil {
		t.Fatalf("RegisterPatient() error: %v", err)
	}

	if err := svc.SavePushToken(context.Background(), p.PatientID, "ExponentPushToken[abc]"); err != nil {
		t.Fatalf("SavePushToken() error: %v", err)
	}
	stored := patients.items[p.PatientID]
	if stored.PushToken == nil || *stored.PushToken != "ExponentPushToken[abc]" {
		t.Error("expected push token to be stored")
	}
}

func TestSavePushToken_UnknownPatient(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.SavePushToken(context.Background(), "P999", "ExponentPushToken[abc]")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSavePushToken_EmptyToken(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.SavePushToken(context.Background(), "P002", "")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// -- sequence allocator contract --

func TestMockSequence_ConcurrentAllocationsDistinct(t *testing.T) {
	seq := newMockSequenceRepo()

	const n = 50
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Allocate(context.Background(), PatientSeqName)
			if err != nil {
				t.Errorf("Allocate() error: %v", err)
				return
			}
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for v := range results {
		if seen[v] {
			t.Errorf("duplicate sequence value %d", v)
		}
		seen[v] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct values, got %d", n, len(seen))
	}
}
