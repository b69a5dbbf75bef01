package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/healthtrack/healthtrack/internal/domain/apperr"
	"github.com/healthtrack/healthtrack/internal/platform/auth"
)

// ErrInvalidCredentials is returned for every authentication failure so a
// caller cannot distinguish an unknown phone from a wrong password or a
// deactivated account.
var ErrInvalidCredentials = errors.New("invalid phone or password")

var validGenders = map[string]bool{
	"Male": true, "Female": true, "Other": true,
}

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
	seq      SequenceRepository
	tokens   *auth.TokenIssuer
}

func NewService(doctors DoctorRepository, patients PatientRepository, seq SequenceRepository, tokens *auth.TokenIssuer) *Service {
	return &Service{
		doctors:  doctors,
		patients: patients,
		seq:      seq,
		tokens:   tokens,
	}
}

// -- Doctors --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor, password string) error {
	if d.Name == "" {
		return apperr.Validationf("name is required")
	}
	if d.Phone == "" {
		return apperr.Validationf("phone is required")
	}
	if len(password) < 6 {
		return apperr.Validationf("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Storage("hash password", err)
	}
	d.PasswordHash = string(hash)
	d.Active = true
	return s.doctors.Create(ctx, d)
}

func (s *Service) AuthenticateDoctor(ctx context.Context, phone, password string) (*Doctor, string, error) {
	d, err := s.doctors.GetByPhone(ctx, phone)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !d.Active {
		return nil, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(d.Phone, auth.RoleDoctor, d.Name)
	if err != nil {
		return nil, "", apperr.Storage("issue token", err)
	}
	return d, token, nil
}

func (s *Service) GetDoctor(ctx context.Context, phone string) (*Doctor, error) {
	d, err := s.doctors.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, apperr.NotFoundf("doctor with phone %s not found", phone)
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return apperr.Validationf("name is required")
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeactivateDoctor(ctx context.Context, phone string) error {
	return s.doctors.Deactivate(ctx, phone)
}

// -- Patients --

// RegisterPatient allocates the public identifier before the insert; if
// allocation fails the registration fails, an identifier is never invented
// on the application side. Counter values burned by a later insert failure
// leave gaps, which is acceptable.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient, password string) error {
	if p.Name == "" {
		return apperr.Validationf("name is required")
	}
	if p.Phone == "" {
		return apperr.Validationf("phone is required")
	}
	if len(password) < 6 {
		return apperr.Validationf("password must be at least 6 characters")
	}
	if p.Age < 1 || p.Age > 120 {
		return apperr.Validationf("age must be between 1 and 120")
	}
	if !validGenders[p.Gender] {
		return apperr.Validationf("gender must be Male, Female, or Other")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Storage("hash password", err)
	}
	p.PasswordHash = string(hash)

	seq, err := s.seq.Allocate(ctx, PatientSeqName)
	if err != nil {
		return err
	}
	p.PatientID = FormatPatientID(seq)

	return s.patients.Create(ctx, p)
}

func (s *Service) AuthenticatePatient(ctx context.Context, phone, password string) (*Patient, string, error) {
	p, err := s.patients.GetByPhone(ctx, phone)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(p.PatientID, auth.RolePatient, p.Name)
	if err != nil {
		return nil, "", apperr.Storage("issue token", err)
	}
	return p, token, nil
}

func (s *Service) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	return s.patients.GetByPatientID(ctx, patientID)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) SavePushToken(ctx context.Context, patientID, token string) error {
	if token == "" {
		return apperr.Validationf("pushToken is required")
	}
	return s.patients.SavePushToken(ctx, patientID, token)
}

// CountByPatientIDs reports how many of the given identifiers resolve to
// real patients. The notification service uses it for wholesale recipient
// validation.
func (s *Service) CountByPatientIDs(ctx context.Context, ids []string) (int, error) {
	return s.patients.CountByPatientIDs(ctx, ids)
}
