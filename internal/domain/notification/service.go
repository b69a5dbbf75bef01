package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthtrack/healthtrack/internal/domain/apperr"
	"github.com/healthtrack/healthtrack/internal/domain/identity"
	"github.com/healthtrack/healthtrack/internal/platform/push"
)

const (
	maxTitleLen   = 120
	maxMessageLen = 2000
)

var validCategories = map[string]bool{
	CategoryInfo: true, CategoryAlert: true, CategoryReminder: true,
}

var validPriorities = map[string]bool{
	PriorityLow: true, PriorityNormal: true, PriorityHigh: true, PriorityCritical: true,
}

// DoctorDirectory resolves issuers. Satisfied by the identity service.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, phone string) (*identity.Doctor, error)
}

// PatientDirectory resolves recipients and their push tokens. Satisfied by
// the identity service.
type PatientDirectory interface {
	GetPatient(ctx context.Context, patientID string) (*identity.Patient, error)
	CountByPatientIDs(ctx context.Context, ids []string) (int, error)
}

type pushRecorder interface {
	RecordPushSend(result string)
}

type Service struct {
	repo     Repository
	doctors  DoctorDirectory
	patients PatientDirectory
	sender   push.Sender
	metrics  pushRecorder
	logger   zerolog.Logger

	concurrency int
	pushTimeout time.Duration
}

func NewService(repo Repository, doctors DoctorDirectory, patients PatientDirectory,
	sender push.Sender, metrics pushRecorder, logger zerolog.Logger,
	concurrency int, pushTimeout time.Duration) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	if pushTimeout <= 0 {
		pushTimeout = 5 * time.Second
	}
	return &Service{
		repo:        repo,
		doctors:     doctors,
		patients:    patients,
		sender:      sender,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
		pushTimeout: pushTimeout,
	}
}

// CreateInput carries everything needed to issue a notification. IssuerPhone
// comes from the caller's token, never from the request body.
type CreateInput struct {
	Title        string
	Message      string
	Category     string
	Priority     string
	Recipients   []string
	ScheduledFor *time.Time
	Metadata     map[string]string
	IssuerPhone  string
}

// Create validates the input wholesale, persists the notification with its
// per-recipient status rows, and kicks off push fan-out in the background.
// Push failures are logged, never surfaced to the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	if in.Title == "" {
		return nil, apperr.Validationf("title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, apperr.Validationf("title must be at most %d characters", maxTitleLen)
	}
	if in.Message == "" {
		return nil, apperr.Validationf("message is required")
	}
	if len(in.Message) > maxMessageLen {
		return nil, apperr.Validationf("message must be at most %d characters", maxMessageLen)
	}
	if in.Category == "" {
		in.Category = CategoryInfo
	}
	if !validCategories[in.Category] {
		return nil, apperr.Validationf("category must be info, alert, or reminder")
	}
	if in.Priority == "" {
		in.Priority = PriorityNormal
	}
	if !validPriorities[in.Priority] {
		return nil, apperr.Validationf("priority must be low, normal, high, or critical")
	}
	if len(in.Recipients) == 0 {
		return nil, apperr.Validationf("at least one recipient is required")
	}

	issuer, err := s.doctors.GetDoctor(ctx, in.IssuerPhone)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Validationf("issuer doctor not found or inactive")
		}
		return nil, err
	}

	recipients := dedupe(in.Recipients)
	count, err := s.patients.CountByPatientIDs(ctx, recipients)
	if err != nil {
		return nil, err
	}
	if count != len(recipients) {
		return nil, apperr.Validationf("%d of %d recipients do not exist", len(recipients)-count, len(recipients))
	}

	n := &Notification{
		Title:        in.Title,
		Message:      in.Message,
		Category:     in.Category,
		Priority:     in.Priority,
		IssuerID:     issuer.ID,
		IssuerName:   issuer.Name,
		ScheduledFor: in.ScheduledFor,
		Metadata:     in.Metadata,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, n, recipients); err != nil {
		return nil, err
	}

	go s.fanOut(n, recipients)

	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForPatient returns the patient's notifications newest first, with only
// that patient's own delivery state.
func (s *Service) ListForPatient(ctx context.Context, patientID string, limit, offset int) ([]*PatientNotification, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListForPatient(ctx, patientID, limit, offset)
}

// AcknowledgeRead marks the notification read for the given patient. Read
// implies delivery, so both timestamps are stamped in the same statement.
func (s *Service) AcknowledgeRead(ctx context.Context, notificationID uuid.UUID, patientID string) error {
	return s.repo.AcknowledgeRead(ctx, notificationID, patientID)
}

// fanOut pushes the notification to every recipient with a registered token.
// It runs detached from the request context so an early client disconnect
// cannot cancel delivery. Sends run concurrently under a semaphore, each with
// its own timeout.
func (s *Service) fanOut(n *Notification, recipients []string) {
	ctx := context.Background()
	sem := make(chan struct{}, s.concurrency)

	for _, patientID := range recipients {
		sem <- struct{}{}
		go func(patientID string) {
			defer func() { <-sem }()
			s.pushOne(ctx, n, patientID)
		}(patientID)
	}
	for i := 0; i < s.concurrency; i++ {
		sem <- struct{}{}
	}
}

func (s *Service) pushOne(ctx context.Context, n *Notification, patientID string) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("notification", n.ID.String()).
			Str("patient", patientID).
			Msg("push fan-out: failed to load recipient")
		s.record("failed")
		return
	}
	if p.PushToken == nil || *p.PushToken == "" {
		s.record("skipped")
		return
	}

	data := map[string]string{
		"notificationId": n.ID.String(),
		"category":       n.Category,
		"priority":       n.Priority,
		"issuerName":     n.IssuerName,
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()
	if err := s.sender.Send(sendCtx, *p.PushToken, n.Title, n.Message, data); err != nil {
		s.logger.Error().Err(err).
			Str("notification", n.ID.String()).
			Str("patient", patientID).
			Msg("push fan-out: send failed")
		s.record("failed")
		return
	}
	s.record("delivered")
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordPushSend(result)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
