package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthtrack/healthtrack/internal/domain/apperr"
	"github.com/healthtrack/healthtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Create(ctx context.Context, n *Notification, recipients []string) error {
	n.ID = uuid.New()
	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO notification (id, title, message, category, priority, issuer_id, issuer_name, scheduled_for, metadata)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			n.ID, n.Title, n.Message, n.Category, n.Priority,
			n.IssuerID, n.IssuerName, n.ScheduledFor, n.Metadata)
		if err != nil {
			return apperr.Storage("insert notification", err)
		}
		for _, patientID := range recipients {
			_, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO notification_recipient (notification_id, patient_id)
				VALUES ($1,$2)`,
				n.ID, patientID)
			if err != nil {
				return apperr.Storage("insert notification recipient", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	n.Recipients = make([]RecipientStatus, 0, len(recipients))
	for _, patientID := range recipients {
		n.Recipients = append(n.Recipients, RecipientStatus{PatientID: patientID})
	}
	return nil
}

const notificationCols = `id, title, message, category, priority, issuer_id, issuer_name, scheduled_for, metadata, created_at`

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var n Notification
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+notificationCols+` FROM notification WHERE id = $1`, id).Scan(
		&n.ID, &n.Title, &n.Message, &n.Category, &n.Priority,
		&n.IssuerID, &n.IssuerName, &n.ScheduledFor, &n.Metadata, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("notification %s not found", id)
	}
	if err != nil {
		return nil, apperr.Storage("select notification", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT patient_id, delivered_at, read_at
		FROM notification_recipient WHERE notification_id = $1
		ORDER BY patient_id`, id)
	if err != nil {
		return nil, apperr.Storage("list notification recipients", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rs RecipientStatus
		if err := rows.Scan(&rs.PatientID, &rs.DeliveredAt, &rs.ReadAt); err != nil {
			return nil, apperr.Storage("scan notification recipient", err)
		}
		n.Recipients = append(n.Recipients, rs)
	}
	return &n, nil
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID string, limit, offset int) ([]*PatientNotification, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification_recipient WHERE patient_id = $1`, patientID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Storage("count patient notifications", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT n.id, n.title, n.message, n.category, n.priority, n.issuer_id, n.issuer_name,
		       n.scheduled_for, n.created_at, r.delivered_at, r.read_at
		FROM notification n
		JOIN notification_recipient r ON r.notification_id = n.id
		WHERE r.patient_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list patient notifications", err)
	}
	defer rows.Close()
	var items []*PatientNotification
	for rows.Next() {
		var pn PatientNotification
		if err := rows.Scan(&pn.ID, &pn.Title, &pn.Message, &pn.Category, &pn.Priority,
			&pn.IssuerID, &pn.IssuerName, &pn.ScheduledFor, &pn.CreatedAt,
			&pn.DeliveredAt, &pn.ReadAt); err != nil {
			return nil, 0, apperr.Storage("scan patient notification", err)
		}
		items = append(items, &pn)
	}
	return items, total, nil
}

// AcknowledgeRead is a single row-scoped update, so only the caller's own
// status row can ever change. Re-acknowledging is not an error; it simply
// moves both timestamps to the latest call time.
func (r *repoPG) AcknowledgeRead(ctx context.Context, notificationID uuid.UUID, patientID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notification_recipient
		SET read_at = now(), delivered_at = now()
		WHERE notification_id = $1 AND patient_id = $2`,
		notificationID, patientID)
	if err != nil {
		return apperr.Storage("acknowledge read", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("notification %s not found for patient %s", notificationID, patientID)
	}
	return nil
}
