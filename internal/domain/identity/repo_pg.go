package identity

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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorCols = `id, name, phone, email, password_hash, clinic, active, created_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Email, &d.PasswordHash,
		&d.Clinic, &d.Active, &d.CreatedAt)
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, name, phone, email, password_hash, clinic, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.Name, d.Phone, d.Email, d.PasswordHash, d.Clinic, d.Active)
	if isUniqueViolation(err) {
		return apperr.Conflictf("doctor with phone %s already exists", d.Phone)
	}
	if err != nil {
		return apperr.Storage("insert doctor", err)
	}
	return nil
}

func (r *doctorRepoPG) GetByPhone(ctx context.Context, phone string) (*Doctor, error) {
	d, err := r.scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor WHERE phone = $1`, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("doctor with phone %s not found", phone)
	}
	if err != nil {
		return nil, apperr.Storage("select doctor", err)
	}
	return d, nil
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor WHERE active`).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count doctors", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+doctorCols+` FROM doctor WHERE active ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list doctors", err)
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, apperr.Storage("scan doctor", err)
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET name=$2, email=$3, clinic=$4
		WHERE phone = $1 AND active`,
		d.Phone, d.Name, d.Email, d.Clinic)
	if err != nil {
		return apperr.Storage("update doctor", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("doctor with phone %s not found", d.Phone)
	}
	return nil
}

func (r *doctorRepoPG) Deactivate(ctx context.Context, phone string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor SET active = FALSE WHERE phone = $1 AND active`, phone)
	if err != nil {
		return apperr.Storage("deactivate doctor", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("doctor with phone %s not found", phone)
	}
	return nil
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, patient_id, name, phone, password_hash, age, gender, push_token, created_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientID, &p.Name, &p.Phone, &p.PasswordHash,
		&p.Age, &p.Gender, &p.PushToken, &p.CreatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, patient_id, name, phone, password_hash, age, gender, push_token)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.PatientID, p.Name, p.Phone, p.PasswordHash, p.Age, p.Gender, p.PushToken)
	if isUniqueViolation(err) {
		return apperr.Conflictf("patient with phone %s already exists", p.Phone)
	}
	if err != nil {
		return apperr.Storage("insert patient", err)
	}
	return nil
}

func (r *patientRepoPG) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	p, err := r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE patient_id = $1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("patient %s not found", patientID)
	}
	if err != nil {
		return nil, apperr.Storage("select patient", err)
	}
	return p, nil
}

func (r *patientRepoPG) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	p, err := r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE phone = $1`, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("patient with phone %s not found", phone)
	}
	if err != nil {
		return nil, apperr.Storage("select patient", err)
	}
	return p, nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count patients", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list patients", err)
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, apperr.Storage("scan patient", err)
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *patientRepoPG) SavePushToken(ctx context.Context, patientID, token string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET push_token = $2 WHERE patient_id = $1`, patientID, token)
	if err != nil {
		return apperr.Storage("save push token", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("patient %s not found", patientID)
	}
	return nil
}

func (r *patientRepoPG) CountByPatientIDs(ctx context.Context, ids []string) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(DISTINCT patient_id) FROM patient WHERE patient_id = ANY($1)`, ids).Scan(&count)
	if err != nil {
		return 0, apperr.Storage("count patients by id", err)
	}
	return count, nil
}

// =========== Sequence Repository ===========

type sequenceRepoPG struct{ pool *pgxpool.Pool }

func NewSequenceRepoPG(pool *pgxpool.Pool) SequenceRepository {
	return &sequenceRepoPG{pool: pool}
}

func (r *sequenceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Allocate performs the increment and the first-use initialization in one
// statement, so two concurrent callers on a fresh counter can never both
// observe "missing" and race to create it. A fresh counter's first returned
// value is PatientSeqStart+1.
func (r *sequenceRepoPG) Allocate(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO sequence_counter (name, value) VALUES ($1, $2 + 1)
		ON CONFLICT (name) DO UPDATE SET value = sequence_counter.value + 1
		RETURNING value`,
		name, PatientSeqStart).Scan(&value)
	if err != nil {
		return 0, apperr.Storage("allocate sequence "+name, err)
	}
	return value, nil
}
