package vitals

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

const readingCols = `id, patient_id, systolic, diastolic, sugar_level, heart_rate, weight, recorded_at`

func scanReading(row pgx.Row) (*Reading, error) {
	var rd Reading
	err := row.Scan(&rd.ID, &rd.PatientID, &rd.Systolic, &rd.Diastolic,
		&rd.SugarLevel, &rd.HeartRate, &rd.Weight, &rd.RecordedAt)
	return &rd, err
}

func (r *repoPG) Create(ctx context.Context, rd *Reading) error {
	rd.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reading (id, patient_id, systolic, diastolic, sugar_level, heart_rate, weight, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rd.ID, rd.PatientID, rd.Systolic, rd.Diastolic, rd.SugarLevel, rd.HeartRate, rd.Weight, rd.RecordedAt)
	if err != nil {
		return apperr.Storage("insert reading", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reading, error) {
	rd, err := scanReading(r.conn(ctx).QueryRow(ctx,
		`SELECT `+readingCols+` FROM reading WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("reading %s not found", id)
	}
	if err != nil {
		return nil, apperr.Storage("select reading", err)
	}
	return rd, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Reading, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reading WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count readings", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+readingCols+` FROM reading WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list readings", err)
	}
	defer rows.Close()
	var items []*Reading
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, 0, apperr.Storage("scan reading", err)
		}
		items = append(items, rd)
	}
	return items, total, nil
}

func (r *repoPG) Update(ctx context.Context, rd *Reading) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reading SET systolic=$2, diastolic=$3, sugar_level=$4, heart_rate=$5, weight=$6, recorded_at=$7
		WHERE id = $1`,
		rd.ID, rd.Systolic, rd.Diastolic, rd.SugarLevel, rd.HeartRate, rd.Weight, rd.RecordedAt)
	if err != nil {
		return apperr.Storage("update reading", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("reading %s not found", rd.ID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reading WHERE id = $1`, id)
	if err != nil {
		return apperr.Storage("delete reading", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("reading %s not found", id)
	}
	return nil
}
