package growth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidtrack/kidtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func resolveConn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Record Repository ===========

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) queryable { return resolveConn(ctx, r.pool) }

const recordCols = `id, child_id, measured_at, height_cm, weight_kg,
	head_circumference_cm, bmi, note, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.ChildID, &rec.MeasuredAt, &rec.HeightCm, &rec.WeightKg,
		&rec.HeadCircumferenceCm, &rec.BMI, &rec.Note, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return &rec, err
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO growth_record (id, child_id, measured_at, height_cm, weight_kg,
			head_circumference_cm, bmi, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.ChildID, rec.MeasuredAt, rec.HeightCm, rec.WeightKg,
		rec.HeadCircumferenceCm, rec.BMI, rec.Note)
	return err
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM growth_record WHERE id = $1`, id))
}

func (r *recordRepoPG) Update(ctx context.Context, rec *Record) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE growth_record SET measured_at=$2, height_cm=$3, weight_kg=$4,
			head_circumference_cm=$5, bmi=$6, note=$7, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.MeasuredAt, rec.HeightCm, rec.WeightKg,
		rec.HeadCircumferenceCm, rec.BMI, rec.Note)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return err
}

func (r *recordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM growth_record WHERE id = $1`, id)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return err
}

func (r *recordRepoPG) ListByChild(ctx context.Context, childID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM growth_record WHERE child_id = $1`, childID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM growth_record
		WHERE child_id = $1
		ORDER BY measured_at DESC LIMIT $2 OFFSET $3`, childID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *recordRepoPG) ListWindow(ctx context.Context, childID uuid.UUID, from, to time.Time) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM growth_record
		WHERE child_id = $1 AND measured_at >= $2 AND measured_at <= $3
		ORDER BY measured_at ASC`, childID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *recordRepoPG) LatestByChild(ctx context.Context, childID uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, `
		SELECT `+recordCols+` FROM growth_record
		WHERE child_id = $1
		ORDER BY measured_at DESC LIMIT 1`, childID))
}

func collectRecords(rows pgx.Rows) ([]*Record, error) {
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// =========== Standard Repository ===========

type standardRepoPG struct{ pool *pgxpool.Pool }

func NewStandardRepoPG(pool *pgxpool.Pool) StandardRepository { return &standardRepoPG{pool: pool} }

func (r *standardRepoPG) conn(ctx context.Context) queryable { return resolveConn(ctx, r.pool) }

const standardCols = `gender, age_months, measurement_type,
	sd3_neg, sd2_neg, sd1_neg, median, sd1_pos, sd2_pos, sd3_pos`

func (r *standardRepoPG) LoadAll(ctx context.Context) ([]*StandardRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+standardCols+` FROM growth_standard
		ORDER BY gender, measurement_type, age_months`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*StandardRow
	for rows.Next() {
		var s StandardRow
		if err := rows.Scan(&s.Gender, &s.AgeMonths, &s.Measurement,
			&s.SD3Neg, &s.SD2Neg, &s.SD1Neg, &s.Median, &s.SD1Pos, &s.SD2Pos, &s.SD3Pos); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *standardRepoPG) ReplaceAll(ctx context.Context, items []*StandardRow) error {
	c := r.conn(ctx)
	if _, err := c.Exec(ctx, `DELETE FROM growth_standard`); err != nil {
		return err
	}
	for _, s := range items {
		_, err := c.Exec(ctx, `
			INSERT INTO growth_standard (gender, age_months, measurement_type,
				sd3_neg, sd2_neg, sd1_neg, median, sd1_pos, sd2_pos, sd3_pos)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			s.Gender, s.AgeMonths, s.Measurement,
			s.SD3Neg, s.SD2Neg, s.SD1Neg, s.Median, s.SD1Pos, s.SD2Pos, s.SD3Pos)
		if err != nil {
			return err
		}
	}
	return nil
}
