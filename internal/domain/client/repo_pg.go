package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinictrack/clinictrack/internal/adherence"
	"github.com/clinictrack/clinictrack/internal/platform/db"
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

const clientCols = `id, enrollment_number, facility_id, full_name, phone, sex, birth_date,
	status, last_pickup_date, next_pickup_date, last_viral_load_date, next_viral_load_date,
	negative_event_kind, negative_event_date, negative_event_notes, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.EnrollmentNumber, &c.FacilityID, &c.FullName, &c.Phone,
		&c.Sex, &c.BirthDate, &c.Status,
		&c.LastPickupDate, &c.NextPickupDate, &c.LastViralLoadDate, &c.NextViralLoadDate,
		&c.NegativeEventKind, &c.NegativeEventDate, &c.NegativeEventNotes,
		&c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) Create(ctx context.Context, c *Client) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clients (id, enrollment_number, facility_id, full_name, phone, sex,
			birth_date, status, last_pickup_date, next_pickup_date,
			last_viral_load_date, next_viral_load_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		c.ID, c.EnrollmentNumber, c.FacilityID, c.FullName, c.Phone, c.Sex,
		c.BirthDate, c.Status, c.LastPickupDate, c.NextPickupDate,
		c.LastViralLoadDate, c.NextViralLoadDate)
	if isUniqueViolation(err) {
		return ErrDuplicateEnrollment
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id))
}

func (r *repoPG) GetByEnrollment(ctx context.Context, enrollmentNumber string) (*Client, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE enrollment_number = $1`, enrollmentNumber))
}

func (r *repoPG) Update(ctx context.Context, c *Client) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET enrollment_number=$2, facility_id=$3, full_name=$4, phone=$5,
			sex=$6, birth_date=$7, status=$8,
			last_pickup_date=$9, next_pickup_date=$10,
			last_viral_load_date=$11, next_viral_load_date=$12,
			negative_event_kind=$13, negative_event_date=$14, negative_event_notes=$15,
			updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.EnrollmentNumber, c.FacilityID, c.FullName, c.Phone,
		c.Sex, c.BirthDate, c.Status,
		c.LastPickupDate, c.NextPickupDate, c.LastViralLoadDate, c.NextViralLoadDate,
		c.NegativeEventKind, c.NegativeEventDate, c.NegativeEventNotes)
	if isUniqueViolation(err) {
		return ErrDuplicateEnrollment
	}
	return err
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Client, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0
	add := func(clause string, v interface{}) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", clause, n)
		args = append(args, v)
	}
	if filter.FacilityID != uuid.Nil {
		add("facility_id", filter.FacilityID)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.EnrollmentNumber != "" {
		add("enrollment_number", filter.EnrollmentNumber)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM clients %s ORDER BY enrollment_number LIMIT $%d OFFSET $%d`,
		clientCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Client
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *repoPG) ListDue(ctx context.Context, horizon time.Time, facilityID uuid.UUID, limit, offset int) ([]*Client, int, error) {
	where := `WHERE status = 'active' AND next_pickup_date IS NOT NULL AND next_pickup_date <= $1`
	args := []interface{}{horizon}
	if facilityID != uuid.Nil {
		where += ` AND facility_id = $2`
		args = append(args, facilityID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM clients %s ORDER BY next_pickup_date LIMIT $%d OFFSET $%d`,
		clientCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Client
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *repoPG) ListActiveForSweep(ctx context.Context) ([]adherence.DueClient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, next_pickup_date FROM clients WHERE status = 'active'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []adherence.DueClient
	for rows.Next() {
		var dc adherence.DueClient
		if err := rows.Scan(&dc.ID, &dc.NextPickupDate); err != nil {
			return nil, err
		}
		items = append(items, dc)
	}
	return items, rows.Err()
}
