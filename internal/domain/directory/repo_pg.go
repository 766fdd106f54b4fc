package directory

import (
	"context"
	"errors"
	"fmt"

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

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable { return resolveConn(ctx, r.pool) }

const userCols = `id, full_name, email, role, status, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO app_user (id, full_name, email, role, status)
		VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.FullName, u.Email, u.Role, u.Status)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE email = $1`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE app_user SET full_name=$2, email=$3, role=$4, status=$5, updated_at=NOW()
		WHERE id = $1`, u.ID, u.FullName, u.Email, u.Role, u.Status)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return err
}

func (r *userRepoPG) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	where := `TRUE`
	args := []interface{}{}
	if role != "" {
		where = `role = $1`
		args = append(args, role)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM app_user WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limitPos := len(args) + 1
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT `+userCols+` FROM app_user WHERE `+where+` ORDER BY full_name LIMIT $%d OFFSET $%d`,
		limitPos, limitPos+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// =========== Child Repository ===========

type childRepoPG struct{ pool *pgxpool.Pool }

func NewChildRepoPG(pool *pgxpool.Pool) ChildRepository { return &childRepoPG{pool: pool} }

func (r *childRepoPG) conn(ctx context.Context) queryable { return resolveConn(ctx, r.pool) }

const childCols = `id, parent_id, full_name, gender, birth_date, active, created_at, updated_at`

func scanChild(row pgx.Row) (*Child, error) {
	var c Child
	err := row.Scan(&c.ID, &c.ParentID, &c.FullName, &c.Gender, &c.BirthDate, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChildNotFound
	}
	return &c, err
}

func (r *childRepoPG) Create(ctx context.Context, c *Child) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO child (id, parent_id, full_name, gender, birth_date, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.ParentID, c.FullName, c.Gender, c.BirthDate, c.Active)
	return err
}

func (r *childRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Child, error) {
	return scanChild(r.conn(ctx).QueryRow(ctx, `SELECT `+childCols+` FROM child WHERE id = $1`, id))
}

func (r *childRepoPG) Update(ctx context.Context, c *Child) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE child SET full_name=$2, gender=$3, birth_date=$4, active=$5, updated_at=NOW()
		WHERE id = $1`, c.ID, c.FullName, c.Gender, c.BirthDate, c.Active)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrChildNotFound
	}
	return err
}

func (r *childRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM child WHERE id = $1`, id)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrChildNotFound
	}
	return err
}

func (r *childRepoPG) ListByParent(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*Child, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM child WHERE parent_id = $1`, parentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+childCols+` FROM child WHERE parent_id = $1
		ORDER BY birth_date DESC LIMIT $2 OFFSET $3`, parentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
