package directory

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleUser   = "user"
	RoleDoctor = "doctor"
	RoleAdmin  = "admin"
)

// User statuses.
const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

func ValidRole(r string) bool {
	return r == RoleUser || r == RoleDoctor || r == RoleAdmin
}

func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusBlocked
}

// User maps to the app_user table: a parent, doctor or administrator
// account.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Child maps to the child table. Every child belongs to exactly one parent
// user; growth records hang off the child.
type Child struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ParentID  uuid.UUID `db:"parent_id" json:"parent_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Gender    string    `db:"gender" json:"gender"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
