package directory

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
}

// ChildRepository persists child profiles.
type ChildRepository interface {
	Create(ctx context.Context, c *Child) error
	GetByID(ctx context.Context, id uuid.UUID) (*Child, error)
	Update(ctx context.Context, c *Child) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByParent(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*Child, int, error)
}
