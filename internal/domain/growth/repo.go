package growth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecordRepository persists growth measurement records.
type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	Update(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByChild returns records for a child ordered by measurement date
	// descending, plus the total count for pagination.
	ListByChild(ctx context.Context, childID uuid.UUID, limit, offset int) ([]*Record, int, error)
	// ListWindow returns records in [from, to] ordered by measurement date
	// ascending, for trend analysis.
	ListWindow(ctx context.Context, childID uuid.UUID, from, to time.Time) ([]*Record, error)
	LatestByChild(ctx context.Context, childID uuid.UUID) (*Record, error)
}

// StandardRepository stores the growth standard reference table.
type StandardRepository interface {
	LoadAll(ctx context.Context) ([]*StandardRow, error)
	// ReplaceAll swaps the full reference table in one transaction. Used by
	// the seed command only.
	ReplaceAll(ctx context.Context, rows []*StandardRow) error
}

// ChildProfile is the slice of the child directory this package depends on.
type ChildProfile struct {
	Gender    string
	BirthDate time.Time
}

// ChildDirectory resolves child profiles from the directory domain.
// Implementations return ErrChildNotFound when the child is absent.
type ChildDirectory interface {
	ChildProfile(ctx context.Context, id uuid.UUID) (*ChildProfile, error)
}
