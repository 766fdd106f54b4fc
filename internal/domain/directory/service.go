package directory

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrChildNotFound  = errors.New("child not found")
	ErrDuplicateEmail = errors.New("email is already registered")
)

type Service struct {
	users    UserRepository
	children ChildRepository
}

func NewService(users UserRepository, children ChildRepository) *Service {
	return &Service{users: users, children: children}
}

// -- User --

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	if u.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("invalid email: %s", u.Email)
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if !ValidRole(u.Role) {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	if !ValidStatus(u.Status) {
		return fmt.Errorf("invalid status: %s", u.Status)
	}
	if _, err := s.users.GetByEmail(ctx, u.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	existing, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	if u.FullName == "" {
		u.FullName = existing.FullName
	}
	if u.Email == "" {
		u.Email = existing.Email
	} else if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("invalid email: %s", u.Email)
	}
	if u.Role == "" {
		u.Role = existing.Role
	}
	if u.Status == "" {
		u.Status = existing.Status
	}
	if !ValidRole(u.Role) || !ValidStatus(u.Status) {
		return fmt.Errorf("invalid role or status")
	}
	return s.users.Update(ctx, u)
}

func (s *Service) ListUsers(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	if role != "" && !ValidRole(role) {
		return nil, 0, fmt.Errorf("invalid role: %s", role)
	}
	return s.users.List(ctx, role, limit, offset)
}

// -- Child --

func (s *Service) CreateChild(ctx context.Context, c *Child) error {
	if _, err := s.users.GetByID(ctx, c.ParentID); err != nil {
		return err
	}
	if err := validateChild(c); err != nil {
		return err
	}
	c.Active = true
	return s.children.Create(ctx, c)
}

func (s *Service) GetChild(ctx context.Context, id uuid.UUID) (*Child, error) {
	return s.children.GetByID(ctx, id)
}

func (s *Service) UpdateChild(ctx context.Context, c *Child) error {
	existing, err := s.children.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	c.ParentID = existing.ParentID
	if c.FullName == "" {
		c.FullName = existing.FullName
	}
	if c.Gender == "" {
		c.Gender = existing.Gender
	}
	if c.BirthDate.IsZero() {
		c.BirthDate = existing.BirthDate
	}
	if err := validateChild(c); err != nil {
		return err
	}
	return s.children.Update(ctx, c)
}

func (s *Service) DeleteChild(ctx context.Context, id uuid.UUID) error {
	return s.children.Delete(ctx, id)
}

func (s *Service) ListChildrenByParent(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*Child, int, error) {
	return s.children.ListByParent(ctx, parentID, limit, offset)
}

func validateChild(c *Child) error {
	if c.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if c.Gender != "male" && c.Gender != "female" {
		return fmt.Errorf("gender must be male or female")
	}
	if c.BirthDate.IsZero() {
		return fmt.Errorf("birth_date is required")
	}
	if c.BirthDate.After(time.Now()) {
		return fmt.Errorf("birth_date must not be in the future")
	}
	return nil
}
