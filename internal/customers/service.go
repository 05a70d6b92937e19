package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/autosales/internal/shared"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	c := Customer{
		ID:        shared.NewID(),
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Document:  strings.TrimSpace(req.Document),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateCustomerRequest) (*Customer, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
		changed = true
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != c.Email {
			if err := s.ensureEmailFree(ctx, email, c.ID); err != nil {
				return nil, err
			}
			c.Email = email
			changed = true
		}
	}
	if req.Phone != nil {
		c.Phone = strings.TrimSpace(*req.Phone)
		changed = true
	}
	if req.Document != nil {
		c.Document = strings.TrimSpace(*req.Document)
		changed = true
	}
	if !changed {
		return c, nil
	}

	c.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)
	if err := s.repo.Update(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	if !shared.ValidID(id) {
		return nil, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListCustomersRequest) (shared.Page[Customer], error) {
	req.Search = strings.TrimSpace(req.Search)
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return shared.Page[Customer]{}, err
	}
	return shared.Page[Customer]{Items: items, Pagination: shared.NewPagination(req.Page, req.PerPage, total)}, nil
}

// ensureEmailFree fails with shared.ErrDuplicate when email belongs to a
// customer other than self. The unique index still guards concurrent writers.
func (s *Service) ensureEmailFree(ctx context.Context, email, self string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check customer email: %w", err)
	case existing.ID != self:
		return fmt.Errorf("%w: customer email already registered", shared.ErrDuplicate)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
