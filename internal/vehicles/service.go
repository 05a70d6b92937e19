package vehicles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/autosales/internal/lifecycle"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// Service implements the vehicle catalog operations.
type Service struct {
	repo    Repository
	machine *lifecycle.Machine[Status]
	now     func() time.Time
}

// NewService builds a Service. A nil machine uses lifecycle.NewVehicleMachine.
func NewService(repo Repository, machine *lifecycle.Machine[Status]) *Service {
	if machine == nil {
		machine = lifecycle.NewVehicleMachine()
	}
	return &Service{repo: repo, machine: machine, now: time.Now}
}

// Create registers a vehicle in the lifecycle's initial status.
func (s *Service) Create(ctx context.Context, req CreateVehicleRequest) (*Vehicle, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	v := Vehicle{
		ID:        shared.NewID(),
		Brand:     strings.TrimSpace(req.Brand),
		Model:     strings.TrimSpace(req.Model),
		Year:      req.Year,
		Color:     strings.TrimSpace(req.Color),
		Price:     req.Price,
		VIN:       strings.ToUpper(strings.TrimSpace(req.VIN)),
		Status:    s.machine.Initial(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Vehicle, error) {
	if !shared.ValidID(id) {
		return nil, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListVehiclesRequest) (shared.Page[Vehicle], error) {
	if req.Status != nil && !s.machine.Valid(*req.Status) {
		return shared.Page[Vehicle]{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, *req.Status)
	}
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return shared.Page[Vehicle]{}, err
	}
	return shared.Page[Vehicle]{Items: items, Pagination: shared.NewPagination(req.Page, req.PerPage, total)}, nil
}

// Update changes descriptive fields. Status changes go through ChangeStatus.
func (s *Service) Update(ctx context.Context, id string, req UpdateVehicleRequest) (*Vehicle, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed := false
	if req.Brand != nil {
		v.Brand = strings.TrimSpace(*req.Brand)
		changed = true
	}
	if req.Model != nil {
		v.Model = strings.TrimSpace(*req.Model)
		changed = true
	}
	if req.Year != nil {
		v.Year = *req.Year
		changed = true
	}
	if req.Color != nil {
		v.Color = strings.TrimSpace(*req.Color)
		changed = true
	}
	if req.Price != nil {
		v.Price = *req.Price
		changed = true
	}
	if !changed {
		return v, nil
	}
	v.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)
	if err := s.repo.Update(ctx, *v); err != nil {
		return nil, err
	}
	return v, nil
}

// ChangeStatus moves the vehicle to status through the lifecycle table and a
// compare-and-swap on its stored status.
func (s *Service) ChangeStatus(ctx context.Context, id string, status Status) (*Vehicle, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.machine.Apply(ctx, s.repo, v.ID, v, status); err != nil {
		return nil, err
	}
	return v, nil
}

// ChangeStatusFrom moves the vehicle from expected to status. A vehicle in
// any other status is left untouched and ErrStatusConflict is returned.
func (s *Service) ChangeStatusFrom(ctx context.Context, id string, expected, status Status) (*Vehicle, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.machine.ApplyFrom(ctx, s.repo, v.ID, v, expected, status); err != nil {
		return nil, err
	}
	return v, nil
}
