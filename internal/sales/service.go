package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/autosales/internal/customers"
	"github.com/odyssey-erp/autosales/internal/lifecycle"
	"github.com/odyssey-erp/autosales/internal/shared"
	"github.com/odyssey-erp/autosales/internal/vehicles"
)

// VehicleGateway is the slice of the vehicle service sales depend on.
type VehicleGateway interface {
	Get(ctx context.Context, id string) (*vehicles.Vehicle, error)
	ChangeStatusFrom(ctx context.Context, id string, expected, status vehicles.Status) (*vehicles.Vehicle, error)
}

// CustomerLookup resolves the buyer of a sale.
type CustomerLookup interface {
	Get(ctx context.Context, id string) (*customers.Customer, error)
}

// ExpiryScheduler arranges for ExpireReservation to run for saleID at at.
type ExpiryScheduler interface {
	ScheduleReservationExpiry(ctx context.Context, saleID string, at time.Time) error
}

// ServiceConfig carries the optional collaborators of Service.
type ServiceConfig struct {
	// ReservationHold is how long a pending sale keeps its vehicle reserved.
	// Zero disables expiry scheduling.
	ReservationHold time.Duration
	Scheduler       ExpiryScheduler
	Machine         *lifecycle.Machine[Status]
	Logger          *slog.Logger
}

type Service struct {
	repo      Repository
	vehicles  VehicleGateway
	customers CustomerLookup
	scheduler ExpiryScheduler
	hold      time.Duration
	machine   *lifecycle.Machine[Status]
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, vehicleGateway VehicleGateway, customerLookup CustomerLookup, cfg ServiceConfig) *Service {
	if cfg.Machine == nil {
		cfg.Machine = lifecycle.NewSaleMachine()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		vehicles:  vehicleGateway,
		customers: customerLookup,
		scheduler: cfg.Scheduler,
		hold:      cfg.ReservationHold,
		machine:   cfg.Machine,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Create reserves the vehicle and records a PENDING sale. If the sale cannot
// be stored the reservation is released again.
func (s *Service) Create(ctx context.Context, req CreateSaleRequest, sellerID string) (*Sale, error) {
	if _, err := s.customers.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("sale customer: %w", err)
	}
	vehicle, err := s.vehicles.Get(ctx, req.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("sale vehicle: %w", err)
	}
	if vehicle.Status != lifecycle.VehicleAvailable {
		return nil, &VehicleUnavailableError{VehicleID: vehicle.ID, Status: vehicle.Status}
	}
	if _, err := s.vehicles.ChangeStatusFrom(ctx, vehicle.ID, lifecycle.VehicleAvailable, lifecycle.VehicleReserved); err != nil {
		var te *lifecycle.TransitionError
		if errors.As(err, &te) && errors.Is(err, shared.ErrStatusConflict) {
			return nil, &VehicleUnavailableError{VehicleID: vehicle.ID, Status: vehicles.Status(te.Current)}
		}
		return nil, fmt.Errorf("reserve vehicle: %w", err)
	}

	price := req.Price
	if price == 0 {
		price = vehicle.Price
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	sale := Sale{
		ID:         shared.NewID(),
		VehicleID:  vehicle.ID,
		CustomerID: req.CustomerID,
		SellerID:   sellerID,
		Price:      price,
		Status:     s.machine.Initial(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, sale); err != nil {
		s.releaseVehicle(ctx, vehicle.ID)
		return nil, err
	}

	if s.scheduler != nil && s.hold > 0 {
		if err := s.scheduler.ScheduleReservationExpiry(ctx, sale.ID, now.Add(s.hold)); err != nil {
			s.logger.Warn("schedule reservation expiry", slog.String("sale_id", sale.ID), slog.Any("error", err))
		}
	}
	return &sale, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Sale, error) {
	if !shared.ValidID(id) {
		return nil, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListSalesRequest) (shared.Page[Sale], error) {
	if req.Status != nil && !s.machine.Valid(*req.Status) {
		return shared.Page[Sale]{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, *req.Status)
	}
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return shared.Page[Sale]{}, err
	}
	return shared.Page[Sale]{Items: items, Pagination: shared.NewPagination(req.Page, req.PerPage, total)}, nil
}

// UpdateStatus moves the sale through its payment lifecycle and then brings
// the vehicle along: PAID sells it, CANCELLED returns it to the market.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Sale, error) {
	sale, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.machine.Apply(ctx, s.repo, sale.ID, sale, status); err != nil {
		return nil, err
	}

	target, ok := vehicleStatusFor(status)
	if !ok {
		return sale, nil
	}
	if err := s.syncVehicle(ctx, sale, target); err != nil {
		return sale, err
	}
	return sale, nil
}

// syncVehicle moves the vehicle out of RESERVED for a sale that just left
// PENDING. The vehicle is left unchanged when a newer pending sale holds it
// or when it is no longer RESERVED.
func (s *Service) syncVehicle(ctx context.Context, sale *Sale, target vehicles.Status) error {
	logger := s.logger.With(
		slog.String("sale_id", sale.ID),
		slog.String("vehicle_id", sale.VehicleID),
		slog.String("target", string(target)))

	superseded, err := s.repo.HasNewerPending(ctx, sale.VehicleID, sale.ID, sale.CreatedAt)
	if err != nil {
		logger.Error("sync vehicle status", slog.Any("error", err))
		return fmt.Errorf("sync vehicle %s: %w", sale.VehicleID, err)
	}
	if superseded {
		logger.Warn("vehicle reserved by a newer sale, leaving it unchanged")
		return nil
	}

	_, err = s.vehicles.ChangeStatusFrom(ctx, sale.VehicleID, lifecycle.VehicleReserved, target)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrStatusConflict):
		logger.Warn("vehicle no longer reserved, leaving it unchanged", slog.Any("error", err))
		return nil
	default:
		logger.Error("sync vehicle status", slog.Any("error", err))
		return fmt.Errorf("sync vehicle %s: %w", sale.VehicleID, err)
	}
}

// ExpireReservation cancels a sale that is still PENDING. It reports whether
// this call cancelled it; sales that were settled meanwhile are left alone.
func (s *Service) ExpireReservation(ctx context.Context, id string) (bool, error) {
	sale, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if sale.Status != lifecycle.SalePending {
		return false, nil
	}
	_, err = s.UpdateStatus(ctx, id, lifecycle.SaleCancelled)
	switch {
	case err == nil:
		s.logger.Info("reservation expired", slog.String("sale_id", id), slog.String("vehicle_id", sale.VehicleID))
		return true, nil
	case errors.Is(err, shared.ErrStatusConflict), errors.Is(err, shared.ErrAlreadyInState):
		return false, nil
	default:
		return false, err
	}
}

// ExpireStale expires up to limit pending sales older than the reservation
// hold and returns how many it cancelled.
func (s *Service) ExpireStale(ctx context.Context, limit int) (int, error) {
	if s.hold <= 0 {
		return 0, nil
	}
	stale, err := s.repo.ListPendingBefore(ctx, s.now().UTC().Add(-s.hold), limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, sale := range stale {
		ok, err := s.ExpireReservation(ctx, sale.ID)
		if err != nil {
			return expired, fmt.Errorf("expire sale %s: %w", sale.ID, err)
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *Service) releaseVehicle(ctx context.Context, vehicleID string) {
	if _, err := s.vehicles.ChangeStatusFrom(ctx, vehicleID, lifecycle.VehicleReserved, lifecycle.VehicleAvailable); err != nil {
		s.logger.Error("release vehicle reservation", slog.String("vehicle_id", vehicleID), slog.Any("error", err))
	}
}

func vehicleStatusFor(status Status) (vehicles.Status, bool) {
	switch status {
	case lifecycle.SalePaid:
		return lifecycle.VehicleSold, true
	case lifecycle.SaleCancelled:
		return lifecycle.VehicleAvailable, true
	default:
		return "", false
	}
}
