// Package sales records vehicle sales and drives their payment lifecycle.
package sales

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/autosales/internal/lifecycle"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// Status is the payment state of a sale.
type Status = lifecycle.SaleStatus

type Sale struct {
	ID         string    `json:"id"`
	VehicleID  string    `json:"vehicle_id"`
	CustomerID string    `json:"customer_id"`
	SellerID   string    `json:"seller_id"`
	Price      float64   `json:"price"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Sale) CurrentStatus() Status  { return s.Status }
func (s *Sale) LastUpdated() time.Time { return s.UpdatedAt }

func (s *Sale) ApplyStatus(status Status, at time.Time) {
	s.Status = status
	s.UpdatedAt = at
}

// VehicleUnavailableError rejects a sale for a vehicle that cannot be
// reserved.
type VehicleUnavailableError struct {
	VehicleID string
	Status    lifecycle.VehicleStatus
}

func (e *VehicleUnavailableError) Error() string {
	return fmt.Sprintf("vehicle %s is %s", e.VehicleID, e.Status)
}

func (e *VehicleUnavailableError) Unwrap() error { return shared.ErrVehicleUnavailable }

func (e *VehicleUnavailableError) CurrentState() string   { return string(e.Status) }
func (e *VehicleUnavailableError) RequestedState() string { return string(lifecycle.VehicleReserved) }
func (e *VehicleUnavailableError) NoOp() bool             { return false }
