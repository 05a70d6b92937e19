// Package vehicles manages the vehicle catalog and its availability status.
package vehicles

import (
	"time"

	"github.com/odyssey-erp/autosales/internal/lifecycle"
)

// Status is the availability of a catalog vehicle.
type Status = lifecycle.VehicleStatus

// Vehicle is a catalog entry.
type Vehicle struct {
	ID        string    `json:"id"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Color     string    `json:"color"`
	Price     float64   `json:"price"`
	VIN       string    `json:"vin"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *Vehicle) CurrentStatus() Status  { return v.Status }
func (v *Vehicle) LastUpdated() time.Time { return v.UpdatedAt }

// ApplyStatus is called by the lifecycle machine once a transition has been
// validated and persisted. Nothing else writes Status.
func (v *Vehicle) ApplyStatus(status Status, at time.Time) {
	v.Status = status
	v.UpdatedAt = at
}
