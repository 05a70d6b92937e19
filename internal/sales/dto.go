package sales

type CreateSaleRequest struct {
	VehicleID  string  `json:"vehicle_id" validate:"required,uuid"`
	CustomerID string  `json:"customer_id" validate:"required,uuid"`
	Price      float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=PENDING PAID CANCELLED"`
}

type ListSalesRequest struct {
	Status     *Status
	CustomerID string
	VehicleID  string
	Page       int
	PerPage    int
}
