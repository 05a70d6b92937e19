package vehicles

type CreateVehicleRequest struct {
	Brand string  `json:"brand" validate:"required,max=100"`
	Model string  `json:"model" validate:"required,max=100"`
	Year  int     `json:"year" validate:"required,gte=1900,lte=2100"`
	Color string  `json:"color" validate:"omitempty,max=50"`
	Price float64 `json:"price" validate:"gt=0"`
	VIN   string  `json:"vin" validate:"required,alphanum,len=17"`
}

type UpdateVehicleRequest struct {
	Brand *string  `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model *string  `json:"model,omitempty" validate:"omitempty,max=100"`
	Year  *int     `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	Color *string  `json:"color,omitempty" validate:"omitempty,max=50"`
	Price *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
}

type ChangeStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=AVAILABLE RESERVED SOLD"`
}

type ListVehiclesRequest struct {
	Status  *Status
	Brand   string
	Page    int
	PerPage int
}
