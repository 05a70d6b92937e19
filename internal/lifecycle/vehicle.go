package lifecycle

// VehicleStatus is the availability of a catalog vehicle.
type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "AVAILABLE"
	VehicleReserved  VehicleStatus = "RESERVED"
	VehicleSold      VehicleStatus = "SOLD"
)

// VehicleStatuses lists the vehicle status enumeration.
func VehicleStatuses() []VehicleStatus {
	return []VehicleStatus{VehicleAvailable, VehicleReserved, VehicleSold}
}

// NewVehicleMachine returns the vehicle availability lifecycle.
//
//	AVAILABLE -> RESERVED | SOLD
//	RESERVED  -> SOLD | AVAILABLE
//	SOLD      -> AVAILABLE
func NewVehicleMachine(opts ...Option[VehicleStatus]) *Machine[VehicleStatus] {
	return NewMachine("vehicle", VehicleAvailable, VehicleStatuses(), []Rule[VehicleStatus]{
		{From: VehicleAvailable, To: VehicleReserved},
		{From: VehicleAvailable, To: VehicleSold},
		{From: VehicleReserved, To: VehicleSold},
		{From: VehicleReserved, To: VehicleAvailable},
		{From: VehicleSold, To: VehicleAvailable},
	}, opts...)
}
