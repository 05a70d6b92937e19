package shared

// Roles issued by the identity authority.
const (
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"
	RoleCustomer = "CUSTOMER"
)

// RoleSets lists the roles sufficient for each protected operation group.
type RoleSets struct {
	VehicleRead   []string
	VehicleWrite  []string
	CustomerRead  []string
	CustomerWrite []string
	SaleRead      []string
	SaleWrite     []string
	Admin         []string
}

// DefaultRoleSets mirrors the defaults declared on app.Config.
func DefaultRoleSets() RoleSets {
	return RoleSets{
		VehicleRead:   []string{RoleAdmin, RoleEmployee, RoleCustomer},
		VehicleWrite:  []string{RoleAdmin, RoleEmployee},
		CustomerRead:  []string{RoleAdmin, RoleEmployee},
		CustomerWrite: []string{RoleAdmin, RoleEmployee},
		SaleRead:      []string{RoleAdmin, RoleEmployee, RoleCustomer},
		SaleWrite:     []string{RoleAdmin, RoleEmployee},
		Admin:         []string{RoleAdmin},
	}
}
