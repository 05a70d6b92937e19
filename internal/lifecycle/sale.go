package lifecycle

// SaleStatus is the payment state of a sale.
type SaleStatus string

const (
	SalePending   SaleStatus = "PENDING"
	SalePaid      SaleStatus = "PAID"
	SaleCancelled SaleStatus = "CANCELLED"
)

// SaleStatuses lists the sale payment status enumeration.
func SaleStatuses() []SaleStatus {
	return []SaleStatus{SalePending, SalePaid, SaleCancelled}
}

// NewSaleMachine returns the sale payment lifecycle. PAID and CANCELLED
// are terminal.
func NewSaleMachine(opts ...Option[SaleStatus]) *Machine[SaleStatus] {
	return NewMachine("sale", SalePending, SaleStatuses(), []Rule[SaleStatus]{
		{From: SalePending, To: SalePaid},
		{From: SalePending, To: SaleCancelled},
	}, opts...)
}
