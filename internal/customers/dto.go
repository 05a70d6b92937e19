package customers

type CreateCustomerRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Document string `json:"document,omitempty" validate:"omitempty,max=50"`
}

type UpdateCustomerRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Document *string `json:"document,omitempty" validate:"omitempty,max=50"`
}

type ListCustomersRequest struct {
	Search  string
	Page    int
	PerPage int
}
