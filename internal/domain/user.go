package domain

import "time"

type Role string

const (
	RoleClient   Role = "client"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

// User is the authenticated identity a session is scoped to.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Address is a shipping address, either saved in the address book or entered at checkout.
type Address struct {
	ID         string `json:"id,omitempty"`
	FirstName  string `json:"name" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Phone      string `json:"phone" validate:"required,phone"`
	Email      string `json:"email" validate:"required,email"`
	Street     string `json:"street" validate:"required"`
	Department string `json:"department" validate:"required"`
	City       string `json:"city" validate:"required"`
	Note       string `json:"note,omitempty"`
}
