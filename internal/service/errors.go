package service

import "fmt"

var (
	ErrCustomerNotFound      = fmt.Errorf("customer not found")
	ErrCustomerAlreadyExists = fmt.Errorf("customer already exists")
	ErrCannotCreateCustomer  = fmt.Errorf("cannot create customer")
	ErrCannotAddInteraction  = fmt.Errorf("cannot add interaction")
)
