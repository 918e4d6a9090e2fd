package entity

import "fmt"

// Unique columns of the users table.
const (
	FieldUsername  = "username"
	FieldIPAddress = "ip_address"
)

// ConflictError is returned by a store when an insert hits a unique
// constraint. Field names the column when the store reports it.
type ConflictError struct {
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unique constraint: %v", e.Err)
	}
	return fmt.Sprintf("unique constraint on %s: %v", e.Field, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
