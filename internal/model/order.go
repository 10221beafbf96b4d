// Package model contains simple struct definitions shared across packages.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// OrderStatus describes where an intake order is in its lifecycle. In Go a
// type declared via "type X string" creates a new named type with string as
// the underlying representation, enabling better type safety than plain
// strings.
type OrderStatus string

const (
	StatusNew        OrderStatus = "new"
	StatusProcessing OrderStatus = "processing"
	StatusComplete   OrderStatus = "complete"
)

// DateLayout is the calendar date format used on the wire for dob.
const DateLayout = "2006-01-02"

// Statuses lists every valid status in display order.
var Statuses = []OrderStatus{StatusNew, StatusProcessing, StatusComplete}

var (
	// ErrInvalidStatus is returned when a status string is not one of Statuses.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrNotFound is returned by order stores when no row matches. Go
	// encourages sentinel errors for simple cases so callers can use errors.Is.
	ErrNotFound = errors.New("order not found")
)

// ParseStatus converts s to an OrderStatus. An empty string yields StatusNew.
func ParseStatus(s string) (OrderStatus, error) {
	if s == "" {
		return StatusNew, nil
	}
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Order is one patient intake record. DOB is a pointer so that an absent date
// (JSON null) stays distinct from an empty string.
type Order struct {
	ID               int64       `json:"id"`
	PatientFirstName string      `json:"patient_first_name"`
	PatientLastName  string      `json:"patient_last_name"`
	DOB              *string     `json:"dob"`
	Status           OrderStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// FullName returns "first last".
func (o Order) FullName() string {
	return o.PatientFirstName + " " + o.PatientLastName
}

// OrderDraft is the in-progress form for a new order. Every field is plain
// text because it mirrors what an operator types.
type OrderDraft struct {
	PatientFirstName string
	PatientLastName  string
	DOB              string
	Status           OrderStatus
}

// EmptyDraft returns the default form state.
func EmptyDraft() OrderDraft {
	return OrderDraft{Status: StatusNew}
}

// Validate reports the first missing required field. It backs the input
// level constraints; controllers do not call it.
func (d OrderDraft) Validate() error {
	if strings.TrimSpace(d.PatientFirstName) == "" {
		return errors.New("first name is required")
	}
	if strings.TrimSpace(d.PatientLastName) == "" {
		return errors.New("last name is required")
	}
	if d.DOB != "" {
		if _, err := time.Parse(DateLayout, d.DOB); err != nil {
			return fmt.Errorf("dob must be YYYY-MM-DD: %w", err)
		}
	}
	if _, err := ParseStatus(string(d.Status)); err != nil {
		return err
	}
	return nil
}

// CreateOrderRequest is the JSON payload for creating an order.
type CreateOrderRequest struct {
	PatientFirstName string      `json:"patient_first_name"`
	PatientLastName  string      `json:"patient_last_name"`
	DOB              *string     `json:"dob"`
	Status           OrderStatus `json:"status"`
}

// Request converts the draft into its wire payload. An empty dob becomes null.
func (d OrderDraft) Request() CreateOrderRequest {
	req := CreateOrderRequest{
		PatientFirstName: d.PatientFirstName,
		PatientLastName:  d.PatientLastName,
		Status:           d.Status,
	}
	if req.Status == "" {
		req.Status = StatusNew
	}
	if d.DOB != "" {
		dob := d.DOB
		req.DOB = &dob
	}
	return req
}

// UpdateOrderRequest carries a partial overwrite. Nil fields keep their
// stored value.
type UpdateOrderRequest struct {
	PatientFirstName *string `json:"patient_first_name"`
	PatientLastName  *string `json:"patient_last_name"`
	DOB              *string `json:"dob"`
	Status           *string `json:"status"`
}
