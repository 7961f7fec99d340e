package domain

import (
	"errors"
	"time"
)

// OrderStatus captures the lifecycle of a rental order.
type OrderStatus string

const (
	StatusActive    OrderStatus = "active"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusReturned  OrderStatus = "returned"
	StatusCancelled OrderStatus = "cancelled"
)

// ReservationTTL is how long an active reservation may wait for pickup.
const ReservationTTL = 24 * time.Hour

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPickedUp, StatusReturned, StatusCancelled:
		return true
	default:
		return false
	}
}

// Order is a rental of one book by one user. After creation only Status,
// StartDate (on pickup) and ReturnedDate (on return) change.
type Order struct {
	ID              int64       `json:"id"`
	BookID          int64       `json:"bookId"`
	UserID          int64       `json:"userId"`
	ReservationDate Timestamp   `json:"reservationDate"`
	StartDate       Date        `json:"startDate"`
	EndDate         Date        `json:"endDate"`
	ReturnedDate    *Date       `json:"returnedDate,omitempty"`
	Status          OrderStatus `json:"status"`
	// DailyRateAtReservation is the book's daily price captured when the
	// order was placed. Stored under "fine" for compatibility; it is a rate,
	// never an amount.
	DailyRateAtReservation int64 `json:"fine"`
}

// Validate ensures the order references a book and a user.
func (o Order) Validate() error {
	if o.BookID <= 0 {
		return errors.New("bookId is required")
	}
	if o.UserID <= 0 {
		return errors.New("userId is required")
	}
	if o.DailyRateAtReservation < 0 {
		return errors.New("daily rate cannot be negative")
	}
	return nil
}

// IsTerminal indicates whether the order is in a terminal state.
func (o Order) IsTerminal() bool {
	switch o.Status {
	case StatusReturned, StatusCancelled:
		return true
	default:
		return false
	}
}

// HoldsBook reports whether the order keeps its book unavailable.
func (o Order) HoldsBook() bool {
	return o.Status == StatusActive || o.Status == StatusPickedUp
}

// Pickup moves an active order to picked_up and restarts the rental clock at today.
func (o *Order) Pickup(today Date) Outcome {
	if o.Status != StatusActive {
		return Ignored(ReasonWrongStatus)
	}
	o.Status = StatusPickedUp
	o.StartDate = today
	return Applied()
}

// Return moves a picked_up order to returned, stamping today as the return date.
func (o *Order) Return(today Date) Outcome {
	if o.Status != StatusPickedUp {
		return Ignored(ReasonWrongStatus)
	}
	returned := today
	o.Status = StatusReturned
	o.ReturnedDate = &returned
	return Applied()
}

// IsStale reports whether an active reservation has waited longer than ttl.
func (o Order) IsStale(now time.Time, ttl time.Duration) bool {
	return o.Status == StatusActive && now.Sub(o.ReservationDate.Time) > ttl
}

// Expire cancels the order if it is stale and reports whether it did.
func (o *Order) Expire(now time.Time, ttl time.Duration) bool {
	if !o.IsStale(now, ttl) {
		return false
	}
	o.Status = StatusCancelled
	return true
}
