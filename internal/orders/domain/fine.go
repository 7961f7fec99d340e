package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// LateFeeRate is the share of the daily rate charged per day late.
var LateFeeRate = decimal.RequireFromString("0.01")

// DaysLate returns whole days between the end date and the return date, never negative.
func DaysLate(end, returned Date) int64 {
	days := math.Floor(returned.Sub(end.Time).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int64(days)
}

// CalculateFine derives the late fee of an order. It is zero unless the
// order was returned after its end date.
func CalculateFine(o Order) int64 {
	if o.Status != StatusReturned || o.ReturnedDate == nil {
		return 0
	}
	days := DaysLate(o.EndDate, *o.ReturnedDate)
	if days == 0 {
		return 0
	}
	return decimal.NewFromInt(days).
		Mul(decimal.NewFromInt(o.DailyRateAtReservation)).
		Mul(LateFeeRate).
		Round(0).
		IntPart()
}
