package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Book is a catalog entry. Availability is flipped only by the order engine
// through Reserve/Unreserve; Rating changes only through Rate.
type Book struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	DailyPrice   int64   `json:"dailyPrice"`
	Rating       float64 `json:"rating"`
	TotalRatings int64   `json:"totalRatings"`
	Available    bool    `json:"available"`
}

// NewBook carries the editable fields of a book being added.
type NewBook struct {
	Title      string `json:"title" yaml:"title"`
	Author     string `json:"author" yaml:"author"`
	DailyPrice int64  `json:"dailyPrice" yaml:"dailyPrice"`
}

// BookUpdate carries optional edits. Nil fields are left unchanged.
type BookUpdate struct {
	Title      *string `json:"title,omitempty"`
	Author     *string `json:"author,omitempty"`
	DailyPrice *int64  `json:"dailyPrice,omitempty"`
}

const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrInvalidBook   = errors.New("invalid book")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

func (n NewBook) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return errors.Join(ErrInvalidBook, errors.New("title is required"))
	}
	if strings.TrimSpace(n.Author) == "" {
		return errors.Join(ErrInvalidBook, errors.New("author is required"))
	}
	if n.DailyPrice <= 0 {
		return errors.Join(ErrInvalidBook, errors.New("dailyPrice must be positive"))
	}
	return nil
}

func (u BookUpdate) Validate() error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return errors.Join(ErrInvalidBook, errors.New("title cannot be empty"))
	}
	if u.Author != nil && strings.TrimSpace(*u.Author) == "" {
		return errors.Join(ErrInvalidBook, errors.New("author cannot be empty"))
	}
	if u.DailyPrice != nil && *u.DailyPrice <= 0 {
		return errors.Join(ErrInvalidBook, errors.New("dailyPrice must be positive"))
	}
	return nil
}

// WithRating folds one more rating into the running average, rounded to one decimal.
func (b Book) WithRating(value int) Book {
	count := decimal.NewFromInt(b.TotalRatings)
	sum := decimal.NewFromFloat(b.Rating).Mul(count).Add(decimal.NewFromInt(int64(value)))
	newCount := count.Add(decimal.NewFromInt(1))

	b.Rating = sum.Div(newCount).Round(1).InexactFloat64()
	b.TotalRatings++
	return b
}
