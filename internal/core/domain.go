package core

import (
	"errors"
	"strings"
	"time"
)

// Category is one of the fixed spending categories.
type Category string

const (
	FoodDining     Category = "Food & Dining"
	Transportation Category = "Transportation"
	Shopping       Category = "Shopping"
	Entertainment  Category = "Entertainment"
	Utilities      Category = "Utilities"
	Healthcare     Category = "Healthcare"
	Education      Category = "Education"
	Other          Category = "Other"
)

// DefaultCategory is used when the form leaves the category empty.
const DefaultCategory = Other

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 500
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		Title       string
		Amount      Money
		Category    Category
		Date        Date
		Description string // optional
	}
)

var (
	ErrEmptyTitle         = errors.New("empty title")
	ErrTitleTooLong       = errors.New("title too long (max 120 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
)

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return []Category{FoodDining, Transportation, Shopping, Entertainment, Utilities, Healthcare, Education, Other}
}

// ParseCategory maps form input onto the fixed set. Empty input yields Other.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCategory, nil
	}
	for _, c := range Categories() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	return DateOf(time.Now())
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO returns the date as YYYY-MM-DD, the value of an <input type="date">.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len([]rune(title)) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len([]rune(e.Description)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// NextID returns max(existing ids) + 1, or 1 for an empty collection.
func NextID(expenses []Expense) int64 {
	var maxID int64
	for _, e := range expenses {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}
