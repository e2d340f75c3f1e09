package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DateLayout is the only accepted textual date format (ISO YYYY-MM-DD).
const DateLayout = "2006-01-02"

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is a single income or expense entry. The sign lives in
	// Type; Amount is always strictly positive.
	Transaction struct {
		ID          int64           `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      float64         `json:"amount"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
	}
)

var (
	errZeroDate      = errors.New("date cannot be zero")
	errEmptyCategory = errors.New("empty category")
)

// ParseTransactionType accepts exactly "Income" or "Expense".
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Impossible calendar dates such as
// 2023-02-30 are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date the way it is persisted.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the invariants every stored transaction must satisfy.
func (tx Transaction) Validate() error {
	if !tx.Type.IsValid() {
		return ErrInvalidType
	}
	if tx.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(tx.Category) == "" {
		return errEmptyCategory
	}
	if tx.Date.IsZero() {
		return errZeroDate
	}
	return nil
}
