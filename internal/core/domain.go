package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income            OperationType = "income"
	Expense           OperationType = "expense"
	Savings           OperationType = "savings"
	SavingsWithdrawal OperationType = "savings_withdrawal"
)

// EventCategories are the fixed calendar event categories.
var EventCategories = []string{"vivienda", "transporte", "ocio", "otros"}

const (
	CourseLunch  Course = "comida"
	CourseDinner Course = "cena"
)

type (
	OperationType string

	Course string

	// Operation is a single ledger row. Savings withdrawals always exist in
	// pairs: source leg with a negative amount, destination leg with the
	// positive amount, both sharing date, description and TransferGroupID.
	Operation struct {
		ID              int64
		UserID          int64
		AccountName     string
		Date            Date
		Type            OperationType
		Amount          decimal.Decimal
		Description     string
		Category        string
		TransferGroupID uuid.NullUUID
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// CalendarEvent is a recurring expense expectation shown on the calendar.
	// Deleting one only clears Active; rows are never removed.
	CalendarEvent struct {
		ID         int64
		UserID     int64
		Name       string
		Day        int // day of month, 1-31
		AmountMin  decimal.Decimal
		AmountMax  decimal.Decimal // meaningful only when HasMax
		HasMax     bool
		Category   string
		Recurrence string // JSON-serialized recurrence rule
		Active     bool
		// LastMaterialized is the "YYYY-MM" the recurring worker last turned
		// this event into an operation, empty if never.
		LastMaterialized string
	}

	// Budget is the planned amount for one category in one month.
	Budget struct {
		UserID   int64
		Month    string // "YYYY-MM"
		Category string
		Amount   decimal.Decimal
	}

	// Recipe belongs to the reusable meal inventory.
	Recipe struct {
		ID          int64
		UserID      int64
		Name        string
		Course      Course
		Ingredients []string
		Notes       string
	}

	// MenuEntry assigns a recipe to one slot of a weekly meal plan. WeekStart
	// is the Monday of the planned week.
	MenuEntry struct {
		UserID    int64
		WeekStart string // "YYYY-MM-DD"
		Weekday   int    // 0=Monday .. 6=Sunday
		Course    Course
		RecipeID  int64
	}

	User struct {
		ID    int64
		Name  string
		Token string
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidType        = errors.New("invalid operation type")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidCourse      = errors.New("invalid course")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidDescription = errors.New("invalid description")
	ErrInvalidWeekday     = errors.New("invalid weekday")
	ErrInvalidRecipe      = errors.New("invalid recipe id")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyAccount       = errors.New("empty account name")
)

func (t OperationType) Valid() bool {
	switch t {
	case Income, Expense, Savings, SavingsWithdrawal:
		return true
	}
	return false
}

func (c Course) Valid() bool {
	return c == CourseLunch || c == CourseDinner
}

// ValidEventCategory reports whether s is one of the four fixed categories.
func ValidEventCategory(s string) bool {
	for _, c := range EventCategories {
		if s == c {
			return true
		}
	}
	return false
}

func (o Operation) Validate() error {
	if err := o.Date.Validate(); err != nil {
		return err
	}
	if !o.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(o.AccountName) == "" {
		return ErrEmptyAccount
	}
	if len(strings.TrimSpace(o.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(o.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidDescription)
	}
	if o.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func (e CalendarEvent) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.Day < 1 || e.Day > 31 {
		return ErrInvalidDay
	}
	if !ValidEventCategory(e.Category) {
		return ErrInvalidCategory
	}
	if !e.AmountMin.IsPositive() {
		return ErrInvalidAmount
	}
	if e.HasMax && e.AmountMax.LessThan(e.AmountMin) {
		return fmt.Errorf("%w: amount max below amount min", ErrInvalidAmount)
	}
	return nil
}

func (b Budget) Validate() error {
	if err := ValidateYearMonth(b.Month); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrInvalidCategory
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Course.Valid() {
		return ErrInvalidCourse
	}
	return nil
}

func (m MenuEntry) Validate() error {
	if _, err := time.Parse("2006-01-02", m.WeekStart); err != nil {
		return fmt.Errorf("invalid week start date %q: %w", m.WeekStart, ErrInvalidDate)
	}
	if m.Weekday < 0 || m.Weekday > 6 {
		return fmt.Errorf("%w: weekday %d out of range", ErrInvalidWeekday, m.Weekday)
	}
	if !m.Course.Valid() {
		return ErrInvalidCourse
	}
	if m.RecipeID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRecipe, m.RecipeID)
	}
	return nil
}

// ValidateYearMonth checks a one-based "YYYY-MM" string.
func ValidateYearMonth(s string) error {
	if _, err := time.Parse("2006-01", s); err != nil {
		return ErrInvalidMonth
	}
	return nil
}
