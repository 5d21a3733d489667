// Package recurrence evaluates calendar event recurrence rules.
//
// A rule decides whether an event instance falls in a given (year, month).
// Month arguments are zero-based (0=January .. 11=December). The one
// exception is the "once" variant, whose YearMonth field is a one-based
// "YYYY-MM" string; the conversion happens inside Applies and must not leak
// to callers.
package recurrence

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidRule marks any rule that fails validation or parsing.
var ErrInvalidRule = errors.New("invalid recurrence rule")

const (
	KindOnce        = "once"
	KindAnnual      = "annual"
	KindSemiannual  = "semiannual"
	KindQuarterly   = "quarterly"
	KindMonthly     = "monthly"
	KindEveryXMonth = "everyXMonths"
)

// Rule is a tagged recurrence rule. Which fields are meaningful depends on
// Kind; the JSON form carries only the fields the variant uses.
type Rule struct {
	Kind       string
	YearMonth  string // once: one-based "YYYY-MM"
	Month      int    // annual: 0-11
	StartMonth int    // semiannual, quarterly, everyXMonths: 0-11
	EveryX     int    // everyXMonths: >= 1
}

type ruleJSON struct {
	Type       string  `json:"type"`
	YearMonth  *string `json:"yearMonth,omitempty"`
	Month      *int    `json:"month,omitempty"`
	StartMonth *int    `json:"startMonth,omitempty"`
	EveryX     *int    `json:"everyX,omitempty"`
}

// Validate checks the variant tag and its fields.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindOnce:
		if len(r.YearMonth) != 7 || r.YearMonth[4] != '-' {
			return fmt.Errorf("%w: once rule: bad yearMonth %q", ErrInvalidRule, r.YearMonth)
		}
	case KindAnnual:
		if r.Month < 0 || r.Month > 11 {
			return fmt.Errorf("%w: annual rule: month %d out of range", ErrInvalidRule, r.Month)
		}
	case KindSemiannual, KindQuarterly:
		if r.StartMonth < 0 || r.StartMonth > 11 {
			return fmt.Errorf("%w: %s rule: startMonth %d out of range", ErrInvalidRule, r.Kind, r.StartMonth)
		}
	case KindMonthly:
	case KindEveryXMonth:
		if r.StartMonth < 0 || r.StartMonth > 11 {
			return fmt.Errorf("%w: everyXMonths rule: startMonth %d out of range", ErrInvalidRule, r.StartMonth)
		}
		if r.EveryX < 1 {
			return fmt.Errorf("%w: everyXMonths rule: everyX %d must be >= 1", ErrInvalidRule, r.EveryX)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRule, r.Kind)
	}
	return nil
}

// Applies reports whether the rule's event instance falls in (year, month).
// month is zero-based. Unknown or invalid rules never apply.
func (r Rule) Applies(year, month int) bool {
	if month < 0 || month > 11 {
		return false
	}
	switch r.Kind {
	case KindOnce:
		return r.YearMonth == fmt.Sprintf("%04d-%02d", year, month+1)
	case KindAnnual:
		return month == r.Month
	case KindSemiannual:
		return month == r.StartMonth || month == (r.StartMonth+6)%12
	case KindQuarterly:
		return (month-r.StartMonth+12)%3 == 0
	case KindMonthly:
		return true
	case KindEveryXMonth:
		if r.EveryX < 1 {
			return false
		}
		return ((month-r.StartMonth)%r.EveryX+r.EveryX)%r.EveryX == 0
	}
	return false
}

func (r Rule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{Type: r.Kind}
	switch r.Kind {
	case KindOnce:
		out.YearMonth = &r.YearMonth
	case KindAnnual:
		m := r.Month
		out.Month = &m
	case KindSemiannual, KindQuarterly:
		sm := r.StartMonth
		out.StartMonth = &sm
	case KindEveryXMonth:
		sm, ex := r.StartMonth, r.EveryX
		out.StartMonth = &sm
		out.EveryX = &ex
	}
	return json.Marshal(out)
}

func (r *Rule) UnmarshalJSON(b []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	r.Kind = in.Type
	if in.YearMonth != nil {
		r.YearMonth = *in.YearMonth
	}
	if in.Month != nil {
		r.Month = *in.Month
	}
	if in.StartMonth != nil {
		r.StartMonth = *in.StartMonth
	}
	if in.EveryX != nil {
		r.EveryX = *in.EveryX
	}
	return nil
}

// Parse decodes and validates a JSON-serialized rule.
func Parse(raw string) (Rule, error) {
	var r Rule
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}
