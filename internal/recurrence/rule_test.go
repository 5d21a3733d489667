package recurrence

import (
	"encoding/json"
	"testing"
)

func monthsApplying(r Rule, year int) []int {
	var out []int
	for m := 0; m < 12; m++ {
		if r.Applies(year, m) {
			out = append(out, m)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMonthlyAppliesEveryMonth(t *testing.T) {
	r := Rule{Kind: KindMonthly}
	for m := 0; m < 12; m++ {
		if !r.Applies(2026, m) {
			t.Fatalf("monthly should apply to month %d", m)
		}
	}
}

func TestAnnualApplies(t *testing.T) {
	r := Rule{Kind: KindAnnual, Month: 5}
	if got := monthsApplying(r, 2026); !equalInts(got, []int{5}) {
		t.Fatalf("annual(5) applies to %v", got)
	}
}

func TestSemiannualApplies(t *testing.T) {
	cases := []struct {
		start int
		want  []int
	}{
		{0, []int{0, 6}},
		{3, []int{3, 9}},
		{8, []int{2, 8}}, // wraps past December
	}
	for _, tc := range cases {
		r := Rule{Kind: KindSemiannual, StartMonth: tc.start}
		if got := monthsApplying(r, 2026); !equalInts(got, tc.want) {
			t.Fatalf("semiannual(%d) applies to %v, want %v", tc.start, got, tc.want)
		}
	}
}

func TestQuarterlyApplies(t *testing.T) {
	r := Rule{Kind: KindQuarterly, StartMonth: 1}
	if got := monthsApplying(r, 2026); !equalInts(got, []int{1, 4, 7, 10}) {
		t.Fatalf("quarterly(1) applies to %v", got)
	}
}

func TestEveryXMonthsApplies(t *testing.T) {
	cases := []struct {
		start, every int
		want         []int
	}{
		{2, 4, []int{2, 6, 10}},
		{0, 1, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
		{11, 5, []int{1, 6, 11}},
		// an interval larger than a year still evaluates without blowing up
		{2, 200, []int{2}},
	}
	for _, tc := range cases {
		r := Rule{Kind: KindEveryXMonth, StartMonth: tc.start, EveryX: tc.every}
		if got := monthsApplying(r, 2026); !equalInts(got, tc.want) {
			t.Fatalf("everyXMonths(%d,%d) applies to %v, want %v", tc.start, tc.every, got, tc.want)
		}
	}
}

func TestOnceApplies(t *testing.T) {
	// yearMonth uses one-based months, Applies takes zero-based: "2026-03"
	// matches March, i.e. month index 2.
	r := Rule{Kind: KindOnce, YearMonth: "2026-03"}
	if !r.Applies(2026, 2) {
		t.Fatalf("once(2026-03) should apply to 2026 month index 2")
	}
	if r.Applies(2026, 3) {
		t.Fatalf("once(2026-03) must not apply to month index 3")
	}
	if r.Applies(2027, 2) {
		t.Fatalf("once(2026-03) must not repeat in 2027")
	}
}

func TestUnknownKindFailsClosed(t *testing.T) {
	for _, kind := range []string{"", "weekly", "bogus"} {
		r := Rule{Kind: kind}
		for m := 0; m < 12; m++ {
			if r.Applies(2026, m) {
				t.Fatalf("kind %q must never apply", kind)
			}
		}
	}
}

func TestAppliesRejectsOutOfRangeMonth(t *testing.T) {
	r := Rule{Kind: KindMonthly}
	if r.Applies(2026, -1) || r.Applies(2026, 12) {
		t.Fatalf("out of range month must not apply")
	}
}

func TestRuleJSONRoundTrip(t *testing.T) {
	cases := []struct {
		raw  string
		rule Rule
	}{
		{`{"type":"once","yearMonth":"2026-03"}`, Rule{Kind: KindOnce, YearMonth: "2026-03"}},
		{`{"type":"annual","month":5}`, Rule{Kind: KindAnnual, Month: 5}},
		{`{"type":"semiannual","startMonth":0}`, Rule{Kind: KindSemiannual}},
		{`{"type":"quarterly","startMonth":1}`, Rule{Kind: KindQuarterly, StartMonth: 1}},
		{`{"type":"monthly"}`, Rule{Kind: KindMonthly}},
		{`{"type":"everyXMonths","startMonth":2,"everyX":4}`, Rule{Kind: KindEveryXMonth, StartMonth: 2, EveryX: 4}},
	}
	for _, tc := range cases {
		got, err := Parse(tc.raw)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.raw, err)
		}
		if got != tc.rule {
			t.Fatalf("parse %s = %+v, want %+v", tc.raw, got, tc.rule)
		}
		b, err := json.Marshal(got)
		if err != nil {
			t.Fatalf("marshal %+v: %v", got, err)
		}
		again, err := Parse(string(b))
		if err != nil {
			t.Fatalf("reparse %s: %v", b, err)
		}
		if again != tc.rule {
			t.Fatalf("round trip %s = %+v, want %+v", tc.raw, again, tc.rule)
		}
	}
}

func TestParseRejectsInvalidRules(t *testing.T) {
	bads := []string{
		`{"type":"annual","month":12}`,
		`{"type":"everyXMonths","startMonth":2,"everyX":0}`,
		`{"type":"quarterly","startMonth":-1}`,
		`{"type":"once","yearMonth":"march"}`,
		`{"type":"fortnightly"}`,
		`not json`,
	}
	for _, raw := range bads {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}
