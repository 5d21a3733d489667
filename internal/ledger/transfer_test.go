package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"hucha/internal/core"
)

func TestParseSourceAccount(t *testing.T) {
	cases := []struct {
		desc    string
		want    string
		wantErr bool
	}{
		{"Traspaso desde Ahorro a BBVA", "Ahorro", false},
		{"Traspaso desde Hucha vacaciones a Cuenta nomina", "Hucha vacaciones", false},
		{"pago varios", "", true},
		{"Traspaso Ahorro BBVA", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseSourceAccount(tc.desc)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseSourceAccount(%q) expected error", tc.desc)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseSourceAccount(%q): %v", tc.desc, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSourceAccount(%q) = %q, want %q", tc.desc, got, tc.want)
		}
	}
}

func TestBuildPair(t *testing.T) {
	req := core.Operation{
		UserID:      7,
		AccountName: "BBVA",
		Date:        core.NewDate(2026, 3, 15),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(100),
		Description: "Traspaso desde Ahorro a BBVA",
		Category:    "ignored",
	}
	src, dst, err := BuildPair(req)
	if err != nil {
		t.Fatalf("BuildPair: %v", err)
	}

	if src.AccountName != "Ahorro" {
		t.Fatalf("source account = %q, want Ahorro", src.AccountName)
	}
	if dst.AccountName != "BBVA" {
		t.Fatalf("destination account = %q, want BBVA", dst.AccountName)
	}
	if !src.Amount.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("source amount = %s, want -100", src.Amount)
	}
	if !dst.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("destination amount = %s, want 100", dst.Amount)
	}
	if src.Date != dst.Date || src.Description != dst.Description {
		t.Fatalf("legs must share date and description")
	}
	if src.Category != "" || dst.Category != "" {
		t.Fatalf("transfer legs must carry an empty category")
	}
	if !src.TransferGroupID.Valid || !dst.TransferGroupID.Valid {
		t.Fatalf("both legs need a transfer group id")
	}
	if src.TransferGroupID.UUID != dst.TransferGroupID.UUID {
		t.Fatalf("legs must share the transfer group id")
	}
}

func TestBuildPairNegativeRequestAmount(t *testing.T) {
	// A negated request amount still yields source-negative, destination-positive.
	req := core.Operation{
		UserID:      7,
		AccountName: "BBVA",
		Date:        core.NewDate(2026, 3, 15),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(-100),
		Description: "Traspaso desde Ahorro a BBVA",
	}
	src, dst, err := BuildPair(req)
	if err != nil {
		t.Fatalf("BuildPair: %v", err)
	}
	if !src.Amount.IsNegative() || !dst.Amount.IsPositive() {
		t.Fatalf("signs wrong: src=%s dst=%s", src.Amount, dst.Amount)
	}
}

func TestBuildPairRejectsBadDescription(t *testing.T) {
	req := core.Operation{
		UserID:      7,
		AccountName: "BBVA",
		Date:        core.NewDate(2026, 3, 15),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(100),
		Description: "pago varios",
	}
	if _, _, err := BuildPair(req); err == nil {
		t.Fatalf("expected error for unparseable description")
	}
}

func TestComplementAmount(t *testing.T) {
	a := decimal.RequireFromString("123.45")
	if !ComplementAmount(a).Equal(decimal.RequireFromString("-123.45")) {
		t.Fatalf("complement of %s wrong", a)
	}
}
