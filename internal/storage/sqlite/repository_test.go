package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"hucha/internal/core"
	"hucha/internal/ledger"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "hucha_test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *Repository) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: "ana", Token: "tok-ana"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func transferRequest(userID int64, amount int64) core.Operation {
	return core.Operation{
		UserID:      userID,
		AccountName: "BBVA",
		Date:        core.NewDate(2026, 3, 15),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(amount),
		Description: "Traspaso desde Ahorro a BBVA",
	}
}

func TestCreateTransferPair(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	ctx := context.Background()

	src, dst, err := ledger.BuildPair(transferRequest(u.ID, 100))
	if err != nil {
		t.Fatalf("build pair: %v", err)
	}
	outSrc, outDst, err := repo.CreateTransferPair(ctx, src, dst)
	if err != nil {
		t.Fatalf("create transfer pair: %v", err)
	}

	ops, err := repo.ListOperations(ctx, u.ID, 2026, 3)
	if err != nil {
		t.Fatalf("list operations: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ops))
	}
	if outSrc.AccountName != "Ahorro" || !outSrc.Amount.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("source leg wrong: %+v", outSrc)
	}
	if outDst.AccountName != "BBVA" || !outDst.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("destination leg wrong: %+v", outDst)
	}
	if !outSrc.TransferGroupID.Valid || outSrc.TransferGroupID.UUID != outDst.TransferGroupID.UUID {
		t.Fatalf("legs must share a transfer group id")
	}
}

func TestDeleteTransferRemovesBothLegs(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	ctx := context.Background()

	src, dst, _ := ledger.BuildPair(transferRequest(u.ID, 100))
	_, outDst, err := repo.CreateTransferPair(ctx, src, dst)
	if err != nil {
		t.Fatalf("create transfer pair: %v", err)
	}

	removed, err := repo.DeleteOperation(ctx, u.ID, outDst.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed rows, got %d", len(removed))
	}

	ops, err := repo.ListOperations(ctx, u.ID, 2026, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 0 {
		t.Fatalf("expected empty month, got %d rows", len(ops))
	}
}

func TestComplementHeuristicForLegacyRows(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	ctx := context.Background()

	// Legacy rows carry no transfer group id; the complement is located by
	// matching date, description and negated amount.
	legacySrc := transferRequest(u.ID, 100)
	legacySrc.AccountName = "Ahorro"
	legacySrc.Amount = decimal.NewFromInt(-100)
	legacyDst := transferRequest(u.ID, 100)

	if _, err := repo.CreateOperation(ctx, legacySrc); err != nil {
		t.Fatalf("insert legacy source: %v", err)
	}
	dst, err := repo.CreateOperation(ctx, legacyDst)
	if err != nil {
		t.Fatalf("insert legacy destination: %v", err)
	}

	removed, err := repo.DeleteOperation(ctx, u.ID, dst.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("heuristic should remove both legs, removed %d", len(removed))
	}
}

func TestAmbiguousTwinTransfersRemoveEitherCandidate(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	ctx := context.Background()

	// Two identical legacy transfers: same date, description and amount. The
	// value-matching lookup cannot tell their source legs apart; deleting one
	// destination leg removes one of the two candidates, never more.
	for i := 0; i < 2; i++ {
		src := transferRequest(u.ID, 100)
		src.AccountName = "Ahorro"
		src.Amount = decimal.NewFromInt(-100)
		if _, err := repo.CreateOperation(ctx, src); err != nil {
			t.Fatalf("insert source %d: %v", i, err)
		}
	}
	dst, err := repo.CreateOperation(ctx, transferRequest(u.ID, 100))
	if err != nil {
		t.Fatalf("insert destination: %v", err)
	}

	removed, err := repo.DeleteOperation(ctx, u.ID, dst.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected exactly 2 removed rows, got %d", len(removed))
	}

	ops, err := repo.ListOperations(ctx, u.ID, 2026, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("expected one surviving source leg, got %d rows", len(ops))
	}
}

func TestReplaceOperationSwapsPair(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	ctx := context.Background()

	src, dst, _ := ledger.BuildPair(transferRequest(u.ID, 100))
	_, outDst, err := repo.CreateTransferPair(ctx, src, dst)
	if err != nil {
		t.Fatalf("create transfer pair: %v", err)
	}

	newSrc, newDst, _ := ledger.BuildPair(transferRequest(u.ID, 150))
	inserted, err := repo.ReplaceOperation(ctx, u.ID, outDst.ID, []core.Operation{newSrc, newDst})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("expected 2 inserted rows, got %d", len(inserted))
	}

	ops, err := repo.ListOperations(ctx, u.ID, 2026, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("old pair must be gone, got %d rows", len(ops))
	}
	for _, op := range ops {
		if op.Amount.Abs().Cmp(decimal.NewFromInt(150)) != 0 {
			t.Fatalf("orphan of the old amount survived: %+v", op)
		}
	}
}

func TestGetOperationScopedByUser(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	other, err := repo.CreateUser(context.Background(), core.User{Name: "bea", Token: "tok-bea"})
	if err != nil {
		t.Fatalf("create second user: %v", err)
	}
	ctx := context.Background()

	op, err := repo.CreateOperation(ctx, core.Operation{
		UserID:      u.ID,
		AccountName: "BBVA",
		Date:        core.NewDate(2026, 3, 1),
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("12.50"),
		Description: "mercado",
		Category:    "otros",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.GetOperation(ctx, other.ID, op.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign row, got %v", err)
	}
	got, err := repo.GetOperation(ctx, u.ID, op.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("amount round trip: %s", got.Amount)
	}
}

func TestMonthSummary(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	ctx := context.Background()

	seed := []core.Operation{
		{Type: core.Income, Amount: decimal.NewFromInt(2000), Category: "", Description: "nomina"},
		{Type: core.Expense, Amount: decimal.RequireFromString("300.25"), Category: "vivienda", Description: "alquiler"},
		{Type: core.Expense, Amount: decimal.RequireFromString("99.75"), Category: "ocio", Description: "cine"},
		{Type: core.Savings, Amount: decimal.NewFromInt(500), Category: "", Description: "hucha"},
	}
	for _, op := range seed {
		op.UserID = u.ID
		op.AccountName = "BBVA"
		op.Date = core.NewDate(2026, 3, 10)
		if _, err := repo.CreateOperation(ctx, op); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	sum, err := repo.MonthSummary(ctx, u.ID, 2026, 3)
	if err != nil {
		t.Fatalf("month summary: %v", err)
	}
	if !sum.Income.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("income = %s", sum.Income)
	}
	if !sum.Expenses.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expenses = %s", sum.Expenses)
	}
	if !sum.Savings.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("savings = %s", sum.Savings)
	}
	if !sum.Balance.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("balance = %s", sum.Balance)
	}
	if len(sum.ByCategory) != 2 || sum.ByCategory[0].Name != "vivienda" {
		t.Fatalf("by category = %+v", sum.ByCategory)
	}
}

func TestReplaceBudgetsOverwritesMonth(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	ctx := context.Background()

	first := []core.Budget{
		{Category: "vivienda", Amount: decimal.NewFromInt(800)},
		{Category: "ocio", Amount: decimal.NewFromInt(150)},
	}
	if err := repo.ReplaceBudgets(ctx, u.ID, "2026-03", first); err != nil {
		t.Fatalf("replace: %v", err)
	}

	second := []core.Budget{{Category: "transporte", Amount: decimal.NewFromInt(120)}}
	if err := repo.ReplaceBudgets(ctx, u.ID, "2026-03", second); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	got, err := repo.GetBudgets(ctx, u.ID, "2026-03")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Category != "transporte" {
		t.Fatalf("month not overwritten wholesale: %+v", got)
	}
}

func TestCalendarEventSoftDelete(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo)
	ctx := context.Background()

	ev, err := repo.CreateCalendarEvent(ctx, core.CalendarEvent{
		UserID:     u.ID,
		Name:       "seguro coche",
		Day:        5,
		AmountMin:  decimal.NewFromInt(180),
		Category:   "transporte",
		Recurrence: `{"type":"semiannual","startMonth":0}`,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if err := repo.DeactivateCalendarEvent(ctx, u.ID, ev.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := repo.ListCalendarEvents(ctx, u.ID, false)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("deactivated event still listed: %+v", active)
	}

	all, err := repo.ListCalendarEvents(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].Active {
		t.Fatalf("row must survive deactivation inactive: %+v", all)
	}
}
