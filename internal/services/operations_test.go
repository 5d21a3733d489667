package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"hucha/internal/core"
	"hucha/internal/ledger"
)

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", s, err)
	}
	return d
}

func TestCreatePlainOperation(t *testing.T) {
	store := newFakeOperationStore()
	pub := &fakePublisher{}
	svc := NewOperationService(store, pub)

	created, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.Expense,
		Amount:      decimal.NewFromFloat(42.50),
		Description: "Mercadona",
		Category:    "comida",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Error("created operation should have an id")
	}
	if len(store.ops) != 1 {
		t.Errorf("store has %d rows, want 1", len(store.ops))
	}
	if len(pub.events) != 1 || pub.events[0].action != "created" {
		t.Errorf("published events = %+v, want one created", pub.events)
	}
	if pub.events[0].year != 2026 || pub.events[0].month != 3 {
		t.Errorf("published month = %d-%d, want 2026-3", pub.events[0].year, pub.events[0].month)
	}
}

func TestCreateTransferWritesBothLegs(t *testing.T) {
	store := newFakeOperationStore()
	svc := NewOperationService(store, nil)

	dst, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(100),
		Description: "Traspaso desde Ahorro a BBVA",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if dst.AccountName != "BBVA" {
		t.Errorf("destination account = %s, want BBVA", dst.AccountName)
	}
	if !dst.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("destination amount = %s, want 100", dst.Amount)
	}
	if len(store.ops) != 2 {
		t.Fatalf("store has %d rows, want 2", len(store.ops))
	}

	comp, ok := store.complementOf(dst)
	if !ok {
		t.Fatal("destination leg has no complement")
	}
	if comp.AccountName != "Ahorro" {
		t.Errorf("source account = %s, want Ahorro", comp.AccountName)
	}
	if !comp.Amount.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("source amount = %s, want -100", comp.Amount)
	}
}

func TestCreateTransferRejectsBadDescription(t *testing.T) {
	store := newFakeOperationStore()
	svc := NewOperationService(store, nil)

	_, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(100),
		Description: "movimiento interno",
	})
	if !errors.Is(err, ledger.ErrBadTransferDescription) {
		t.Errorf("Create() error = %v, want ErrBadTransferDescription", err)
	}
	if len(store.ops) != 0 {
		t.Errorf("store has %d rows, want 0 after rejected create", len(store.ops))
	}
}

func TestUpdatePlainToTransferReplacesRow(t *testing.T) {
	store := newFakeOperationStore()
	svc := NewOperationService(store, nil)

	orig, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.Expense,
		Amount:      decimal.NewFromInt(50),
		Description: "Luz",
		Category:    "vivienda",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dst, err := svc.Update(context.Background(), core.Operation{
		ID:          orig.ID,
		UserID:      1,
		AccountName: "Hucha",
		Date:        mustDate(t, "2026-03-11"),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(50),
		Description: "Traspaso desde BBVA a Hucha",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, ok := store.ops[orig.ID]; ok {
		t.Error("original row should be gone after update to transfer")
	}
	if len(store.ops) != 2 {
		t.Errorf("store has %d rows, want 2", len(store.ops))
	}
	if dst.AccountName != "Hucha" || !dst.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("returned leg = %s %s, want Hucha 50", dst.AccountName, dst.Amount)
	}
}

func TestUpdateTransferToPlainRemovesComplement(t *testing.T) {
	store := newFakeOperationStore()
	svc := NewOperationService(store, nil)

	dst, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(100),
		Description: "Traspaso desde Ahorro a BBVA",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), core.Operation{
		ID:          dst.ID,
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.Expense,
		Amount:      decimal.NewFromInt(100),
		Description: "Compra grande",
		Category:    "otros",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(store.ops) != 1 {
		t.Fatalf("store has %d rows, want 1 after collapsing the pair", len(store.ops))
	}
	if updated.Type != core.Expense {
		t.Errorf("updated type = %s, want expense", updated.Type)
	}
	if updated.TransferGroupID.Valid {
		t.Error("plain row should not keep a transfer group id")
	}
}

func TestUpdateTransferAmountReplacesBothLegs(t *testing.T) {
	store := newFakeOperationStore()
	svc := NewOperationService(store, nil)

	dst, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(100),
		Description: "Traspaso desde Ahorro a BBVA",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), core.Operation{
		ID:          dst.ID,
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(150),
		Description: "Traspaso desde Ahorro a BBVA",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(store.ops) != 2 {
		t.Fatalf("store has %d rows, want 2 after amount change", len(store.ops))
	}
	if !updated.Amount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("destination amount = %s, want 150", updated.Amount)
	}
	comp, ok := store.complementOf(updated)
	if !ok {
		t.Fatal("updated leg has no complement")
	}
	if !comp.Amount.Equal(decimal.NewFromInt(-150)) {
		t.Errorf("source amount = %s, want -150", comp.Amount)
	}
	for _, op := range store.ops {
		if op.Amount.Abs().Equal(decimal.NewFromInt(100)) {
			t.Errorf("stale row with amount %s still present", op.Amount)
		}
	}
}

func TestUpdatePlainStaysPlain(t *testing.T) {
	store := newFakeOperationStore()
	svc := NewOperationService(store, nil)

	orig, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.Expense,
		Amount:      decimal.NewFromInt(10),
		Description: "Café",
		Category:    "ocio",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), core.Operation{
		ID:          orig.ID,
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.Expense,
		Amount:      decimal.NewFromInt(12),
		Description: "Café y tostada",
		Category:    "ocio",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != orig.ID {
		t.Errorf("plain update changed id %d -> %d", orig.ID, updated.ID)
	}
}

func TestDeleteTransferPublishesDeletedEvent(t *testing.T) {
	store := newFakeOperationStore()
	pub := &fakePublisher{}
	svc := NewOperationService(store, pub)

	dst, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.SavingsWithdrawal,
		Amount:      decimal.NewFromInt(100),
		Description: "Traspaso desde Ahorro a BBVA",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	removed, err := svc.Delete(context.Background(), 1, dst.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed %d rows, want 2", len(removed))
	}
	if len(store.ops) != 0 {
		t.Errorf("store has %d rows, want 0", len(store.ops))
	}

	var deleted int
	for _, ev := range pub.events {
		if ev.action == "deleted" {
			deleted++
		}
	}
	// both legs share the month, one notification suffices
	if deleted != 1 {
		t.Errorf("deleted events = %d, want 1", deleted)
	}
}

func TestPublisherFailureDoesNotFailWrite(t *testing.T) {
	store := newFakeOperationStore()
	svc := NewOperationService(store, &fakePublisher{fail: true})

	_, err := svc.Create(context.Background(), core.Operation{
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.Income,
		Amount:      decimal.NewFromInt(1500),
		Description: "Nómina",
	})
	if err != nil {
		t.Fatalf("Create() error = %v, want nil despite broker failure", err)
	}
	if len(store.ops) != 1 {
		t.Errorf("store has %d rows, want 1", len(store.ops))
	}
}

func TestUpdateMissingOperation(t *testing.T) {
	svc := NewOperationService(newFakeOperationStore(), nil)

	_, err := svc.Update(context.Background(), core.Operation{
		ID:          99,
		UserID:      1,
		AccountName: "BBVA",
		Date:        mustDate(t, "2026-03-10"),
		Type:        core.Expense,
		Amount:      decimal.NewFromInt(10),
		Description: "x",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}
