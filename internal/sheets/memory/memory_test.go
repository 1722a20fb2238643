package memory

import (
	"context"
	"testing"

	"gastopro/internal/core"
)

func TestAppendTransaction(t *testing.T) {
	s := New()

	tx := core.Transaction{
		ID:        "t1",
		Date:      core.NewDate(2025, 3, 1),
		Kind:      core.KindExpense,
		Category:  core.CategoryAlimentos,
		Note:      "almuerzo",
		Amount:    core.Money{Cents: 12345},
		AccountID: "cash",
	}
	ref, err := s.AppendTransaction(context.Background(), tx)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ref, err = s.AppendTransaction(context.Background(), tx)
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected second append: ref=%q err=%v", ref, err)
	}

	appended := s.Appended()
	if len(appended) != 2 || appended[0].ID != "t1" {
		t.Fatalf("unexpected appended set: %v", appended)
	}
}

func TestAppendTransactionRejectsInvalid(t *testing.T) {
	s := New()

	_, err := s.AppendTransaction(context.Background(), core.Transaction{
		ID:   "bad",
		Date: core.NewDate(2025, 3, 1),
		Kind: "refund",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(s.Appended()) != 0 {
		t.Fatal("invalid transaction must not be recorded")
	}
}
