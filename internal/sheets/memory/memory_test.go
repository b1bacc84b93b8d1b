package memory

import (
	"context"
	"testing"

	"zaakiyah/internal/core"
)

func TestAppendAndItems(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, core.Donation{ID: "don-1", TotalAmount: core.Money{Cents: 5000}})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	ref, err = s.Append(ctx, core.Donation{ID: "don-2", TotalAmount: core.Money{Cents: 7500}})
	if err != nil {
		t.Fatal(err)
	}
	if ref != "mem:2" {
		t.Errorf("ref = %q, want mem:2", ref)
	}

	items := s.Items()
	if len(items) != 2 || items[0].ID != "don-1" {
		t.Errorf("items = %+v", items)
	}
}

func TestAppendRejectsEmptyID(t *testing.T) {
	s := New()
	if _, err := s.Append(context.Background(), core.Donation{}); err == nil {
		t.Error("expected error for empty donation id")
	}
}
