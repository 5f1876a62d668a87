package patients

import (
	"context"
	"testing"
)

func TestFindOrCreateIsIdempotent(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first, err := repo.FindOrCreate(ctx, "+2348012345678", Identity{FirstName: "Amara"})
	if err != nil {
		t.Fatalf("FindOrCreate returned error: %v", err)
	}

	second, err := repo.FindOrCreate(ctx, "+2348012345678", Identity{FirstName: "Someone Else"})
	if err != nil {
		t.Fatalf("second FindOrCreate returned error: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected same patient, got ids %d and %d", first.ID, second.ID)
	}
	if second.FirstName != "Amara" {
		t.Errorf("existing name overwritten: got %q", second.FirstName)
	}
}

func TestFindOrCreateFillsMissingIdentityFields(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if _, err := repo.FindOrCreate(ctx, "+2348011112222", Identity{}); err != nil {
		t.Fatalf("FindOrCreate returned error: %v", err)
	}

	p, err := repo.FindOrCreate(ctx, "+2348011112222", Identity{FirstName: "Chidi", LastName: "Okafor"})
	if err != nil {
		t.Fatalf("FindOrCreate returned error: %v", err)
	}
	if p.FirstName != "Chidi" || p.LastName != "Okafor" {
		t.Errorf("identity not filled in: got %q %q", p.FirstName, p.LastName)
	}
}

func TestFindOrCreateRejectsBlankPhone(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.FindOrCreate(context.Background(), "   ", Identity{}); err != ErrInvalidPhone {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestGetByPhoneNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.GetByPhone(context.Background(), "+2340000000000"); err != ErrPatientNotFound {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}
