package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PalmaOG/barbersmap/internal/catalog"
)

func sampleDraft() *Draft {
	sub := int64(42)
	return &Draft{
		UserID:          7,
		Step:            StepServices,
		Description:     "Barber with taste",
		Photos:          []string{"p1", "p2"},
		RegionName:      "Moscow",
		RegionID:        1,
		SubRegionName:   "Tverskaya",
		SubRegionID:     &sub,
		ExperienceYears: 5,
		Specialization:  catalog.CategoryShort,
		Prices:          map[catalog.Category]int{catalog.CategoryShort: 500},
		Instagram:       "insta",
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:       time.Date(2026, 1, 2, 3, 10, 0, 0, time.UTC),
	}
}

func TestClone_IsDeep(t *testing.T) {
	d := sampleDraft()
	cp := d.Clone()

	cp.Photos[0] = "changed"
	cp.Prices[catalog.CategoryLong] = 999
	*cp.SubRegionID = 1000

	if d.Photos[0] != "p1" {
		t.Error("clone shares the photos slice")
	}
	if _, ok := d.Prices[catalog.CategoryLong]; ok {
		t.Error("clone shares the prices map")
	}
	if *d.SubRegionID != 42 {
		t.Error("clone shares the sub-region pointer")
	}
}

func TestMissingCategories_Order(t *testing.T) {
	d := &Draft{}
	got := d.MissingCategories()
	want := []catalog.Category{catalog.CategoryShort, catalog.CategoryLong, catalog.CategoryBeard}
	if len(got) != len(want) {
		t.Fatalf("missing = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("missing = %v, want fixed order %v", got, want)
		}
	}

	d.Prices = map[catalog.Category]int{catalog.CategoryLong: 700}
	got = d.MissingCategories()
	if len(got) != 2 || got[0] != catalog.CategoryShort || got[1] != catalog.CategoryBeard {
		t.Fatalf("missing = %v, want [short beard]", got)
	}

	d.Prices[catalog.CategoryShort] = 500
	d.Prices[catalog.CategoryBeard] = 300
	if got = d.MissingCategories(); len(got) != 0 {
		t.Fatalf("missing = %v, want none", got)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	d := sampleDraft()
	raw, err := encode(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if back.UserID != d.UserID || back.Step != d.Step {
		t.Errorf("identity fields lost: %+v", back)
	}
	if back.SubRegionID == nil || *back.SubRegionID != 42 {
		t.Error("sub-region pointer lost in round trip")
	}
	if back.Prices[catalog.CategoryShort] != 500 {
		t.Errorf("prices lost: %v", back.Prices)
	}
	if !back.UpdatedAt.Equal(d.UpdatedAt) {
		t.Errorf("updatedAt = %v, want %v", back.UpdatedAt, d.UpdatedAt)
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	if _, err := decode([]byte("{not json")); err == nil {
		t.Fatal("decode accepted malformed input")
	}
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	d := sampleDraft()
	if err := s.Put(ctx, d); err != nil {
		t.Fatalf("Put: %v", err)
	}
	d.Description = "mutated after put"

	got, err := s.Get(ctx, d.UserID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "Barber with taste" {
		t.Error("store shares memory with the caller's draft")
	}

	got.Photos[0] = "mutated"
	again, err := s.Get(ctx, d.UserID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Photos[0] != "p1" {
		t.Error("store shares memory with a returned draft")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_DeleteIdle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	stale := New(1, StepDescription)
	stale.UpdatedAt = now.Add(-48 * time.Hour)
	fresh := New(2, StepDescription)
	fresh.UpdatedAt = now

	for _, d := range []*Draft{stale, fresh} {
		if err := s.Put(ctx, d); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	removed, err := s.DeleteIdle(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteIdle: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := s.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Error("stale draft survived the sweep")
	}
	if _, err := s.Get(ctx, 2); err != nil {
		t.Errorf("fresh draft was swept: %v", err)
	}
}
