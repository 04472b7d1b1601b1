package search_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/PalmaOG/barbersmap/internal/catalog"
	"github.com/PalmaOG/barbersmap/internal/search"
)

func intPtr(v int) *int    { return &v }
func idPtr(v int64) *int64 { return &v }

// seedProvider commits an active profile with the given prices and returns
// its id.
func seedProvider(t *testing.T, store *catalog.MemoryStore, owner, regionID int64, subRegionID *int64, prices map[catalog.Category]int) int64 {
	t.Helper()
	id, err := store.SubmitProfile(context.Background(), catalog.Submission{
		OwnerUserID: owner,
		RegionID:    regionID,
		SubRegionID: subRegionID,
		Description: fmt.Sprintf("barber %d", owner),
		Photos:      []string{"p1", "p2", "p3", "p4", "p5"},
		Prices:      prices,
	})
	if err != nil {
		t.Fatalf("SubmitProfile: %v", err)
	}
	store.SetStatus(id, catalog.StatusActive)
	return id
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		raw     string
		want    search.Choice
		wantErr bool
	}{
		{raw: "1", want: 1},
		{raw: " 7 ", want: 7},
		{raw: "0", wantErr: true},
		{raw: "8", wantErr: true},
		{raw: "beard", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := search.ParseChoice(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseChoice(%q) = %d, want error", tt.raw, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseChoice(%q) = %d, %v; want %d", tt.raw, got, err, tt.want)
		}
	}
}

func TestChoiceCategories(t *testing.T) {
	tests := []struct {
		choice search.Choice
		want   []catalog.Category
	}{
		{1, []catalog.Category{catalog.CategoryBeard}},
		{2, []catalog.Category{catalog.CategoryLong}},
		{3, []catalog.Category{catalog.CategoryShort}},
		{4, []catalog.Category{catalog.CategoryBeard, catalog.CategoryShort}},
		{5, []catalog.Category{catalog.CategoryBeard, catalog.CategoryLong}},
		{6, []catalog.Category{catalog.CategoryLong, catalog.CategoryShort}},
		{7, []catalog.Category{catalog.CategoryBeard, catalog.CategoryLong, catalog.CategoryShort}},
	}
	for _, tt := range tests {
		got := tt.choice.Categories()
		if len(got) != len(tt.want) {
			t.Errorf("choice %d: categories = %v, want %v", tt.choice, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("choice %d: categories = %v, want %v", tt.choice, got, tt.want)
				break
			}
		}
	}
}

func TestCompile_NoBudgetDropsCoveragePredicate(t *testing.T) {
	f := search.Compile(search.Criteria{RegionID: 1, Choice: 7})
	if f.MaxPrice != nil || f.Categories != nil {
		t.Errorf("filter without budget = %+v, want region-only", f)
	}

	f = search.Compile(search.Criteria{RegionID: 1, MaxPrice: intPtr(1000), Choice: 5})
	if f.MaxPrice == nil || len(f.Categories) != 2 {
		t.Errorf("filter with budget = %+v, want price + 2 categories", f)
	}
}

// Coverage over the preset subset must be total: every category in the subset
// priced at or below the budget, categories outside it irrelevant.
func TestRun_SubsetCoverage(t *testing.T) {
	store := catalog.NewMemoryStore()
	region := store.AddRegion("Moscow", "Tverskaya")

	// Prices beard within budget but long above it.
	seedProvider(t, store, 1, region, nil, map[catalog.Category]int{
		catalog.CategoryBeard: 900,
		catalog.CategoryLong:  1100,
		catalog.CategoryShort: 500,
	})
	// Prices both preset categories within budget; short is expensive but
	// outside the subset.
	matchOwner := int64(2)
	matchID := seedProvider(t, store, matchOwner, region, nil, map[catalog.Category]int{
		catalog.CategoryBeard: 900,
		catalog.CategoryLong:  800,
		catalog.CategoryShort: 2000,
	})

	got, more, err := search.Run(context.Background(), store, search.Criteria{
		RegionID: region,
		MaxPrice: intPtr(1000),
		Choice:   5, // beard + long
	}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 || got[0].ID != matchID {
		t.Fatalf("Run returned %v, want exactly provider %d", got, matchID)
	}
	if more {
		t.Error("more = true for a single-result page")
	}
}

func TestRun_RegionAndSubRegionScoping(t *testing.T) {
	store := catalog.NewMemoryStore()
	moscow := store.AddRegion("Moscow", "Tverskaya", "Arbatskaya")
	kazan := store.AddRegion("Kazan")

	tverskaya, err := store.ResolveSubRegion(context.Background(), moscow, "Tverskaya")
	if err != nil {
		t.Fatalf("ResolveSubRegion: %v", err)
	}
	arbatskaya, err := store.ResolveSubRegion(context.Background(), moscow, "Arbatskaya")
	if err != nil {
		t.Fatalf("ResolveSubRegion: %v", err)
	}

	prices := map[catalog.Category]int{
		catalog.CategoryShort: 500, catalog.CategoryLong: 500, catalog.CategoryBeard: 500,
	}
	atTverskaya := seedProvider(t, store, 1, moscow, idPtr(tverskaya), prices)
	seedProvider(t, store, 2, moscow, idPtr(arbatskaya), prices)
	seedProvider(t, store, 3, kazan, nil, prices)

	// Sub-region pinned: only the Tverskaya provider.
	got, _, err := search.Run(context.Background(), store, search.Criteria{
		RegionID:    moscow,
		SubRegionID: idPtr(tverskaya),
	}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 || got[0].ID != atTverskaya {
		t.Fatalf("sub-region search returned %v, want provider %d", got, atTverskaya)
	}

	// Sub-region nil: every Moscow provider, never the Kazan one.
	got, _, err = search.Run(context.Background(), store, search.Criteria{RegionID: moscow}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("region search returned %d providers, want 2", len(got))
	}
}

func TestRun_ExcludesNonActiveProfiles(t *testing.T) {
	store := catalog.NewMemoryStore()
	region := store.AddRegion("Moscow")
	prices := map[catalog.Category]int{
		catalog.CategoryShort: 500, catalog.CategoryLong: 500, catalog.CategoryBeard: 500,
	}

	active := seedProvider(t, store, 1, region, nil, prices)
	for i, status := range []catalog.Status{catalog.StatusPending, catalog.StatusHidden, catalog.StatusBanned} {
		id := seedProvider(t, store, int64(10+i), region, nil, prices)
		store.SetStatus(id, status)
	}

	got, _, err := search.Run(context.Background(), store, search.Criteria{RegionID: region}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 || got[0].ID != active {
		t.Fatalf("Run returned %v, want only the active provider %d", got, active)
	}
}

func TestRun_Pagination(t *testing.T) {
	store := catalog.NewMemoryStore()
	region := store.AddRegion("Moscow")
	prices := map[catalog.Category]int{
		catalog.CategoryShort: 500, catalog.CategoryLong: 500, catalog.CategoryBeard: 500,
	}
	for owner := int64(1); owner <= 13; owner++ {
		seedProvider(t, store, owner, region, nil, prices)
	}

	criteria := search.Criteria{RegionID: region}

	first, more, err := search.Run(context.Background(), store, criteria, 0)
	if err != nil {
		t.Fatalf("Run page 0: %v", err)
	}
	if len(first) != catalog.PageSize || !more {
		t.Fatalf("page 0: %d results, more=%v; want %d and true", len(first), more, catalog.PageSize)
	}

	second, more, err := search.Run(context.Background(), store, criteria, 1)
	if err != nil {
		t.Fatalf("Run page 1: %v", err)
	}
	if len(second) != 3 || more {
		t.Fatalf("page 1: %d results, more=%v; want 3 and false", len(second), more)
	}
	if first[len(first)-1].ID >= second[0].ID {
		t.Error("pages are not ordered by provider id")
	}

	empty, more, err := search.Run(context.Background(), store, criteria, 2)
	if err != nil {
		t.Fatalf("Run page 2: %v", err)
	}
	if len(empty) != 0 || more {
		t.Fatalf("page 2: %d results, more=%v; want empty and false", len(empty), more)
	}
}
