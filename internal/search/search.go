// Package search compiles a seeker's step-wise filter answers into a
// catalogue matching query.
//
// The specialization filter is one of seven fixed presets over the three
// service categories. A provider matches a preset iff it prices every
// category in the preset at or below the budget; categories outside the
// preset are irrelevant. Without a budget the preset is ignored and only the
// region fields apply.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PalmaOG/barbersmap/internal/catalog"
)

// Choice is a seeker's specialization preset, 1 through 7.
type Choice int

// presets maps every Choice to its category subset.
var presets = map[Choice][]catalog.Category{
	1: {catalog.CategoryBeard},
	2: {catalog.CategoryLong},
	3: {catalog.CategoryShort},
	4: {catalog.CategoryBeard, catalog.CategoryShort},
	5: {catalog.CategoryBeard, catalog.CategoryLong},
	6: {catalog.CategoryLong, catalog.CategoryShort},
	7: {catalog.CategoryBeard, catalog.CategoryLong, catalog.CategoryShort},
}

// ParseChoice converts a raw digit answer to a Choice.
func ParseChoice(raw string) (Choice, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > 7 {
		return 0, fmt.Errorf("specialization choice must be a digit from 1 to 7")
	}
	return Choice(n), nil
}

// Categories returns the preset's category subset, or nil for an unset
// Choice.
func (c Choice) Categories() []catalog.Category {
	subset, ok := presets[c]
	if !ok {
		return nil
	}
	return append([]catalog.Category(nil), subset...)
}

// Criteria is one seeker's collected filter answers.
type Criteria struct {
	RegionID    int64
	SubRegionID *int64 // nil = don't care
	MaxPrice    *int   // nil = skip the specialization/price predicate
	Choice      Choice
}

// Compile turns criteria into the catalogue filter. The coverage predicate is
// emitted only when a budget is present.
func Compile(c Criteria) catalog.Filter {
	f := catalog.Filter{RegionID: c.RegionID, SubRegionID: c.SubRegionID}
	if c.MaxPrice != nil {
		f.MaxPrice = c.MaxPrice
		f.Categories = c.Choice.Categories()
	}
	return f
}

// Run executes the compiled query for one zero-based page. more reports
// whether a next page may exist (the page came back full); the caller never
// receives a total count.
func Run(ctx context.Context, store catalog.Store, c Criteria, page int) (providers []catalog.Provider, more bool, err error) {
	providers, err = store.Search(ctx, Compile(c), page)
	if err != nil {
		return nil, false, err
	}
	return providers, len(providers) == catalog.PageSize, nil
}
