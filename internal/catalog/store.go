package catalog

import (
	"context"
	"errors"
)

// Sentinel errors returned by Store implementations.
var (
	ErrNotFound          = errors.New("provider not found")
	ErrRegionNotFound    = errors.New("region not found")
	ErrSubRegionNotFound = errors.New("sub-region not found")
)

// Store is the narrow interface the wizard and the filter compiler use to
// read and write the catalogue. Region and sub-region names are matched
// case-insensitively.
type Store interface {
	// SubmitProfile creates or updates the owner's provider record and
	// atomically replaces its photo and price associations. The record's
	// status is forced to pending. Returns the provider id.
	SubmitProfile(ctx context.Context, sub Submission) (int64, error)

	// ProviderByOwner returns the committed record for ownerUserID, or
	// ErrNotFound.
	ProviderByOwner(ctx context.Context, ownerUserID int64) (*Provider, error)

	// GetProfile returns a provider with photos, prices and region names, or
	// ErrNotFound.
	GetProfile(ctx context.Context, providerID int64) (*Profile, error)

	// FindActive lists active providers in a region (and sub-region if
	// given), PageSize per zero-based page.
	FindActive(ctx context.Context, regionID int64, subRegionID *int64, page int) ([]Provider, error)

	// Search lists active providers matching the compiled filter, PageSize
	// per zero-based page.
	Search(ctx context.Context, f Filter, page int) ([]Provider, error)

	// ResolveRegion maps a region name to its id, or ErrRegionNotFound.
	ResolveRegion(ctx context.Context, name string) (int64, error)

	// RegionHasSubRegions reports whether the region has at least one active
	// sub-region.
	RegionHasSubRegions(ctx context.Context, regionID int64) (bool, error)

	// ResolveSubRegion maps a sub-region name within a region to its id, or
	// ErrSubRegionNotFound.
	ResolveSubRegion(ctx context.Context, regionID int64, name string) (int64, error)

	// ToggleVisibility flips the owner's record between active and hidden and
	// returns the new status. Returns ErrNotFound for absent records; other
	// statuses (pending, banned) are left untouched.
	ToggleVisibility(ctx context.Context, ownerUserID int64) (Status, error)
}
