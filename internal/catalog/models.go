// Package catalog defines the persisted provider catalogue: committed barber
// profiles, their photo portfolios and per-service prices, and the region /
// sub-region reference data used to resolve free-text location answers.
package catalog

import (
	"fmt"
	"time"
)

// Category is one of the fixed service categories a barber can price.
type Category string

const (
	CategoryShort Category = "short"
	CategoryLong  Category = "long"
	CategoryBeard Category = "beard"
)

// Categories lists every service category, in the order prices are collected.
var Categories = []Category{CategoryShort, CategoryLong, CategoryBeard}

// ParseCategory converts a raw string to a Category, returning an error for
// unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case CategoryShort, CategoryLong, CategoryBeard:
		return c, nil
	}
	return "", fmt.Errorf("unknown service category %q", s)
}

// Status values mirror the provider_status enum in PostgreSQL.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusHidden  Status = "hidden"
	StatusBanned  Status = "banned"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusActive, StatusHidden, StatusBanned:
		return st, nil
	}
	return "", fmt.Errorf("unknown provider status %q", s)
}

// Provider is one committed barber record. One record per owner user.
type Provider struct {
	ID              int64
	OwnerUserID     int64
	RegionID        int64
	SubRegionID     *int64
	Description     string
	ExperienceYears int
	Instagram       string
	Whatsapp        string
	Telegram        string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Profile is a Provider together with its dependent data, used for the
// detail and preview views.
type Profile struct {
	Provider
	RegionName    string
	SubRegionName *string
	Photos        []string // portfolio media refs, insertion order
	Prices        map[Category]int
}

// Submission carries everything a completed draft commits to the catalogue.
// Photos must hold exactly the required portfolio size and Prices must cover
// every Category; the wizard enforces both before calling SubmitProfile.
type Submission struct {
	OwnerUserID     int64
	RegionID        int64
	SubRegionID     *int64
	Description     string
	ExperienceYears int
	Instagram       string
	Whatsapp        string
	Telegram        string
	Photos          []string
	Prices          map[Category]int
}

// Filter is the compiled seeker-side matching predicate. When MaxPrice is nil
// the Categories coverage predicate is skipped and only the region fields
// apply.
type Filter struct {
	RegionID    int64
	SubRegionID *int64
	MaxPrice    *int
	Categories  []Category
}

// PageSize is the fixed page size for catalogue listings. A result of exactly
// PageSize rows signals that a next page may exist.
const PageSize = 10
