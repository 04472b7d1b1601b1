// Package draft holds the in-progress onboarding interview state: one typed
// draft document per user, fully replaced on every write.
package draft

import (
	"time"

	"github.com/PalmaOG/barbersmap/internal/catalog"
)

// StepKey identifies an interview step. Values are persisted inside the draft
// document, so they must stay stable.
type StepKey string

const (
	StepDescription    StepKey = "description"
	StepWorkPhotos     StepKey = "work_photos"
	StepCity           StepKey = "city"
	StepMetro          StepKey = "metro"
	StepExperience     StepKey = "experience"
	StepSpecialization StepKey = "specialization"
	StepServices       StepKey = "services"
	StepInstagram      StepKey = "instagram"
	StepWhatsapp       StepKey = "whatsapp"
	StepTelegram       StepKey = "telegram"

	// StepReady is the virtual state after the last question: the draft is
	// complete and waiting for preview confirmation / commit.
	StepReady StepKey = "ready"
)

// PortfolioSize is the exact number of work photos a draft must collect.
const PortfolioSize = 5

// Draft is one user's uncommitted answer set. Every answer field is typed and
// written only by its step's validator, so downstream code never re-validates.
type Draft struct {
	UserID int64   `json:"userId"`
	Step   StepKey `json:"step"`

	Description     string                   `json:"description,omitempty"`
	Photos          []string                 `json:"photos,omitempty"`
	RegionName      string                   `json:"regionName,omitempty"`
	RegionID        int64                    `json:"regionId,omitempty"`
	SubRegionName   string                   `json:"subRegionName,omitempty"`
	SubRegionID     *int64                   `json:"subRegionId,omitempty"`
	ExperienceYears int                      `json:"experienceYears,omitempty"`
	Specialization  catalog.Category         `json:"specialization,omitempty"`
	Prices          map[catalog.Category]int `json:"prices,omitempty"`
	Instagram       string                   `json:"instagram,omitempty"`
	Whatsapp        string                   `json:"whatsapp,omitempty"`
	Telegram        string                   `json:"telegram,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New returns an empty draft positioned at the given first step.
func New(userID int64, first StepKey) *Draft {
	now := time.Now().UTC()
	return &Draft{UserID: userID, Step: first, CreatedAt: now, UpdatedAt: now}
}

// Clone returns a deep copy, so callers can mutate a working copy and persist
// it only after validation succeeds.
func (d *Draft) Clone() *Draft {
	cp := *d
	cp.Photos = append([]string(nil), d.Photos...)
	if d.SubRegionID != nil {
		v := *d.SubRegionID
		cp.SubRegionID = &v
	}
	if d.Prices != nil {
		cp.Prices = make(map[catalog.Category]int, len(d.Prices))
		for c, p := range d.Prices {
			cp.Prices[c] = p
		}
	}
	return &cp
}

// MissingCategories lists the service categories without a price yet, in the
// fixed collection order.
func (d *Draft) MissingCategories() []catalog.Category {
	missing := make([]catalog.Category, 0, len(catalog.Categories))
	for _, c := range catalog.Categories {
		if _, ok := d.Prices[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
