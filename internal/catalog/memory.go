package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests. It applies the same
// matching semantics as PostgresStore.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64

	profiles map[int64]*Profile // keyed by provider id
	regions  map[int64]*memRegion
}

type memRegion struct {
	name       string
	subRegions map[int64]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[int64]*Profile),
		regions:  make(map[int64]*memRegion),
	}
}

// AddRegion seeds a region with optional sub-regions and returns its id.
func (m *MemoryStore) AddRegion(name string, subRegions ...string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	r := &memRegion{name: name, subRegions: make(map[int64]string)}
	for _, sr := range subRegions {
		m.nextID++
		r.subRegions[m.nextID] = sr
	}
	m.regions[id] = r
	return id
}

// SetStatus overrides a provider's status, mimicking the moderation workflow
// that activates pending profiles.
func (m *MemoryStore) SetStatus(providerID int64, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[providerID]; ok {
		p.Status = status
	}
}

func (m *MemoryStore) SubmitProfile(_ context.Context, sub Submission) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var existing *Profile
	for _, p := range m.profiles {
		if p.OwnerUserID == sub.OwnerUserID {
			existing = p
			break
		}
	}
	if existing == nil {
		m.nextID++
		existing = &Profile{Provider: Provider{ID: m.nextID, OwnerUserID: sub.OwnerUserID, CreatedAt: now}}
		m.profiles[existing.ID] = existing
	}

	existing.RegionID = sub.RegionID
	existing.SubRegionID = copyID(sub.SubRegionID)
	existing.Description = sub.Description
	existing.ExperienceYears = sub.ExperienceYears
	existing.Instagram = sub.Instagram
	existing.Whatsapp = sub.Whatsapp
	existing.Telegram = sub.Telegram
	existing.Status = StatusPending
	existing.UpdatedAt = now
	existing.Photos = append([]string(nil), sub.Photos...)
	existing.Prices = make(map[Category]int, len(sub.Prices))
	for c, price := range sub.Prices {
		existing.Prices[c] = price
	}
	if r, ok := m.regions[sub.RegionID]; ok {
		existing.RegionName = r.name
		existing.SubRegionName = nil
		if sub.SubRegionID != nil {
			if name, ok := r.subRegions[*sub.SubRegionID]; ok {
				existing.SubRegionName = &name
			}
		}
	}
	return existing.ID, nil
}

func (m *MemoryStore) ProviderByOwner(_ context.Context, ownerUserID int64) (*Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.OwnerUserID == ownerUserID {
			cp := p.Provider
			cp.SubRegionID = copyID(p.SubRegionID)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetProfile(_ context.Context, providerID int64) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[providerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.SubRegionID = copyID(p.SubRegionID)
	cp.Photos = append([]string(nil), p.Photos...)
	cp.Prices = make(map[Category]int, len(p.Prices))
	for c, price := range p.Prices {
		cp.Prices[c] = price
	}
	return &cp, nil
}

func (m *MemoryStore) FindActive(ctx context.Context, regionID int64, subRegionID *int64, page int) ([]Provider, error) {
	return m.Search(ctx, Filter{RegionID: regionID, SubRegionID: subRegionID}, page)
}

func (m *MemoryStore) Search(_ context.Context, f Filter, page int) ([]Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if page < 0 {
		page = 0
	}

	matched := make([]Provider, 0)
	for _, p := range m.profiles {
		if p.Status != StatusActive || p.RegionID != f.RegionID {
			continue
		}
		if f.SubRegionID != nil && (p.SubRegionID == nil || *p.SubRegionID != *f.SubRegionID) {
			continue
		}
		if f.MaxPrice != nil && len(f.Categories) > 0 {
			covered := 0
			for _, c := range f.Categories {
				if price, ok := p.Prices[c]; ok && price <= *f.MaxPrice {
					covered++
				}
			}
			if covered != len(f.Categories) {
				continue
			}
		}
		cp := p.Provider
		cp.SubRegionID = copyID(p.SubRegionID)
		matched = append(matched, cp)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start := page * PageSize
	if start >= len(matched) {
		return []Provider{}, nil
	}
	end := start + PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (m *MemoryStore) ResolveRegion(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.regions {
		if strings.EqualFold(r.name, strings.TrimSpace(name)) {
			return id, nil
		}
	}
	return 0, ErrRegionNotFound
}

func (m *MemoryStore) RegionHasSubRegions(_ context.Context, regionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regions[regionID]
	return ok && len(r.subRegions) > 0, nil
}

func (m *MemoryStore) ResolveSubRegion(_ context.Context, regionID int64, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regions[regionID]
	if !ok {
		return 0, ErrSubRegionNotFound
	}
	for id, sr := range r.subRegions {
		if strings.EqualFold(sr, strings.TrimSpace(name)) {
			return id, nil
		}
	}
	return 0, ErrSubRegionNotFound
}

func (m *MemoryStore) ToggleVisibility(_ context.Context, ownerUserID int64) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.OwnerUserID != ownerUserID {
			continue
		}
		switch p.Status {
		case StatusActive:
			p.Status = StatusHidden
		case StatusHidden:
			p.Status = StatusActive
		}
		p.UpdatedAt = time.Now().UTC()
		return p.Status, nil
	}
	return "", ErrNotFound
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
