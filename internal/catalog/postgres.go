package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on top of a pgxpool connection pool.
// Schema management is owned by the deployment; this package only assumes the
// providers / provider_photos / provider_services / regions / sub_regions
// tables exist.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const providerColumns = `id, owner_user_id, region_id, sub_region_id, description,
	experience_years, instagram, whatsapp, telegram, status, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var status string
	err := row.Scan(
		&p.ID, &p.OwnerUserID, &p.RegionID, &p.SubRegionID, &p.Description,
		&p.ExperienceYears, &p.Instagram, &p.Whatsapp, &p.Telegram, &status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status, err = ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SubmitProfile upserts the provider record and replaces its photos and
// prices inside a single transaction, so a failure leaves the previous
// committed profile untouched.
func (s *PostgresStore) SubmitProfile(ctx context.Context, sub Submission) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("submitProfile begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO providers
		   (owner_user_id, region_id, sub_region_id, description,
		    experience_years, instagram, whatsapp, telegram, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		 ON CONFLICT (owner_user_id) DO UPDATE SET
		   region_id        = EXCLUDED.region_id,
		   sub_region_id    = EXCLUDED.sub_region_id,
		   description      = EXCLUDED.description,
		   experience_years = EXCLUDED.experience_years,
		   instagram        = EXCLUDED.instagram,
		   whatsapp         = EXCLUDED.whatsapp,
		   telegram         = EXCLUDED.telegram,
		   status           = 'pending',
		   updated_at       = NOW()
		 RETURNING id`,
		sub.OwnerUserID, sub.RegionID, sub.SubRegionID, sub.Description,
		sub.ExperienceYears, sub.Instagram, sub.Whatsapp, sub.Telegram,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("submitProfile upsert: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM provider_photos WHERE provider_id = $1`, id); err != nil {
		return 0, fmt.Errorf("submitProfile delete photos: %w", err)
	}
	for i, ref := range sub.Photos {
		if _, err := tx.Exec(ctx,
			`INSERT INTO provider_photos (provider_id, file_id, position) VALUES ($1, $2, $3)`,
			id, ref, i+1,
		); err != nil {
			return 0, fmt.Errorf("submitProfile insert photo: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM provider_services WHERE provider_id = $1`, id); err != nil {
		return 0, fmt.Errorf("submitProfile delete services: %w", err)
	}
	for _, c := range Categories {
		price, ok := sub.Prices[c]
		if !ok {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO provider_services (provider_id, category, price) VALUES ($1, $2, $3)`,
			id, string(c), price,
		); err != nil {
			return 0, fmt.Errorf("submitProfile insert service: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("submitProfile commit: %w", err)
	}
	return id, nil
}

// ProviderByOwner returns the committed record for ownerUserID.
func (s *PostgresStore) ProviderByOwner(ctx context.Context, ownerUserID int64) (*Provider, error) {
	p, err := scanProvider(s.pool.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE owner_user_id = $1`,
		ownerUserID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("providerByOwner: %w", err)
	}
	return p, nil
}

// GetProfile returns a provider with photos, prices and resolved region names.
func (s *PostgresStore) GetProfile(ctx context.Context, providerID int64) (*Profile, error) {
	var prof Profile
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT p.id, p.owner_user_id, p.region_id, p.sub_region_id, p.description,
		        p.experience_years, p.instagram, p.whatsapp, p.telegram, p.status,
		        p.created_at, p.updated_at, r.name, sr.name
		 FROM providers p
		 JOIN regions r ON r.id = p.region_id
		 LEFT JOIN sub_regions sr ON sr.id = p.sub_region_id
		 WHERE p.id = $1`,
		providerID,
	).Scan(
		&prof.ID, &prof.OwnerUserID, &prof.RegionID, &prof.SubRegionID, &prof.Description,
		&prof.ExperienceYears, &prof.Instagram, &prof.Whatsapp, &prof.Telegram, &status,
		&prof.CreatedAt, &prof.UpdatedAt, &prof.RegionName, &prof.SubRegionName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getProfile: %w", err)
	}
	prof.Status, err = ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("getProfile: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT file_id FROM provider_photos WHERE provider_id = $1 ORDER BY position`,
		providerID,
	)
	if err != nil {
		return nil, fmt.Errorf("getProfile photos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("getProfile photos scan: %w", err)
		}
		prof.Photos = append(prof.Photos, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getProfile photos: %w", err)
	}

	prices, err := s.pool.Query(ctx,
		`SELECT category, price FROM provider_services WHERE provider_id = $1`,
		providerID,
	)
	if err != nil {
		return nil, fmt.Errorf("getProfile prices: %w", err)
	}
	defer prices.Close()
	prof.Prices = make(map[Category]int)
	for prices.Next() {
		var cat string
		var price int
		if err := prices.Scan(&cat, &price); err != nil {
			return nil, fmt.Errorf("getProfile prices scan: %w", err)
		}
		c, err := ParseCategory(cat)
		if err != nil {
			return nil, fmt.Errorf("getProfile prices: %w", err)
		}
		prof.Prices[c] = price
	}
	if err := prices.Err(); err != nil {
		return nil, fmt.Errorf("getProfile prices: %w", err)
	}

	return &prof, nil
}

// FindActive lists active providers in a region without the price predicate.
func (s *PostgresStore) FindActive(ctx context.Context, regionID int64, subRegionID *int64, page int) ([]Provider, error) {
	return s.Search(ctx, Filter{RegionID: regionID, SubRegionID: subRegionID}, page)
}

// Search lists active providers matching the compiled filter. The
// specialization predicate requires, per provider, that the count of distinct
// requested categories priced at or below MaxPrice equals the requested
// subset size: the provider must cover every requested category within
// budget, extra categories are irrelevant.
func (s *PostgresStore) Search(ctx context.Context, f Filter, page int) ([]Provider, error) {
	if page < 0 {
		page = 0
	}

	query := `SELECT ` + providerColumns + ` FROM providers WHERE status = 'active' AND region_id = $1`
	args := []any{f.RegionID}

	if f.SubRegionID != nil {
		args = append(args, *f.SubRegionID)
		query += fmt.Sprintf(" AND sub_region_id = $%d", len(args))
	}

	if f.MaxPrice != nil && len(f.Categories) > 0 {
		cats := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			cats[i] = string(c)
		}
		args = append(args, cats)
		catArg := len(args)
		args = append(args, *f.MaxPrice)
		priceArg := len(args)
		query += fmt.Sprintf(`
			AND (
				SELECT COUNT(DISTINCT ps.category)
				FROM provider_services ps
				WHERE ps.provider_id = providers.id
				  AND ps.category = ANY($%d)
				  AND ps.price <= $%d
			) = %d`, catArg, priceArg, len(f.Categories))
	}

	args = append(args, PageSize, page*PageSize)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	providers := make([]Provider, 0)
	for rows.Next() {
		var p Provider
		var status string
		if err := rows.Scan(
			&p.ID, &p.OwnerUserID, &p.RegionID, &p.SubRegionID, &p.Description,
			&p.ExperienceYears, &p.Instagram, &p.Whatsapp, &p.Telegram, &status,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}
		if p.Status, err = ParseStatus(status); err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// ResolveRegion maps a region name to its id, case-insensitively.
func (s *PostgresStore) ResolveRegion(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM regions WHERE LOWER(name) = LOWER($1) AND is_active`,
		name,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrRegionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolveRegion: %w", err)
	}
	return id, nil
}

// RegionHasSubRegions reports whether the region has any active sub-region.
func (s *PostgresStore) RegionHasSubRegions(ctx context.Context, regionID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sub_regions WHERE region_id = $1 AND is_active)`,
		regionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("regionHasSubRegions: %w", err)
	}
	return exists, nil
}

// ResolveSubRegion maps a sub-region name within a region to its id,
// case-insensitively.
func (s *PostgresStore) ResolveSubRegion(ctx context.Context, regionID int64, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM sub_regions
		 WHERE region_id = $1 AND LOWER(name) = LOWER($2) AND is_active`,
		regionID, name,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSubRegionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolveSubRegion: %w", err)
	}
	return id, nil
}

// ToggleVisibility flips the owner's record between active and hidden.
func (s *PostgresStore) ToggleVisibility(ctx context.Context, ownerUserID int64) (Status, error) {
	var current string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM providers WHERE owner_user_id = $1`,
		ownerUserID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("toggleVisibility: %w", err)
	}

	status, err := ParseStatus(current)
	if err != nil {
		return "", fmt.Errorf("toggleVisibility: %w", err)
	}
	var next Status
	switch status {
	case StatusActive:
		next = StatusHidden
	case StatusHidden:
		next = StatusActive
	default:
		return status, nil
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE providers SET status = $1, updated_at = NOW() WHERE owner_user_id = $2`,
		string(next), ownerUserID,
	); err != nil {
		return "", fmt.Errorf("toggleVisibility update: %w", err)
	}
	return next, nil
}
