// Package postgres reads playdate candidates, vocabularies, entitlements, and packs from the
// Postgres cache tables populated by the ingestion sync.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/playdate/internal/domain"
)

// StatusReady marks playdates that finished editorial review.
const StatusReady = "ready"

// DefaultReleaseChannels are the channels whose playdates may be offered to any user.
var DefaultReleaseChannels = []string{"sampler", "pack-only"}

// ErrMalformedRow is returned when a row violates the candidate row contract.
var ErrMalformedRow = errors.New("malformed candidate row")

// Option configures a Repository.
type Option func(*Repository)

// WithReleaseChannels overrides the offerable release channels.
func WithReleaseChannels(channels ...string) Option {
	return func(r *Repository) {
		if len(channels) > 0 {
			r.channels = channels
		}
	}
}

// Repository provides Postgres-backed reads for the matcher.
type Repository struct {
	pool     *pgxpool.Pool
	channels []string
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool, channels: DefaultReleaseChannels}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CandidateRows returns one row per (playdate, material) pair for ready, offerable playdates.
func (r *Repository) CandidateRows(ctx context.Context) ([]domain.CandidateRow, error) {
	const query = `SELECT p.id, p.slug, p.title, p.headline, p.primary_function,
            p.arc_emphasis, p.context_tags, p.friction_dial, COALESCE(p.start_in_120s, false),
            p.required_forms, p.slots_optional, p.find_again_mode, p.substitutions_notes,
            m.id, m.title, m.form_primary
        FROM playdates_cache p
        LEFT JOIN playdate_materials pm ON pm.playdate_id = p.id
        LEFT JOIN materials_cache m ON m.id = pm.material_id
        WHERE p.status = $1 AND p.release_channel = ANY($2)
        ORDER BY p.title, p.id, m.title, m.id`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, StatusReady, r.channels)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.CandidateRow, 0)
	for rows.Next() {
		var row domain.CandidateRow
		if err := rows.Scan(
			&row.ID, &row.Slug, &row.Title, &row.Headline, &row.PrimaryFunction,
			&row.ArcEmphasis, &row.ContextTags, &row.FrictionDial, &row.StartIn120s,
			&row.RequiredForms, &row.SlotsOptional, &row.RepeatableMode, &row.SubstitutionsNotes,
			&row.MaterialID, &row.MaterialTitle, &row.MaterialFormTag,
		); err != nil {
			return nil, err
		}
		if err := validateRow(row); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// DistinctForms lists every required form across ready, offerable playdates.
func (r *Repository) DistinctForms(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT v FROM playdates_cache p, unnest(p.required_forms) AS v
        WHERE p.status = $1 AND p.release_channel = ANY($2) AND v <> '' ORDER BY v`)
}

// DistinctSlots lists every optional slot across ready, offerable playdates.
func (r *Repository) DistinctSlots(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT v FROM playdates_cache p, unnest(p.slots_optional) AS v
        WHERE p.status = $1 AND p.release_channel = ANY($2) AND v <> '' ORDER BY v`)
}

// DistinctContexts lists every context tag across ready, offerable playdates.
func (r *Repository) DistinctContexts(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT v FROM playdates_cache p, unnest(p.context_tags) AS v
        WHERE p.status = $1 AND p.release_channel = ANY($2) AND v <> '' ORDER BY v`)
}

func (r *Repository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, StatusReady, r.channels)
	if err != nil {
		return nil, err
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Materials lists materials attached to at least one ready, offerable playdate.
func (r *Repository) Materials(ctx context.Context) ([]domain.Material, error) {
	const query = `SELECT DISTINCT m.id, m.title, COALESCE(m.form_primary, '')
        FROM materials_cache m
        JOIN playdate_materials pm ON pm.material_id = m.id
        JOIN playdates_cache p ON p.id = pm.playdate_id
        WHERE p.status = $1 AND p.release_channel = ANY($2)
        ORDER BY 3, 2, 1`

	rows, err := r.pool.Query(ctx, query, StatusReady, r.channels)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := make([]domain.Material, 0)
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.Title, &m.FormTag); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// EntitledActivityIDs returns the subset of activityIDs covered by an active entitlement of the
// organization. Entitlements attach to packs; a playdate is entitled through any pack containing it.
func (r *Repository) EntitledActivityIDs(ctx context.Context, orgID string, activityIDs []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if orgID == "" || len(activityIDs) == 0 {
		return out, nil
	}

	const query = `SELECT DISTINCT pp.playdate_id
        FROM entitlements e
        JOIN pack_playdates pp ON pp.pack_id = e.pack_id
        WHERE e.org_id = $1
          AND e.revoked_at IS NULL
          AND (e.expires_at IS NULL OR e.expires_at > now())
          AND pp.playdate_id = ANY($2)`

	rows, err := r.pool.Query(ctx, query, orgID, activityIDs)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// PackSlugsByActivity returns, per playdate, the slugs of visible packs containing it.
func (r *Repository) PackSlugsByActivity(ctx context.Context, activityIDs []string) (map[string][]string, error) {
	out := make(map[string][]string)
	if len(activityIDs) == 0 {
		return out, nil
	}

	const query = `SELECT pp.playdate_id, pk.slug
        FROM pack_playdates pp
        JOIN packs_cache pk ON pk.id = pp.pack_id
        WHERE pk.visible AND pp.playdate_id = ANY($1)
        ORDER BY pp.playdate_id, pk.slug`

	rows, err := r.pool.Query(ctx, query, activityIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var activityID, slug string
		if err := rows.Scan(&activityID, &slug); err != nil {
			return nil, err
		}
		out[activityID] = append(out[activityID], slug)
	}
	return out, rows.Err()
}

func validateRow(row domain.CandidateRow) error {
	if row.ID == "" {
		return fmt.Errorf("%w: empty playdate id", ErrMalformedRow)
	}
	if row.MaterialID != nil && row.MaterialTitle == nil {
		return fmt.Errorf("%w: material %s on playdate %s has no title", ErrMalformedRow, *row.MaterialID, row.ID)
	}
	return nil
}
