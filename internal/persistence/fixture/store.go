// Package fixture serves the matcher's read model from a YAML document for local development
// and tests.
package fixture

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"example.com/playdate/internal/domain"
)

const (
	statusReady    = "ready"
	defaultChannel = "sampler"
)

// ErrInvalidDocument is returned when a fixture document references unknown records.
var ErrInvalidDocument = errors.New("invalid fixture document")

// Document is the YAML layout of a fixture file.
type Document struct {
	Materials    []MaterialRecord    `yaml:"materials"`
	Playdates    []PlaydateRecord    `yaml:"playdates"`
	Packs        []PackRecord        `yaml:"packs"`
	Entitlements []EntitlementRecord `yaml:"entitlements"`
}

// MaterialRecord is one entry of the materials list.
type MaterialRecord struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Form  string `yaml:"form"`
}

// PlaydateRecord is one entry of the playdates list. Status defaults to ready and release
// channel to sampler.
type PlaydateRecord struct {
	ID                 string   `yaml:"id"`
	Slug               string   `yaml:"slug"`
	Title              string   `yaml:"title"`
	Headline           *string  `yaml:"headline"`
	PrimaryFunction    *string  `yaml:"primary_function"`
	ArcEmphasis        []string `yaml:"arc_emphasis"`
	ContextTags        []string `yaml:"context_tags"`
	FrictionDial       *int     `yaml:"friction_dial"`
	StartIn120s        bool     `yaml:"start_in_120s"`
	RequiredForms      []string `yaml:"required_forms"`
	SlotsOptional      []string `yaml:"slots_optional"`
	FindAgainMode      *string  `yaml:"find_again_mode"`
	SubstitutionsNotes *string  `yaml:"substitutions_notes"`
	Status             string   `yaml:"status"`
	ReleaseChannel     string   `yaml:"release_channel"`
	Materials          []string `yaml:"materials"`
}

// PackRecord groups playdates for purchase.
type PackRecord struct {
	ID        string   `yaml:"id"`
	Slug      string   `yaml:"slug"`
	Visible   bool     `yaml:"visible"`
	Playdates []string `yaml:"playdates"`
}

// EntitlementRecord grants an organization access to a pack.
type EntitlementRecord struct {
	OrgID     string     `yaml:"org_id"`
	PackID    string     `yaml:"pack_id"`
	RevokedAt *time.Time `yaml:"revoked_at"`
	ExpiresAt *time.Time `yaml:"expires_at"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to evaluate entitlement expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithReleaseChannels overrides the offerable release channels.
func WithReleaseChannels(channels ...string) Option {
	return func(s *Store) {
		if len(channels) == 0 {
			return
		}
		s.channels = make(map[string]struct{}, len(channels))
		for _, c := range channels {
			s.channels[c] = struct{}{}
		}
	}
}

// Store is an in-memory read model loaded from a fixture document.
type Store struct {
	mu        sync.RWMutex
	doc       Document
	materials map[string]MaterialRecord
	channels  map[string]struct{}
	now       func() time.Time
}

//go:embed seed.yaml
var seed []byte

// NewSeeded returns a Store populated with the bundled sample catalog.
func NewSeeded(opts ...Option) (*Store, error) {
	return Parse(seed, opts...)
}

// Load reads and parses the fixture file at path.
func Load(path string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return Parse(data, opts...)
}

// Parse builds a Store from YAML bytes. Unknown keys are rejected.
func Parse(data []byte, opts ...Option) (*Store, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	s := &Store{
		channels: map[string]struct{}{"sampler": {}, "pack-only": {}},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Replace(doc); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps the served document after validating its references.
func (s *Store) Replace(doc Document) error {
	doc.Playdates = append([]PlaydateRecord(nil), doc.Playdates...)
	materials := make(map[string]MaterialRecord, len(doc.Materials))
	for _, m := range doc.Materials {
		if strings.TrimSpace(m.ID) == "" || strings.TrimSpace(m.Title) == "" {
			return fmt.Errorf("%w: material requires id and title", ErrInvalidDocument)
		}
		materials[m.ID] = m
	}

	playdates := make(map[string]struct{}, len(doc.Playdates))
	for i, p := range doc.Playdates {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("%w: playdate %d has no id", ErrInvalidDocument, i)
		}
		if _, dup := playdates[p.ID]; dup {
			return fmt.Errorf("%w: duplicate playdate %s", ErrInvalidDocument, p.ID)
		}
		playdates[p.ID] = struct{}{}
		for _, id := range p.Materials {
			if _, ok := materials[id]; !ok {
				return fmt.Errorf("%w: playdate %s references unknown material %s", ErrInvalidDocument, p.ID, id)
			}
		}
		if p.Status == "" {
			doc.Playdates[i].Status = statusReady
		}
		if p.ReleaseChannel == "" {
			doc.Playdates[i].ReleaseChannel = defaultChannel
		}
	}

	packs := make(map[string]struct{}, len(doc.Packs))
	for _, pk := range doc.Packs {
		packs[pk.ID] = struct{}{}
		for _, id := range pk.Playdates {
			if _, ok := playdates[id]; !ok {
				return fmt.Errorf("%w: pack %s references unknown playdate %s", ErrInvalidDocument, pk.ID, id)
			}
		}
	}
	for _, e := range doc.Entitlements {
		if _, ok := packs[e.PackID]; !ok {
			return fmt.Errorf("%w: entitlement for %s references unknown pack %s", ErrInvalidDocument, e.OrgID, e.PackID)
		}
	}

	s.mu.Lock()
	s.doc = doc
	s.materials = materials
	s.mu.Unlock()
	return nil
}

// CandidateRows returns one row per (playdate, material) pair for ready, offerable playdates.
func (s *Store) CandidateRows(ctx context.Context) ([]domain.CandidateRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	offerable := s.offerable()
	sort.SliceStable(offerable, func(i, j int) bool {
		if offerable[i].Title != offerable[j].Title {
			return offerable[i].Title < offerable[j].Title
		}
		return offerable[i].ID < offerable[j].ID
	})

	rows := make([]domain.CandidateRow, 0, len(offerable))
	for _, p := range offerable {
		base := domain.CandidateRow{
			ID:                 p.ID,
			Slug:               p.Slug,
			Title:              p.Title,
			Headline:           p.Headline,
			PrimaryFunction:    p.PrimaryFunction,
			ArcEmphasis:        p.ArcEmphasis,
			ContextTags:        p.ContextTags,
			FrictionDial:       p.FrictionDial,
			StartIn120s:        p.StartIn120s,
			RequiredForms:      p.RequiredForms,
			SlotsOptional:      p.SlotsOptional,
			RepeatableMode:     p.FindAgainMode,
			SubstitutionsNotes: p.SubstitutionsNotes,
		}
		attached := s.materialsOf(p)
		if len(attached) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, m := range attached {
			row := base
			id, title, form := m.ID, m.Title, m.Form
			row.MaterialID, row.MaterialTitle = &id, &title
			if form != "" {
				row.MaterialFormTag = &form
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// DistinctForms lists every required form across ready, offerable playdates.
func (s *Store) DistinctForms(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, func(p PlaydateRecord) []string { return p.RequiredForms })
}

// DistinctSlots lists every optional slot across ready, offerable playdates.
func (s *Store) DistinctSlots(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, func(p PlaydateRecord) []string { return p.SlotsOptional })
}

// DistinctContexts lists every context tag across ready, offerable playdates.
func (s *Store) DistinctContexts(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, func(p PlaydateRecord) []string { return p.ContextTags })
}

func (s *Store) distinct(ctx context.Context, field func(PlaydateRecord) []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range s.offerable() {
		for _, v := range field(p) {
			if _, ok := seen[v]; ok || v == "" {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Materials lists materials attached to at least one ready, offerable playdate.
func (s *Store) Materials(ctx context.Context) ([]domain.Material, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]domain.Material, 0)
	for _, p := range s.offerable() {
		for _, m := range s.materialsOf(p) {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, domain.Material{ID: m.ID, Title: m.Title, FormTag: m.Form})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FormTag != out[j].FormTag {
			return out[i].FormTag < out[j].FormTag
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// EntitledActivityIDs returns the subset of activityIDs covered by an active entitlement of orgID.
func (s *Store) EntitledActivityIDs(ctx context.Context, orgID string, activityIDs []string) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]struct{})
	if orgID == "" || len(activityIDs) == 0 {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	active := make(map[string]struct{})
	for _, e := range s.doc.Entitlements {
		if e.OrgID != orgID || e.RevokedAt != nil {
			continue
		}
		if e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
			continue
		}
		active[e.PackID] = struct{}{}
	}

	wanted := toSet(activityIDs)
	for _, pk := range s.doc.Packs {
		if _, ok := active[pk.ID]; !ok {
			continue
		}
		for _, id := range pk.Playdates {
			if _, ok := wanted[id]; ok {
				out[id] = struct{}{}
			}
		}
	}
	return out, nil
}

// PackSlugsByActivity returns, per playdate, the sorted slugs of visible packs containing it.
func (s *Store) PackSlugsByActivity(ctx context.Context, activityIDs []string) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	if len(activityIDs) == 0 {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(activityIDs)
	for _, pk := range s.doc.Packs {
		if !pk.Visible {
			continue
		}
		for _, id := range pk.Playdates {
			if _, ok := wanted[id]; ok {
				out[id] = append(out[id], pk.Slug)
			}
		}
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out, nil
}

// offerable must be called with the read lock held.
func (s *Store) offerable() []PlaydateRecord {
	out := make([]PlaydateRecord, 0, len(s.doc.Playdates))
	for _, p := range s.doc.Playdates {
		if p.Status != statusReady {
			continue
		}
		if _, ok := s.channels[p.ReleaseChannel]; !ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Store) materialsOf(p PlaydateRecord) []MaterialRecord {
	out := make([]MaterialRecord, 0, len(p.Materials))
	seen := make(map[string]struct{}, len(p.Materials))
	for _, id := range p.Materials {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, s.materials[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
