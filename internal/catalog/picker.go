package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"example.com/playdate/internal/domain"
)

// VocabularySource answers the distinct-value queries behind the selection UI.
type VocabularySource interface {
	DistinctForms(ctx context.Context) ([]string, error)
	DistinctSlots(ctx context.Context) ([]string, error)
	DistinctContexts(ctx context.Context) ([]string, error)
	Materials(ctx context.Context) ([]domain.Material, error)
}

// PickerVocabulary is the set of values a user can choose from.
type PickerVocabulary struct {
	Forms    []string `json:"forms"`
	Slots    []string `json:"slots"`
	Contexts []string `json:"contexts"`
}

// Picker serves picker vocabularies. It does not cache.
type Picker struct {
	source VocabularySource
}

// NewPicker constructs a Picker.
func NewPicker(source VocabularySource) *Picker {
	return &Picker{source: source}
}

// Vocabulary runs the three vocabulary queries concurrently and returns sorted, distinct values.
func (p *Picker) Vocabulary(ctx context.Context) (PickerVocabulary, error) {
	var vocab PickerVocabulary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		vocab.Forms, err = p.source.DistinctForms(gctx)
		return err
	})
	g.Go(func() (err error) {
		vocab.Slots, err = p.source.DistinctSlots(gctx)
		return err
	})
	g.Go(func() (err error) {
		vocab.Contexts, err = p.source.DistinctContexts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return PickerVocabulary{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	vocab.Forms = sortedDistinct(vocab.Forms)
	vocab.Slots = sortedDistinct(vocab.Slots)
	vocab.Contexts = sortedDistinct(vocab.Contexts)
	return vocab, nil
}

// Materials lists the material roster ordered by form, then title.
func (p *Picker) Materials(ctx context.Context) ([]domain.Material, error) {
	materials, err := p.source.Materials(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	out := slices.Clone(materials)
	slices.SortStableFunc(out, func(a, b domain.Material) int {
		return cmp.Or(
			cmp.Compare(a.FormTag, b.FormTag),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.ID, b.ID),
		)
	})
	if out == nil {
		out = []domain.Material{}
	}
	return out, nil
}

func sortedDistinct(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
