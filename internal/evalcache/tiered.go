package evalcache

import (
	"context"
	"errors"

	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
)

// Tiered reads stores in order and back-fills the faster tiers on a hit.
// Saves go to every tier.
type Tiered struct {
	stores []Store
}

func NewTiered(stores ...Store) *Tiered {
	kept := make([]Store, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Tiered{stores: kept}
}

var _ Store = (*Tiered)(nil)

func (t *Tiered) Len() int { return len(t.stores) }

func (t *Tiered) Load(ctx context.Context, fen string) (evaluation.Result, bool, error) {
	var errs []error
	for i, s := range t.stores {
		res, ok, err := s.Load(ctx, fen)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		for _, faster := range t.stores[:i] {
			if err := faster.Save(ctx, res); err != nil {
				errs = append(errs, err)
			}
		}
		return res, true, nil
	}
	return evaluation.Result{}, false, errors.Join(errs...)
}

func (t *Tiered) Save(ctx context.Context, res evaluation.Result) error {
	var errs []error
	for _, s := range t.stores {
		if err := s.Save(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Tiered) Close() error {
	var errs []error
	for _, s := range t.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
