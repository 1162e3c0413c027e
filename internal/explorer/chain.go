package explorer

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Chain asks each source in order and returns the first sample with a
// positive total. When no source has data, any source failure is returned.
type Chain struct {
	sources []Source
	logger  *zap.Logger
}

func NewChain(logger *zap.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Chain{sources: kept, logger: logger}
}

var _ Source = (*Chain)(nil)

func (c *Chain) Sample(ctx context.Context, fen string) (Sample, error) {
	var errs []error
	for i, src := range c.sources {
		sample, err := src.Sample(ctx, fen)
		if err != nil {
			c.logger.Info("stats_source_failed", zap.Int("index", i), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if sample.Total() > 0 {
			return sample, nil
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}
