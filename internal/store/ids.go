package store

import (
	"context"
	"fmt"
	"math"

	"github.com/jwalitptl/clinicstore/pkg/metrics"
	"github.com/jwalitptl/clinicstore/pkg/stable"
)

type idGenerator struct {
	cell    *stable.Cell
	metrics *metrics.Metrics
}

// NextID persists v+1 and returns it, where v is the last issued id. The
// first id ever issued is 1.
func (g *idGenerator) NextID(ctx context.Context) (uint64, error) {
	v := g.cell.Get()
	if v == math.MaxUint64 {
		return 0, stable.ErrCounterOverflow
	}
	if _, err := g.cell.Set(v + 1); err != nil {
		return 0, fmt.Errorf("failed to persist id counter: %w", err)
	}
	if g.metrics != nil {
		g.metrics.IDsIssued.Inc()
	}
	return v + 1, nil
}

func (g *idGenerator) Current() uint64 {
	return g.cell.Get()
}
