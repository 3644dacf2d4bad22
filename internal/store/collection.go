package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinicstore/internal/codec"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/metrics"
	"github.com/jwalitptl/clinicstore/pkg/stable"
)

// collection adapts a stable.Map to repository.KeyedStore with logging and
// metrics.
type collection[V any] struct {
	name    string
	m       *stable.Map[V]
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func openCollection[V any](manager *stable.Manager, id stable.PartitionID, name string, c stable.Codec[V], log *logger.Logger, m *metrics.Metrics) (*collection[V], error) {
	if m != nil {
		c = &sizeObserver[V]{Codec: c, collection: name, metrics: m}
	}
	sm, err := stable.InitMap[V](manager.Partition(id), c, codec.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	col := &collection[V]{name: name, m: sm, logger: log, metrics: m}
	col.updateGauge()
	return col, nil
}

func (c *collection[V]) Get(ctx context.Context, id uint64) (V, bool, error) {
	start := time.Now()
	v, ok, err := c.m.Get(id)
	c.metrics.ObserveStore(c.name, "get", start, err)
	return v, ok, err
}

func (c *collection[V]) Insert(ctx context.Context, id uint64, v V) (V, bool, error) {
	start := time.Now()
	prev, existed, err := c.m.Insert(id, v)
	c.metrics.ObserveStore(c.name, "insert", start, err)
	if err != nil {
		return prev, false, err
	}
	c.logger.WithContext(ctx).Debug("record written", "collection", c.name, "id", id, "replaced", existed)
	c.updateGauge()
	return prev, existed, nil
}

func (c *collection[V]) Remove(ctx context.Context, id uint64) (V, bool, error) {
	start := time.Now()
	v, ok, err := c.m.Remove(id)
	c.metrics.ObserveStore(c.name, "remove", start, err)
	if err != nil {
		return v, false, err
	}
	if ok {
		c.logger.WithContext(ctx).Debug("record removed", "collection", c.name, "id", id)
		c.updateGauge()
	}
	return v, ok, nil
}

func (c *collection[V]) List(ctx context.Context) ([]stable.Entry[V], error) {
	start := time.Now()
	entries, err := c.m.Iterate()
	c.metrics.ObserveStore(c.name, "list", start, err)
	return entries, err
}

func (c *collection[V]) Len() uint64 {
	return c.m.Len()
}

func (c *collection[V]) updateGauge() {
	if c.metrics != nil {
		c.metrics.RecordsStored.WithLabelValues(c.name).Set(float64(c.m.Len()))
	}
}

// sizeObserver records the encoded size of every value written.
type sizeObserver[V any] struct {
	stable.Codec[V]
	collection string
	metrics    *metrics.Metrics
}

func (s *sizeObserver[V]) Encode(v V) ([]byte, error) {
	b, err := s.Codec.Encode(v)
	if err == nil {
		s.metrics.RecordBytes.WithLabelValues(s.collection).Observe(float64(len(b)))
	}
	return b, err
}
