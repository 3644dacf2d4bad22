package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerDelivers(t *testing.T) {
	b := NewMemoryBroker(4)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "records")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "records", Message{Type: "PATIENT_CREATE", Payload: map[string]int{"id": 1}}))
	require.NoError(t, b.Publish(ctx, "other", "ignored"))

	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-ch, &msg))
	assert.Equal(t, "PATIENT_CREATE", msg.Type)
	assert.Equal(t, 1, msg.Payload["id"])
	assert.Empty(t, ch)
}

func TestMemoryBrokerClose(t *testing.T) {
	b := NewMemoryBroker(1)
	ch, err := b.Subscribe(context.Background(), "records")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, open := <-ch
	assert.False(t, open)

	require.ErrorIs(t, b.Publish(context.Background(), "records", "x"), ErrBrokerClosed)
	require.NoError(t, b.Close())
}

type failingBroker struct{ MemoryBroker }

func (*failingBroker) Publish(context.Context, string, interface{}) error {
	return errors.New("unavailable")
}

func TestEventPublisherIsBestEffort(t *testing.T) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	p := NewEventPublisher(&failingBroker{}, "records", logger.Nop(), m)

	require.NoError(t, p.Publish(context.Background(), "PATIENT_DELETE", map[string]uint64{"id": 2}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("PATIENT_DELETE", "error")))
}
