package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnqueueOrdersByPriorityThenFIFO(t *testing.T) {
	q := New(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q.Enqueue(Command{DeviceID: "a01", Priority: Low, Payload: map[string]any{"action": "status"}}, base)
	q.Enqueue(Command{DeviceID: "a01", Priority: Normal, Payload: map[string]any{"action": "ping"}}, base.Add(time.Second))
	q.Enqueue(Command{DeviceID: "a01", Priority: High, Payload: map[string]any{"action": "blink"}}, base.Add(2*time.Second))

	drained := q.DrainAll()
	require.Len(t, drained, 3)
	require.Equal(t, "blink", drained[0].Payload.(map[string]any)["action"])
	require.Equal(t, "ping", drained[1].Payload.(map[string]any)["action"])
	require.Equal(t, "status", drained[2].Payload.(map[string]any)["action"])
}

func TestEnqueueTieBreaksByArrivalOrder(t *testing.T) {
	q := New(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q.Enqueue(Command{DeviceID: "a01", Priority: Normal, Payload: "A"}, base)
	q.Enqueue(Command{DeviceID: "a01", Priority: Normal, Payload: "B"}, base.Add(time.Second))

	drained := q.DrainAll()
	require.Equal(t, "A", drained[0].Payload)
	require.Equal(t, "B", drained[1].Payload)
}

func TestExpiredCommandDiscardedAtDrainTime(t *testing.T) {
	q := New(0)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q.Enqueue(Command{DeviceID: "a01", Priority: Normal, Payload: "test", MaxAge: time.Second}, t0)

	drained := q.DrainAll()
	require.Len(t, drained, 1)
	require.True(t, drained[0].Expired(t0.Add(3*time.Second)))
	require.False(t, drained[0].Expired(t0))
}

func TestDrainAllEmptiesQueueAtomically(t *testing.T) {
	q := New(0)
	now := time.Now()
	q.Enqueue(Command{DeviceID: "a01", Priority: Normal}, now)

	drained := q.DrainAll()
	require.Len(t, drained, 1)
	require.Equal(t, 0, q.Len())
	require.Empty(t, q.DrainAll())
}

func TestDrainOneReturnsHighestPriorityFirst(t *testing.T) {
	q := New(0)
	now := time.Now()
	q.Enqueue(Command{DeviceID: "a01", Priority: Low, Payload: "low"}, now)
	q.Enqueue(Command{DeviceID: "a01", Priority: High, Payload: "high"}, now)

	cmd, ok := q.DrainOne()
	require.True(t, ok)
	require.Equal(t, "high", cmd.Payload)
	require.Equal(t, 1, q.Len())
}

func TestOverflowDropsOldestOfLowestPriority(t *testing.T) {
	q := New(2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q.Enqueue(Command{DeviceID: "a01", Priority: Low, Payload: "low-old"}, base)
	q.Enqueue(Command{DeviceID: "a01", Priority: High, Payload: "high"}, base.Add(time.Second))
	dropped := q.Enqueue(Command{DeviceID: "a01", Priority: Normal, Payload: "normal"}, base.Add(2*time.Second))

	require.NotNil(t, dropped)
	require.Equal(t, "low-old", dropped.Payload)
	require.Equal(t, 2, q.Len())

	drained := q.DrainAll()
	require.Equal(t, "high", drained[0].Payload)
	require.Equal(t, "normal", drained[1].Payload)
}

func TestRegistryCreatesQueueLazily(t *testing.T) {
	r := NewRegistry(0)
	require.Empty(t, r.Devices())

	q := r.For("a01")
	require.NotNil(t, q)
	require.Equal(t, []string{"a01"}, r.Devices())
	require.Same(t, q, r.For("a01"))
}
