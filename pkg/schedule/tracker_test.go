package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time deterministically instead of
// sleeping for real durations like StaleAfter (5 minutes).
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock) {
	tr := NewTracker()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr.now = clock.now
	return tr, clock
}

func TestUpdateIgnoresInvalidMode(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Update("v01", "bogus", 0, 0)

	_, ok := tr.Get("v01")
	require.False(t, ok)
}

func TestUpdateDataPhaseSchedulesWindow(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Update("v01", ModeData, 2, 10)

	require.False(t, tr.IsInWindow("v01"))
	require.True(t, tr.IsImminent("v01"))

	until, ok := tr.TimeUntilWindow("v01")
	require.True(t, ok)
	require.Equal(t, 2*time.Second, until)
}

func TestUpdateCmdPhaseClearsWindowETA(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Update("v01", ModeCmd, 0, 10)

	require.True(t, tr.IsInWindow("v01"))
	_, ok := tr.TimeUntilWindow("v01")
	require.False(t, ok)
}

func TestUpdateDefaultsWindowDuration(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Update("v01", ModeCmd, 0, 0)

	s, ok := tr.Get("v01")
	require.True(t, ok)
	require.Equal(t, DefaultWindowDuration, s.WindowDuration)
}

func TestIsImminentFalseWhenFarOut(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Update("a01", ModeData, 285, 10)

	require.False(t, tr.IsImminent("a01"))
}

func TestIsConnectedReflectsFreshness(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Update("v01", ModeData, 2, 10)
	require.True(t, tr.IsConnected("v01"))

	clock.advance(StaleAfter + time.Second)
	require.False(t, tr.IsConnected("v01"))
}

func TestPruneRemovesStaleSchedules(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Update("v01", ModeData, 2, 10)

	require.Equal(t, 0, tr.Prune(StaleAfter))
	require.Equal(t, 1, tr.Len())

	clock.advance(StaleAfter + time.Minute)
	removed := tr.Prune(StaleAfter)
	require.Equal(t, 1, removed)
	require.Equal(t, 0, tr.Len())
}

func TestPruneLeavesFreshSchedules(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Update("v01", ModeData, 2, 10)
	clock.advance(time.Minute)
	tr.Update("a01", ModeData, 2, 10)

	clock.advance(StaleAfter - 30*time.Second)
	removed := tr.Prune(StaleAfter)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, tr.Len())
}
