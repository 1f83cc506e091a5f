package preferences

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*Tracker, *Store) {
	t.Helper()
	store := newTestStore(t)
	tracker := NewTracker(store, NewBandit(store, ""))
	return tracker, store
}

func TestTracker_RewardPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		listened float64
		total    float64
		skipped  bool
		want     float64
	}{
		{name: "near-complete listen", listened: 95, total: 100, want: RewardListen90Plus},
		{name: "majority listen", listened: 70, total: 100, want: RewardListen50To90},
		{name: "short listen", listened: 20, total: 100, want: RewardListenUnder30},
		{name: "quick skip", listened: 5, total: 100, skipped: true, want: RewardSkipUnder10Sec},
		{name: "late skip scores by ratio", listened: 60, total: 100, skipped: true, want: RewardListen50To90},
		{name: "middling listen is neutral", listened: 40, total: 100, want: 0},
		{name: "unknown duration is neutral-negative", listened: 40, total: 0, want: RewardListenUnder30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, store := newTestTracker(t)

			id, err := tracker.StartTracking(DefaultParams(), tt.total)
			require.NoError(t, err)
			tracker.UpdateListenDuration(tt.listened)

			reward, err := tracker.EndPlayback(tt.skipped)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, reward, 1e-9)

			entry, err := store.SongLog(id)
			require.NoError(t, err)
			require.NotNil(t, entry.Reward)
			assert.InDelta(t, tt.want, *entry.Reward, 1e-9)
			assert.Equal(t, tt.skipped, entry.Skipped)
			assert.NotNil(t, entry.EndTime)
		})
	}
}

func TestTracker_FeedbackWithoutSong(t *testing.T) {
	tracker, _ := newTestTracker(t)

	_, err := tracker.EndPlayback(false)
	assert.ErrorIs(t, err, ErrNoSongTracked)
	assert.ErrorIs(t, tracker.Like(), ErrNoSongTracked)
	assert.ErrorIs(t, tracker.Dislike(), ErrNoSongTracked)
}

func TestTracker_DoubleStartFails(t *testing.T) {
	tracker, _ := newTestTracker(t)

	_, err := tracker.StartTracking(DefaultParams(), 120)
	require.NoError(t, err)

	_, err = tracker.StartTracking(DefaultParams(), 120)
	assert.Error(t, err)
}

func TestTracker_LikeIsCumulative(t *testing.T) {
	tracker, store := newTestTracker(t)

	_, err := tracker.StartTracking(DefaultParams(), 120)
	require.NoError(t, err)

	require.NoError(t, tracker.Like())
	require.NoError(t, tracker.Like())

	state, err := store.ArmState(DefaultContext)
	require.NoError(t, err)
	want := DefaultArmState().Tempo[TempoFocus].Alpha + 2*RewardExplicitLike
	assert.InDelta(t, want, state.Tempo[TempoFocus].Alpha, 1e-9)

	song := tracker.CurrentSong()
	require.NotNil(t, song)
	assert.Equal(t, FeedbackLike, song.ExplicitFeedback)
}

func TestTracker_DislikePushesBeta(t *testing.T) {
	tracker, store := newTestTracker(t)

	_, err := tracker.StartTracking(DefaultParams(), 120)
	require.NoError(t, err)
	require.NoError(t, tracker.Dislike())

	state, err := store.ArmState(DefaultContext)
	require.NoError(t, err)
	want := DefaultArmState().Energy[EnergyLow].Beta - RewardExplicitDislike
	assert.InDelta(t, want, state.Energy[EnergyLow].Beta, 1e-9)
}

func TestTracker_SessionBonus(t *testing.T) {
	tracker, store := newTestTracker(t)

	clock := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return clock }

	_, err := tracker.StartTracking(DefaultParams(), 120)
	require.NoError(t, err)

	granted, err := tracker.CheckSessionBonus()
	require.NoError(t, err)
	assert.False(t, granted, "no bonus before 30 minutes")

	clock = clock.Add(31 * time.Minute)
	granted, err = tracker.CheckSessionBonus()
	require.NoError(t, err)
	assert.True(t, granted)

	// the session clock restarts, so the bonus does not repeat immediately
	granted, err = tracker.CheckSessionBonus()
	require.NoError(t, err)
	assert.False(t, granted)

	start, ok := store.SessionStartTime()
	require.True(t, ok)
	assert.Equal(t, clock, start)
}

func TestTracker_SessionBonusNeedsTrackedSong(t *testing.T) {
	tracker, store := newTestTracker(t)

	clock := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return clock }

	_, err := tracker.StartTracking(DefaultParams(), 120)
	require.NoError(t, err)
	_, err = tracker.EndPlayback(false)
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	granted, err := tracker.CheckSessionBonus()
	require.NoError(t, err)
	assert.False(t, granted)

	_, ok := store.SessionStartTime()
	assert.True(t, ok, "ending playback keeps the rolling session alive")
}

func TestTracker_EndSession(t *testing.T) {
	tracker, store := newTestTracker(t)

	_, err := tracker.StartTracking(DefaultParams(), 120)
	require.NoError(t, err)
	tracker.UpdateListenDuration(110)

	require.NoError(t, tracker.EndSession())

	assert.False(t, tracker.IsTracking())
	_, ok := store.SessionStartTime()
	assert.False(t, ok)
	assert.Equal(t, 1, store.SongCount())
}

func TestTracker_FeedbackEventsAudit(t *testing.T) {
	tracker, store := newTestTracker(t)

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	clock := base
	tracker.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	id, err := tracker.StartTracking(DefaultParams(), 120)
	require.NoError(t, err)
	require.NoError(t, tracker.Like())
	tracker.UpdateListenDuration(115)
	_, err = tracker.EndPlayback(false)
	require.NoError(t, err)

	events, err := store.FeedbackEventsForSong(id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, FeedbackLike, events[0].Type)
	assert.Equal(t, FeedbackListenEnd, events[1].Type)
	require.NotNil(t, events[1].ListenRatio)
	assert.InDelta(t, 115.0/120.0, *events[1].ListenRatio, 1e-9)
}
