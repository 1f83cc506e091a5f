package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedtone/preferences"
)

func newTestEngine(t *testing.T) (*Engine, *fakeSynth, *preferences.Store) {
	t.Helper()
	store, err := preferences.OpenStore("")
	require.NoError(t, err)

	synth := &fakeSynth{}
	e := New(Options{
		Store:           store,
		Synth:           synth,
		ExplorationBias: 0.3,
		Seed:            42,
	})
	t.Cleanup(func() { e.Dispose() })
	return e, synth, store
}

func TestEngine_LifecycleStopPlayPause(t *testing.T) {
	e, synth, _ := newTestEngine(t)
	ctx := context.Background()

	assert.Equal(t, StateStopped, e.State())

	require.NoError(t, e.Play(ctx))
	assert.Equal(t, StatePlaying, e.State())
	assert.True(t, synth.Loaded())
	assert.True(t, synth.noiseOn)

	require.NoError(t, e.Pause())
	assert.Equal(t, StatePaused, e.State())
	assert.False(t, synth.noiseOn)

	require.NoError(t, e.Play(ctx))
	assert.Equal(t, StatePlaying, e.State())

	require.NoError(t, e.Stop())
	assert.Equal(t, StateStopped, e.State())
}

func TestEngine_FirstPlayUsesDefaults(t *testing.T) {
	e, _, _ := newTestEngine(t)

	require.NoError(t, e.Play(context.Background()))

	snap := e.GetSnapshot()
	assert.Equal(t, preferences.DefaultParams(), snap.Params, "an empty history starts conservative")
	assert.NotEmpty(t, snap.SongID)
	assert.NotEmpty(t, snap.Key)
}

func TestEngine_GenerateNewSongTracksSong(t *testing.T) {
	e, _, store := newTestEngine(t)

	require.NoError(t, e.GenerateNewSong(false))
	first := e.GetSnapshot().SongID
	assert.NotEmpty(t, first)

	// the next generation finalizes the previous song
	require.NoError(t, e.GenerateNewSong(false))
	assert.NotEqual(t, first, e.GetSnapshot().SongID)

	entry, err := store.SongLog(first)
	require.NoError(t, err)
	assert.NotNil(t, entry.EndTime)
	assert.False(t, entry.Skipped)
}

func TestEngine_SkipFinalizesAsSkipped(t *testing.T) {
	e, _, store := newTestEngine(t)
	require.NoError(t, e.Play(context.Background()))

	first := e.GetSnapshot().SongID
	require.NoError(t, e.Skip())

	entry, err := store.SongLog(first)
	require.NoError(t, err)
	assert.True(t, entry.Skipped)
	require.NotNil(t, entry.Reward)
	assert.InDelta(t, preferences.RewardSkipUnder10Sec, *entry.Reward, 1e-9)

	assert.NotEqual(t, first, e.GetSnapshot().SongID, "a new song starts immediately")
	assert.Equal(t, StatePlaying, e.State())
}

func TestEngine_StopFinalizesInFlightSong(t *testing.T) {
	e, _, store := newTestEngine(t)
	require.NoError(t, e.Play(context.Background()))

	songID := e.GetSnapshot().SongID
	require.NoError(t, e.Stop())

	entry, err := store.SongLog(songID)
	require.NoError(t, err)
	assert.NotNil(t, entry.EndTime)
	assert.False(t, entry.Skipped)
}

func TestEngine_LikeDislikeNeedSong(t *testing.T) {
	e, _, _ := newTestEngine(t)

	assert.ErrorIs(t, e.Like(), preferences.ErrNoSongTracked)
	assert.ErrorIs(t, e.Dislike(), preferences.ErrNoSongTracked)

	require.NoError(t, e.GenerateNewSong(false))
	assert.NoError(t, e.Like())
	assert.NoError(t, e.Dislike())
}

func TestEngine_VolumeClamped(t *testing.T) {
	e, synth, _ := newTestEngine(t)

	e.SetVolume(1.7)
	assert.InDelta(t, 1.0, e.Volume(), 1e-9)
	assert.InDelta(t, 1.0, synth.volume, 1e-9)

	e.SetVolume(-0.4)
	assert.InDelta(t, 0.0, e.Volume(), 1e-9)
}

func TestEngine_SubscribeAndUnsubscribe(t *testing.T) {
	e, _, _ := newTestEngine(t)

	ch, unsubscribe := e.Subscribe()
	require.NoError(t, e.GenerateNewSong(false))

	select {
	case snap := <-ch:
		assert.NotEmpty(t, snap.SongID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	unsubscribe()
	e.mu.Lock()
	n := len(e.listeners)
	e.mu.Unlock()
	assert.Zero(t, n)
}

func TestEngine_DisposeIsTerminal(t *testing.T) {
	e, synth, _ := newTestEngine(t)
	require.NoError(t, e.Play(context.Background()))

	require.NoError(t, e.Dispose())
	assert.Equal(t, StateDisposed, e.State())
	assert.True(t, synth.closed)

	assert.ErrorIs(t, e.Play(context.Background()), ErrDisposed)
	assert.ErrorIs(t, e.Pause(), ErrDisposed)
	assert.ErrorIs(t, e.Stop(), ErrDisposed)
	assert.ErrorIs(t, e.Skip(), ErrDisposed)
	assert.NoError(t, e.Dispose(), "double dispose is harmless")
}

func TestEngine_FreshEngineRecoversAfterDispose(t *testing.T) {
	store, err := preferences.OpenStore("")
	require.NoError(t, err)

	first := New(Options{Store: store, Synth: &fakeSynth{}, Seed: 3})
	require.NoError(t, first.Play(context.Background()))
	require.NoError(t, first.Dispose())

	// Recovery without a process restart: a new engine over the same
	// store picks up where the disposed one left off.
	second := New(Options{Store: store, Synth: &fakeSynth{}, Seed: 3})
	defer second.Dispose()

	require.NoError(t, second.Play(context.Background()))
	assert.Equal(t, StatePlaying, second.State())
}

func TestEngine_PlaySurvivesSynthLoadFailure(t *testing.T) {
	store, err := preferences.OpenStore("")
	require.NoError(t, err)

	synth := &fakeSynth{loadErr: assert.AnError}
	e := New(Options{Store: store, Synth: synth, Seed: 7})
	defer e.Dispose()

	require.NoError(t, e.Play(context.Background()))
	assert.Equal(t, StatePlaying, e.State())
}

func TestEngine_BPMWindowRestrictsTempo(t *testing.T) {
	store, err := preferences.OpenStore("")
	require.NoError(t, err)

	synth := &fakeSynth{}
	e := New(Options{
		Store:  store,
		Synth:  synth,
		BPMMin: 90,
		BPMMax: 102,
		Seed:   11,
	})
	defer e.Dispose()

	for i := 0; i < 10; i++ {
		require.NoError(t, e.GenerateNewSong(false))
		tempo := e.GetSnapshot().Params.Tempo
		assert.Contains(t, []preferences.TempoArm{preferences.Tempo80, preferences.Tempo90}, tempo)
	}
}
