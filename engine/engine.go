package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"seedtone/preferences"
)

// PlaybackState is the engine's lifecycle phase
type PlaybackState string

const (
	StateStopped  PlaybackState = "stopped"
	StatePlaying  PlaybackState = "playing"
	StatePaused   PlaybackState = "paused"
	StateDisposed PlaybackState = "disposed"
)

// EstimatedSongDuration is the nominal section length used for listen
// ratio scoring. Songs have no hard end, so the ratio is measured
// against this.
const EstimatedSongDuration = 120.0 // seconds

// sessionBonusCheckTicks is how many 1-second duration ticks pass
// between session bonus checks.
const sessionBonusCheckTicks = 60

// ErrDisposed is returned by every operation after Dispose
var ErrDisposed = errors.New("engine is disposed")

// Snapshot is the externally visible engine state
type Snapshot struct {
	State           PlaybackState
	Key             string
	Degree          string
	BPM             int
	Volume          float64
	Params          preferences.GenerationParams
	SongID          string
	ListenSeconds   float64
	ExploitationPct float64
}

// Options configures a new Engine
type Options struct {
	Store           *preferences.Store
	Synth           Synth
	ExplorationBias float64
	BPMMin          float64
	BPMMax          float64
	Seed            int64
	Context         string
}

// Engine is the playback facade: it selects song parameters from the
// bandit, drives the sequencer over the transport, and feeds listening
// behavior back into the learner.
type Engine struct {
	mu    sync.Mutex
	state PlaybackState

	store     *preferences.Store
	bandit    *preferences.Bandit
	tracker   *preferences.Tracker
	synth     Synth
	transport *ClockTransport
	sequencer *Sequencer
	rng       *rand.Rand

	explorationBias float64
	bpmMin, bpmMax  float64
	volume          float64

	currentParams preferences.GenerationParams
	songID        string

	listeners  map[int]chan Snapshot
	listenerID int

	durationStop chan struct{}
	loadOnce     sync.Once
	loadErr      error
}

// New creates a stopped engine. Call Initialize before Play.
func New(opts Options) *Engine {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.ExplorationBias < 0 {
		opts.ExplorationBias = 0
	}
	if opts.BPMMax <= 0 {
		opts.BPMMin, opts.BPMMax = 60, 102
	}

	rng := NewLockedRand(opts.Seed)
	bandit := preferences.NewBandit(opts.Store, opts.Context)

	e := &Engine{
		state:           StateStopped,
		store:           opts.Store,
		bandit:          bandit,
		tracker:         preferences.NewTracker(opts.Store, bandit),
		synth:           opts.Synth,
		rng:             rng,
		explorationBias: opts.ExplorationBias,
		bpmMin:          opts.BPMMin,
		bpmMax:          opts.BPMMax,
		volume:          0.8,
		listeners:       make(map[int]chan Snapshot),
	}

	e.transport = NewClockTransport(156, func(tick int64) {
		e.sequencer.Tick(tick)
	})
	e.sequencer = NewSequencer(rng, opts.Synth, e.transport, e.notify)
	return e
}

// Initialize loads the synth. It is idempotent and safe to call from
// Play; a failed load leaves the engine usable in silent mode.
func (e *Engine) Initialize(ctx context.Context) error {
	e.loadOnce.Do(func() {
		e.loadErr = e.synth.Load(ctx)
		if e.loadErr != nil {
			log.Warn("synth load failed, continuing silent: ", e.loadErr)
		}
	})
	return e.loadErr
}

// GenerateNewSong selects parameters and rebuilds the song around them.
// With useDefaults set, the conservative defaults are used instead of a
// bandit draw (the first-run experience). Any in-flight song is
// finalized first.
func (e *Engine) GenerateNewSong(useDefaults bool) error {
	e.mu.Lock()
	if e.state == StateDisposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.mu.Unlock()

	if e.tracker.IsTracking() {
		if _, err := e.tracker.EndPlayback(false); err != nil {
			log.Warn("could not finalize song: ", err)
		}
	}

	var params preferences.GenerationParams
	if useDefaults {
		params = preferences.DefaultParams()
	} else {
		allowed := preferences.AllowedTempoArms(e.bpmMin, e.bpmMax)
		var err error
		params, err = e.bandit.SelectParams(allowed, e.explorationBias)
		if err != nil {
			return err
		}
	}

	if err := e.sequencer.ApplyParams(params); err != nil {
		return err
	}
	e.sequencer.GenerateProgression()

	songID, err := e.tracker.StartTracking(params, EstimatedSongDuration)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.currentParams = params
	e.songID = songID
	e.mu.Unlock()

	log.WithFields(log.Fields{
		"song":   songID,
		"params": params,
	}).Info("generated new song")

	e.notify()
	return nil
}

// Play starts or resumes playback. The first Play blocks on the synth
// load gate and generates a song if none exists yet.
func (e *Engine) Play(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateDisposed:
		e.mu.Unlock()
		return ErrDisposed
	case StatePlaying:
		e.mu.Unlock()
		return nil
	case StatePaused:
		e.state = StatePlaying
		e.mu.Unlock()
		e.transport.Resume()
		e.synth.StartNoise()
		e.notify()
		return nil
	}
	e.mu.Unlock()

	if err := e.Initialize(ctx); err != nil {
		log.Debug("playing without sound output")
	}

	if !e.tracker.IsTracking() || !e.sequencer.HasProgression() {
		firstRun := e.store.SongCount() == 0
		if err := e.GenerateNewSong(firstRun); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.state = StatePlaying
	e.durationStop = make(chan struct{})
	e.mu.Unlock()

	e.synth.StartNoise()
	e.transport.Start()
	go e.durationLoop(e.durationStop)

	e.notify()
	return nil
}

// Pause suspends playback, keeping the song and its listen clock state
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.state == StateDisposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.state != StatePlaying {
		e.mu.Unlock()
		return nil
	}
	e.state = StatePaused
	e.mu.Unlock()

	e.transport.Pause()
	e.synth.StopNoise()
	e.notify()
	return nil
}

// Stop halts playback and finalizes the in-flight song as a natural end
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == StateDisposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopped
	stop := e.durationStop
	e.durationStop = nil
	e.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	e.transport.Stop()
	e.synth.StopNoise()
	e.sequencer.Reset()

	if e.tracker.IsTracking() {
		if _, err := e.tracker.EndPlayback(false); err != nil {
			log.Warn("could not finalize song: ", err)
		}
	}

	e.notify()
	return nil
}

// Skip ends the current song as skipped and moves straight into a new
// one. Skipping early teaches the learner the strongest negative signal.
func (e *Engine) Skip() error {
	e.mu.Lock()
	if e.state == StateDisposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.mu.Unlock()

	if e.tracker.IsTracking() {
		if _, err := e.tracker.EndPlayback(true); err != nil {
			return err
		}
	}

	allowed := preferences.AllowedTempoArms(e.bpmMin, e.bpmMax)
	params, err := e.bandit.SelectParams(allowed, e.explorationBias)
	if err != nil {
		return err
	}
	if err := e.sequencer.ApplyParams(params); err != nil {
		return err
	}
	e.sequencer.Transition()

	songID, err := e.tracker.StartTracking(params, EstimatedSongDuration)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.currentParams = params
	e.songID = songID
	e.mu.Unlock()

	e.notify()
	return nil
}

// Like records explicit positive feedback on the current song
func (e *Engine) Like() error {
	return e.tracker.Like()
}

// Dislike records explicit negative feedback on the current song
func (e *Engine) Dislike() error {
	return e.tracker.Dislike()
}

// SetVolume sets the output level, clamped to [0, 1]
func (e *Engine) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	e.mu.Lock()
	e.volume = volume
	e.mu.Unlock()

	e.synth.SetVolume(volume)
	e.notify()
}

// Volume returns the current output level
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// State returns the current lifecycle phase
func (e *Engine) State() PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// GetSnapshot assembles the UI-facing view of the engine
func (e *Engine) GetSnapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		State:  e.state,
		Volume: e.volume,
		Params: e.currentParams,
		SongID: e.songID,
	}
	e.mu.Unlock()

	snap.Key = e.sequencer.Key()
	snap.Degree = e.sequencer.CurrentDegree()
	snap.BPM = e.transport.BPM()

	if song := e.tracker.CurrentSong(); song != nil {
		snap.ListenSeconds = song.ListenDuration
	}
	if ratio, err := e.bandit.ExploitationRatio(); err == nil {
		snap.ExploitationPct = ratio * 100
	}
	return snap
}

// Subscribe registers a state listener and returns its unsubscribe
// function. Snapshots are dropped, not queued, when the listener lags.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	id := e.listenerID
	e.listenerID++
	ch := make(chan Snapshot, 1)
	e.listeners[id] = ch
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify() {
	snap := e.GetSnapshot()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.listeners {
		select {
		case ch <- snap:
		default:
		}
	}
}

// durationLoop advances the listen clock once a second while playing and
// periodically checks the rolling session bonus.
func (e *Engine) durationLoop(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			playing := e.state == StatePlaying
			e.mu.Unlock()
			if !playing {
				continue
			}

			if song := e.tracker.CurrentSong(); song != nil {
				e.tracker.UpdateListenDuration(song.ListenDuration + 1)
			}

			ticks++
			if ticks%sessionBonusCheckTicks == 0 {
				if granted, err := e.tracker.CheckSessionBonus(); err != nil {
					log.Warn("session bonus check failed: ", err)
				} else if granted {
					e.notify()
				}
			}
		}
	}
}

// EndSession finalizes the current song and closes out the listening
// session.
func (e *Engine) EndSession() error {
	return e.tracker.EndSession()
}

// Dispose tears the engine down. Every call after this errors.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	if e.state == StateDisposed {
		e.mu.Unlock()
		return nil
	}
	wasStopped := e.state == StateStopped
	e.mu.Unlock()

	if !wasStopped {
		if err := e.Stop(); err != nil && !errors.Is(err, ErrDisposed) {
			log.Warn("stop during dispose: ", err)
		}
	}

	e.mu.Lock()
	e.state = StateDisposed
	for id, ch := range e.listeners {
		close(ch)
		delete(e.listeners, id)
	}
	e.mu.Unlock()

	return e.synth.Close()
}
