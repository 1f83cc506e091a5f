package preferences

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrNoSongTracked is returned when feedback arrives with nothing playing.
// It indicates a caller bug, not a transient condition.
var ErrNoSongTracked = errors.New("no song being tracked")

const sessionBonusAfter = 30 * time.Minute

// Tracker converts listening behavior into scalar rewards and drives the
// bandit updates. At most one song is tracked at a time; the engine must
// end the current song before starting the next.
type Tracker struct {
	mu      sync.Mutex
	store   *Store
	bandit  *Bandit
	current *SongLog
	now     func() time.Time
}

// NewTracker creates a feedback tracker over the given store and bandit
func NewTracker(store *Store, bandit *Bandit) *Tracker {
	return &Tracker{
		store:  store,
		bandit: bandit,
		now:    time.Now,
	}
}

// StartTracking begins a new song log and returns its id. If no rolling
// session is underway, one starts now.
func (t *Tracker) StartTracking(params GenerationParams, estimatedDuration float64) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		return "", errors.New("a song is already being tracked")
	}

	now := t.now()
	t.current = &SongLog{
		ID:            uuid.NewString(),
		Params:        params,
		StartTime:     now,
		TotalDuration: estimatedDuration,
	}

	if _, ok := t.store.SessionStartTime(); !ok {
		if err := t.store.SetSessionStartTime(now); err != nil {
			log.Warn("could not stamp session start: ", err)
		}
	}

	return t.current.ID, nil
}

// IsTracking reports whether a song is currently tracked
func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

// CurrentSong returns a copy of the in-flight song log, or nil
func (t *Tracker) CurrentSong() *SongLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	cp := *t.current
	return &cp
}

// UpdateListenDuration records elapsed listening seconds. It is the only
// mutator of listen duration before finalization.
func (t *Tracker) UpdateListenDuration(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.current.ListenDuration = seconds
	}
}

// EndPlayback finalizes the tracked song, computes its reward, updates the
// bandit and persists the log. The reward precedence is: quick skip,
// then 90%+ listen, then 50%+, then under-30%, else neutral.
func (t *Tracker) EndPlayback(skipped bool) (float64, error) {
	t.mu.Lock()
	song := t.current
	if song == nil {
		t.mu.Unlock()
		return 0, ErrNoSongTracked
	}
	t.current = nil
	t.mu.Unlock()

	now := t.now()
	song.EndTime = &now
	song.Skipped = skipped

	var listenRatio float64
	if song.TotalDuration > 0 {
		listenRatio = song.ListenDuration / song.TotalDuration
	}

	var reward float64
	switch {
	case skipped && song.ListenDuration < 10:
		reward = RewardSkipUnder10Sec
	case listenRatio >= 0.9:
		reward = RewardListen90Plus
	case listenRatio >= 0.5:
		reward = RewardListen50To90
	case listenRatio < 0.3:
		reward = RewardListenUnder30
	}
	song.Reward = &reward

	eventType := FeedbackListenEnd
	if skipped {
		eventType = FeedbackSkip
	}
	ratio := listenRatio
	t.persistEvent(&FeedbackEvent{
		SongID:      song.ID,
		Timestamp:   now.UnixNano(),
		Type:        eventType,
		ListenRatio: &ratio,
		Reward:      reward,
	})

	if err := t.bandit.UpdateForSong(song.Params, reward); err != nil {
		return reward, err
	}
	if err := t.store.SaveSongLog(song); err != nil {
		log.Warn("could not persist song log: ", err)
	}

	log.WithFields(log.Fields{
		"song":    song.ID,
		"ratio":   listenRatio,
		"skipped": skipped,
		"reward":  reward,
	}).Debug("playback ended")

	return reward, nil
}

// Like applies the fixed explicit-like reward to the tracked song without
// finalizing it. Repeated likes are cumulative.
func (t *Tracker) Like() error {
	return t.explicit(FeedbackLike, RewardExplicitLike)
}

// Dislike applies the fixed explicit-dislike reward to the tracked song
func (t *Tracker) Dislike() error {
	return t.explicit(FeedbackDislike, RewardExplicitDislike)
}

func (t *Tracker) explicit(kind string, reward float64) error {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return ErrNoSongTracked
	}
	t.current.ExplicitFeedback = kind
	params := t.current.Params
	songID := t.current.ID
	t.mu.Unlock()

	t.persistEvent(&FeedbackEvent{
		SongID:    songID,
		Timestamp: t.now().UnixNano(),
		Type:      kind,
		Reward:    reward,
	})

	return t.bandit.UpdateForSong(params, reward)
}

// CheckSessionBonus awards the session bonus when the rolling session has
// lasted long enough, then restarts the session clock. Returns whether a
// bonus was granted. Callers invoke this periodically, not on every tick.
func (t *Tracker) CheckSessionBonus() (bool, error) {
	start, ok := t.store.SessionStartTime()
	if !ok {
		return false, nil
	}

	t.mu.Lock()
	song := t.current
	t.mu.Unlock()

	if song == nil || t.now().Sub(start) < sessionBonusAfter {
		return false, nil
	}

	t.persistEvent(&FeedbackEvent{
		SongID:    song.ID,
		Timestamp: t.now().UnixNano(),
		Type:      FeedbackSessionBonus,
		Reward:    RewardSessionBonus,
	})

	if err := t.bandit.UpdateForSong(song.Params, RewardSessionBonus); err != nil {
		return false, err
	}
	if err := t.store.SetSessionStartTime(t.now()); err != nil {
		log.Warn("could not reset session clock: ", err)
	}

	log.WithField("song", song.ID).Debug("session bonus granted")
	return true, nil
}

// EndSession finalizes any in-flight song and clears the session stamp
func (t *Tracker) EndSession() error {
	if t.IsTracking() {
		if _, err := t.EndPlayback(false); err != nil {
			return err
		}
	}
	return t.store.ClearSessionStartTime()
}

func (t *Tracker) persistEvent(event *FeedbackEvent) {
	if err := t.store.SaveFeedbackEvent(event); err != nil {
		log.Warn("could not persist feedback event: ", err)
	}
}
