package preferences

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/jsonstore"
	log "github.com/sirupsen/logrus"
)

// DefaultContext is the arm state key used when no profile is selected
const DefaultContext = "current"

const (
	armStatePrefix = "armstate:"
	songLogPrefix  = "songlog:"
	feedbackPrefix = "feedback:"
	settingPrefix  = "setting:"
)

const sessionStartSetting = "sessionStartTime"

// SongLog records one generated song and how it was received
type SongLog struct {
	ID               string           `json:"id"`
	Params           GenerationParams `json:"params"`
	StartTime        time.Time        `json:"startTime"`
	EndTime          *time.Time       `json:"endTime,omitempty"`
	ListenDuration   float64          `json:"listenDuration"`
	TotalDuration    float64          `json:"totalDuration"`
	Skipped          bool             `json:"skipped"`
	ExplicitFeedback string           `json:"explicitFeedback,omitempty"` // "like" or "dislike"
	Reward           *float64         `json:"reward,omitempty"`
}

// Feedback event types
const (
	FeedbackListenEnd    = "listen_end"
	FeedbackSkip         = "skip"
	FeedbackLike         = "like"
	FeedbackDislike      = "dislike"
	FeedbackSessionBonus = "session_bonus"
)

// FeedbackEvent is an append-only audit record of one feedback occurrence
type FeedbackEvent struct {
	SongID      string   `json:"songId"`
	Timestamp   int64    `json:"timestamp"` // unix nanos, also the store key
	Type        string   `json:"type"`
	ListenRatio *float64 `json:"listenRatio,omitempty"`
	Reward      float64  `json:"reward"`
}

// Store is the durable key-value gateway for bandit state, song logs,
// feedback events and scalar settings. It is backed by a single JSON
// store file; an empty path keeps everything in memory (used by tests
// and the simulator). The in-memory copy is authoritative for the
// session - the file is a durability concern only.
type Store struct {
	mu   sync.Mutex
	ks   *jsonstore.JSONStore
	path string
}

// DataDir returns the default store directory
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "seedtone"), nil
}

// OpenStore opens (or creates) the store at path. An empty path yields a
// purely in-memory store.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		return &Store{ks: new(jsonstore.JSONStore)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	ks, err := jsonstore.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithField("path", path).Warn("could not open store, starting fresh: ", err)
		}
		ks = new(jsonstore.JSONStore)
	}
	return &Store{ks: ks, path: path}, nil
}

// flush writes the store to disk. Persistence failures are logged and
// returned but never invalidate the in-memory state.
func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	if err := jsonstore.Save(s.ks, s.path); err != nil {
		log.WithField("path", s.path).Error("store flush failed: ", err)
		return err
	}
	return nil
}

// ArmState loads the posterior state for a context, seeding defaults if
// none has been persisted yet.
func (s *Store) ArmState(contextID string) (*ArmState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state ArmState
	if err := s.ks.Get(armStatePrefix+contextID, &state); err != nil {
		return DefaultArmState(), nil
	}
	return &state, nil
}

// SaveArmState persists the posterior state for a context
func (s *Store) SaveArmState(contextID string, state *ArmState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ks.Set(armStatePrefix+contextID, state); err != nil {
		return err
	}
	return s.flush()
}

// ArmContexts lists every context id with persisted arm state
func (s *Store) ArmContexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, key := range s.ks.Keys() {
		if strings.HasPrefix(key, armStatePrefix) {
			out = append(out, strings.TrimPrefix(key, armStatePrefix))
		}
	}
	sort.Strings(out)
	return out
}

// SaveSongLog persists a song log keyed by its id
func (s *Store) SaveSongLog(logEntry *SongLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ks.Set(songLogPrefix+logEntry.ID, logEntry); err != nil {
		return err
	}
	return s.flush()
}

// SongLog fetches one song log by id
func (s *Store) SongLog(id string) (*SongLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entry SongLog
	if err := s.ks.Get(songLogPrefix+id, &entry); err != nil {
		return nil, fmt.Errorf("song log %s: %w", id, err)
	}
	return &entry, nil
}

// RecentSongLogs returns up to limit logs, newest first
func (s *Store) RecentSongLogs(limit int) ([]SongLog, error) {
	logs, err := s.AllSongLogs()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// AllSongLogs returns every song log, newest first
func (s *Store) AllSongLogs() ([]SongLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.ks.GetAll(regexp.MustCompile("^" + songLogPrefix))
	logs := make([]SongLog, 0, len(raw))
	for key, data := range raw {
		var entry SongLog
		if err := json.Unmarshal(data, &entry); err != nil {
			log.WithField("key", key).Warn("skipping unreadable song log: ", err)
			continue
		}
		logs = append(logs, entry)
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartTime.After(logs[j].StartTime)
	})
	return logs, nil
}

// SongCount returns the number of persisted song logs
func (s *Store) SongCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, key := range s.ks.Keys() {
		if strings.HasPrefix(key, songLogPrefix) {
			n++
		}
	}
	return n
}

// SaveFeedbackEvent appends a feedback event, keyed by its timestamp
func (s *Store) SaveFeedbackEvent(event *FeedbackEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ks.Set(fmt.Sprintf("%s%d", feedbackPrefix, event.Timestamp), event); err != nil {
		return err
	}
	return s.flush()
}

// AllFeedbackEvents returns every feedback event in timestamp order
func (s *Store) AllFeedbackEvents() ([]FeedbackEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.ks.GetAll(regexp.MustCompile("^" + feedbackPrefix))
	events := make([]FeedbackEvent, 0, len(raw))
	for key, data := range raw {
		var event FeedbackEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.WithField("key", key).Warn("skipping unreadable feedback event: ", err)
			continue
		}
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	return events, nil
}

// FeedbackEventsForSong returns a song's feedback events in order
func (s *Store) FeedbackEventsForSong(songID string) ([]FeedbackEvent, error) {
	events, err := s.AllFeedbackEvents()
	if err != nil {
		return nil, err
	}
	var out []FeedbackEvent
	for _, e := range events {
		if e.SongID == songID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Setting reads a scalar setting into v, returning false if unset
func (s *Store) Setting(name string, v interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ks.Get(settingPrefix+name, v) == nil
}

// SetSetting writes a scalar setting
func (s *Store) SetSetting(name string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ks.Set(settingPrefix+name, v); err != nil {
		return err
	}
	return s.flush()
}

// DeleteSetting removes a scalar setting
func (s *Store) DeleteSetting(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ks.Delete(settingPrefix + name)
	return s.flush()
}

// SessionStartTime returns the rolling session start, or zero if none
func (s *Store) SessionStartTime() (time.Time, bool) {
	var unix int64
	if !s.Setting(sessionStartSetting, &unix) {
		return time.Time{}, false
	}
	return time.Unix(0, unix), true
}

// SetSessionStartTime stamps the rolling session start
func (s *Store) SetSessionStartTime(t time.Time) error {
	return s.SetSetting(sessionStartSetting, t.UnixNano())
}

// ClearSessionStartTime removes the session stamp
func (s *Store) ClearSessionStartTime() error {
	return s.DeleteSetting(sessionStartSetting)
}

// ListeningStats summarizes the persisted song history
type ListeningStats struct {
	TotalSongs         int
	TotalListenSeconds float64
	AverageListenRatio float64
	LikeCount          int
	SkipCount          int
}

// Stats computes listening statistics over all song logs
func (s *Store) Stats() (ListeningStats, error) {
	logs, err := s.AllSongLogs()
	if err != nil {
		return ListeningStats{}, err
	}

	stats := ListeningStats{TotalSongs: len(logs)}
	var ratioSum float64
	for _, l := range logs {
		stats.TotalListenSeconds += l.ListenDuration
		if l.TotalDuration > 0 {
			ratioSum += l.ListenDuration / l.TotalDuration
		}
		if l.ExplicitFeedback == FeedbackLike {
			stats.LikeCount++
		}
		if l.Skipped {
			stats.SkipCount++
		}
	}
	if len(logs) > 0 {
		stats.AverageListenRatio = ratioSum / float64(len(logs))
	}
	return stats, nil
}
