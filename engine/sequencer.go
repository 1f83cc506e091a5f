package engine

import (
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"seedtone/generative"
	"seedtone/preferences"
)

// Tick layout, in 8th notes. Chords hold for a whole note per bar, the
// kick grid spans two bars, the snare backbeat lands every half note and
// hats fall on quarters.
const (
	ticksPerBar   = 8
	snareInterval = 4
	hatInterval   = 2
)

// Master filter sweep targets for section transitions
const (
	filterOpenHz   = 2000
	filterClosedHz = 300
	filterRampTime = 2 * time.Second
)

// ProgressionLength is the number of chords generated per song section
const ProgressionLength = 8

// sectionLengths are the candidate section sizes in bars
var sectionLengths = []int{16, 20, 24, 28, 32, 48}

// Sequencer turns transport ticks into notes. It owns the current song's
// harmonic and rhythmic state and mutates it as sections roll over.
type Sequencer struct {
	mu        sync.Mutex
	rng       *rand.Rand
	synth     Synth
	transport Transport

	key           string
	progression   []generative.Chord
	progressIndex int
	barCount      int
	sectionLength int

	walker    *generative.MelodyWalker
	melodyOff bool

	kickOff bool
	snOff   bool
	hatOff  bool

	velocity      float64
	kickEmphasis  float64
	hihatActivity float64
	preferMinor   bool

	onChange func()
}

// NewSequencer creates a sequencer playing through the given synth and
// clocked by the given transport. onChange fires after any externally
// visible state moves; it may be nil.
func NewSequencer(rng *rand.Rand, synth Synth, transport Transport, onChange func()) *Sequencer {
	return &Sequencer{
		rng:           rng,
		synth:         synth,
		transport:     transport,
		key:           "C",
		sectionLength: 32,
		velocity:      0.7,
		kickEmphasis:  0.65,
		hihatActivity: 0.5,
		walker:        generative.NewMelodyWalker(rng, generative.BuildMelodyScale("C"), 0.33),
		onChange:      onChange,
	}
}

// ApplyParams maps one set of bandit arms onto the running groove:
// transport tempo and swing, arrangement density and velocity, and the
// harmonic mode of future progressions.
func (s *Sequencer) ApplyParams(params preferences.GenerationParams) error {
	tempo, err := generative.ComputeTempoParams(s.rng, params.Tempo)
	if err != nil {
		return err
	}
	energy, err := generative.ComputeEnergyParams(params.Energy)
	if err != nil {
		return err
	}
	dance, err := generative.ComputeDanceabilityParams(params.Danceability)
	if err != nil {
		return err
	}
	valence, err := generative.ComputeValenceParams(params.Valence)
	if err != nil {
		return err
	}

	s.transport.SetBPM(tempo.BPM)
	s.transport.SetSwing(dance.Swing)

	s.mu.Lock()
	s.walker.Density = energy.MelodyDensity
	s.velocity = energy.Velocity
	s.kickOff = energy.KickOff
	s.snOff = energy.SnareOff
	s.kickEmphasis = dance.KickEmphasis
	s.hihatActivity = dance.HihatActivity
	s.preferMinor = valence.PreferMinor || params.Mode == preferences.ModeMinor
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"bpm":   tempo.BPM,
		"swing": dance.Swing,
		"key":   s.Key(),
	}).Debug("applied generation parameters")

	s.notify()
	return nil
}

// GenerateProgression rolls a new key, chord progression and melody
// scale for the current mode preference.
func (s *Sequencer) GenerateProgression() {
	s.mu.Lock()
	s.key = generative.RandomKey(s.rng, s.preferMinor)
	s.progression = generative.GenerateProgression(s.rng, ProgressionLength)
	s.progressIndex = 0
	s.walker.SetScale(generative.BuildMelodyScale(s.key))
	s.mu.Unlock()

	s.notify()
}

// Tick plays everything scheduled for one 8th-note tick
func (s *Sequencer) Tick(tick int64) {
	if tick%ticksPerBar == 0 {
		s.chordTick()
	}
	s.melodyTick()
	s.kickTick(int(tick % int64(len(generative.KickPattern))))
	if tick%snareInterval == 0 {
		s.snareTick(int(tick / snareInterval % int64(len(generative.SnarePattern))))
	}
	if tick%hatInterval == 0 {
		s.hatTick()
	}
}

func (s *Sequencer) chordTick() {
	s.mu.Lock()
	if s.progressIndex >= len(s.progression) {
		s.mu.Unlock()
		return
	}
	chord := s.progression[s.progressIndex]
	key := s.key
	velocity := s.velocity
	s.mu.Unlock()

	voicing := chord.GenerateVoicing(s.rng, 4)
	notes := generative.ChordNotes(key, chord, voicing)
	s.synth.PlayChord(notes, velocity, s.wholeNote())

	s.advanceChord()
}

// advanceChord moves the progression pointer, rerolling the drum and
// melody gates at the top of each pass and rolling sections over.
func (s *Sequencer) advanceChord() {
	s.mu.Lock()

	if s.progressIndex == 0 {
		s.kickOff = s.rng.Float64() < 0.15
		s.snOff = s.rng.Float64() < 0.2
		s.hatOff = s.rng.Float64() < 0.25
		s.walker.Density = s.rng.Float64()*0.3 + 0.2
		s.melodyOff = s.rng.Float64() < 0.25
	}

	if s.progressIndex == len(s.progression)-1 {
		s.progressIndex = 0
	} else {
		s.progressIndex++
	}
	s.barCount++

	rollover := s.barCount >= s.sectionLength
	if rollover {
		s.barCount = 0
	}
	s.mu.Unlock()

	if rollover {
		s.Transition()
	}
	s.notify()
}

func (s *Sequencer) melodyTick() {
	s.mu.Lock()
	if s.melodyOff {
		s.mu.Unlock()
		return
	}
	note, ok := s.walker.Step()
	velocity := s.velocity
	s.mu.Unlock()

	if ok {
		s.synth.PlayNote(note, velocity, s.halfNote())
	}
}

func (s *Sequencer) kickTick(slot int) {
	s.mu.Lock()
	off := s.kickOff
	emphasis := s.kickEmphasis
	velocity := s.velocity
	s.mu.Unlock()

	if off {
		return
	}
	p := generative.KickProbability(generative.KickPattern[slot], emphasis)
	if p > 0 && s.rng.Float64() < p {
		s.synth.PlayDrum(generative.VoiceKick, velocity)
	}
}

func (s *Sequencer) snareTick(slot int) {
	s.mu.Lock()
	off := s.snOff
	velocity := s.velocity
	s.mu.Unlock()

	if off || !generative.SnarePattern[slot] {
		return
	}
	if s.rng.Float64() < generative.SnareProbability() {
		s.synth.PlayDrum(generative.VoiceSnare, velocity)
	}
}

func (s *Sequencer) hatTick() {
	s.mu.Lock()
	off := s.hatOff
	activity := s.hihatActivity
	velocity := s.velocity
	s.mu.Unlock()

	if off {
		return
	}
	if s.rng.Float64() < generative.HatProbability(activity) {
		s.synth.PlayDrum(generative.VoiceHihat, velocity)
	}
}

// Transition moves into a new section: fresh key and progression, a
// reroll of the arrangement gates, a closed-then-open filter sweep and a
// new section length.
func (s *Sequencer) Transition() {
	s.GenerateProgression()

	s.mu.Lock()
	s.walker.Density = 0.2 + s.rng.Float64()*0.5
	s.kickOff = s.rng.Float64() < 0.13
	s.snOff = s.rng.Float64() < 0.17
	s.hatOff = s.rng.Float64() < 0.22
	s.melodyOff = s.rng.Float64() < 0.25
	s.sectionLength = sectionLengths[s.rng.Intn(len(sectionLengths))]
	s.mu.Unlock()

	s.synth.RampFilter(filterClosedHz, filterRampTime)
	time.AfterFunc(filterRampTime, func() {
		s.synth.RampFilter(filterOpenHz, filterRampTime)
	})

	log.WithField("key", s.Key()).Debug("section transition")
	s.notify()
}

// Reset rewinds the progression and bar counters
func (s *Sequencer) Reset() {
	s.mu.Lock()
	s.progressIndex = 0
	s.barCount = 0
	s.mu.Unlock()
	s.notify()
}

// Key returns the current key root
func (s *Sequencer) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// CurrentDegree returns the Roman numeral of the sounding chord, or ""
// before a progression exists.
func (s *Sequencer) CurrentDegree() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progressIndex >= len(s.progression) {
		return ""
	}
	return s.progression[s.progressIndex].Degree
}

// HasProgression reports whether a progression has been generated
func (s *Sequencer) HasProgression() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.progression) > 0
}

func (s *Sequencer) wholeNote() time.Duration {
	return 4 * time.Duration(float64(time.Minute)/float64(s.transport.BPM()))
}

func (s *Sequencer) halfNote() time.Duration {
	return 2 * time.Duration(float64(time.Minute)/float64(s.transport.BPM()))
}

func (s *Sequencer) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
