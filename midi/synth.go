package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"seedtone/generative"
)

// Channel and note assignments. Melodic material goes out on channel 0,
// drums on the General MIDI percussion channel.
const (
	melodicChannel uint8 = 0
	drumChannel    uint8 = 9

	gmKick      uint8 = 36
	gmSnare     uint8 = 38
	gmClosedHat uint8 = 42

	ccVolume uint8 = 7
	ccCutoff uint8 = 74

	noiseChannel  uint8 = 1
	noiseNote     uint8 = 24
	noiseVelocity uint8 = 20
)

// filterRampSteps is how many CC updates one cutoff ramp is sliced into
const filterRampSteps = 20

// Synth sends the generated music to a MIDI output port. With no port
// matched it stays in a silent degraded mode: every call succeeds and
// nothing sounds.
type Synth struct {
	mu       sync.Mutex
	portName string
	send     func(gomidi.Message) error
	loaded   bool

	cutoffValue uint8
	rampStop    chan struct{}
	noiseOn     bool
}

// NewSynth creates a synth that will attach to the first output port
// whose name contains portName (case insensitive). An empty name takes
// the first available port.
func NewSynth(portName string) *Synth {
	return &Synth{portName: portName, cutoffValue: 127}
}

// Load scans the output ports and attaches. Scanning runs with a
// timeout because CoreMIDI can hang; a timeout or an empty port list
// leaves the synth silent rather than failing playback.
func (s *Synth) Load(ctx context.Context) error {
	type scanResult struct{ outs []drivers.Out }

	ch := make(chan scanResult, 1)
	go func() {
		ch <- scanResult{outs: gomidi.GetOutPorts()}
	}()

	var outs []drivers.Out
	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-ch:
		outs = result.outs
	case <-time.After(3 * time.Second):
		log.Warn("MIDI port scan timed out, running silent")
		s.markLoaded()
		return nil
	}

	port := s.matchPort(outs)
	if port == nil {
		log.WithField("want", s.portName).Warn("no MIDI output port matched, running silent")
		s.markLoaded()
		return nil
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		log.WithField("port", port.String()).Warn("could not open MIDI port, running silent: ", err)
		s.markLoaded()
		return nil
	}

	s.mu.Lock()
	s.send = send
	s.loaded = true
	s.mu.Unlock()

	log.WithField("port", port.String()).Info("MIDI output attached")
	return nil
}

func (s *Synth) matchPort(outs []drivers.Out) drivers.Out {
	if len(outs) == 0 {
		return nil
	}
	if s.portName == "" {
		return outs[0]
	}
	want := strings.ToLower(s.portName)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), want) {
			return out
		}
	}
	return nil
}

func (s *Synth) markLoaded() {
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
}

// Loaded reports whether Load has completed (attached or degraded)
func (s *Synth) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Synth) sender() func(gomidi.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send
}

// PlayChord sounds all notes together and releases them after duration
func (s *Synth) PlayChord(notes []int, velocity float64, duration time.Duration) {
	send := s.sender()
	if send == nil {
		return
	}

	vel := midiVelocity(velocity)
	for _, note := range notes {
		send(gomidi.NoteOn(melodicChannel, clampNote(note), vel))
	}

	held := append([]int(nil), notes...)
	time.AfterFunc(duration, func() {
		if send := s.sender(); send != nil {
			for _, note := range held {
				send(gomidi.NoteOff(melodicChannel, clampNote(note)))
			}
		}
	})
}

// PlayNote sounds one melodic note and releases it after duration
func (s *Synth) PlayNote(note int, velocity float64, duration time.Duration) {
	send := s.sender()
	if send == nil {
		return
	}

	key := clampNote(note)
	send(gomidi.NoteOn(melodicChannel, key, midiVelocity(velocity)))
	time.AfterFunc(duration, func() {
		if send := s.sender(); send != nil {
			send(gomidi.NoteOff(melodicChannel, key))
		}
	})
}

// PlayDrum fires one percussion hit on the GM drum channel
func (s *Synth) PlayDrum(voice generative.DrumVoice, velocity float64) {
	send := s.sender()
	if send == nil {
		return
	}

	var key uint8
	switch voice {
	case generative.VoiceKick:
		key = gmKick
	case generative.VoiceSnare:
		key = gmSnare
	case generative.VoiceHihat:
		key = gmClosedHat
	default:
		return
	}

	send(gomidi.NoteOn(drumChannel, key, midiVelocity(velocity)))
	// percussion voices are one-shots; the off just clears the note state
	time.AfterFunc(50*time.Millisecond, func() {
		if send := s.sender(); send != nil {
			send(gomidi.NoteOff(drumChannel, key))
		}
	})
}

// RampFilter glides the brightness controller toward the target cutoff.
// A new ramp cancels the running one.
func (s *Synth) RampFilter(cutoffHz float64, over time.Duration) {
	target := cutoffToCC(cutoffHz)

	s.mu.Lock()
	if s.rampStop != nil {
		close(s.rampStop)
	}
	stop := make(chan struct{})
	s.rampStop = stop
	start := s.cutoffValue
	s.mu.Unlock()

	if s.sender() == nil || over <= 0 || start == target {
		s.setCutoff(target)
		return
	}

	go func() {
		ticker := time.NewTicker(over / filterRampSteps)
		defer ticker.Stop()

		for step := 1; step <= filterRampSteps; step++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				value := int(start) + (int(target)-int(start))*step/filterRampSteps
				s.setCutoff(uint8(value))
			}
		}
	}()
}

func (s *Synth) setCutoff(value uint8) {
	s.mu.Lock()
	s.cutoffValue = value
	send := s.send
	s.mu.Unlock()

	if send != nil {
		send(gomidi.ControlChange(melodicChannel, ccCutoff, value))
	}
}

// SetVolume maps a 0..1 level to the channel volume controller
func (s *Synth) SetVolume(volume float64) {
	send := s.sender()
	if send == nil {
		return
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	value := uint8(volume * 127)
	send(gomidi.ControlChange(melodicChannel, ccVolume, value))
	send(gomidi.ControlChange(drumChannel, ccVolume, value))
}

// StartNoise holds a quiet drone under the mix, standing in for the
// vinyl-noise bed. It sustains until StopNoise.
func (s *Synth) StartNoise() {
	s.mu.Lock()
	send := s.send
	already := s.noiseOn
	s.noiseOn = true
	s.mu.Unlock()

	if send == nil || already {
		return
	}
	send(gomidi.NoteOn(noiseChannel, noiseNote, noiseVelocity))
}

// StopNoise releases the drone started by StartNoise
func (s *Synth) StopNoise() {
	s.mu.Lock()
	send := s.send
	was := s.noiseOn
	s.noiseOn = false
	s.mu.Unlock()

	if send == nil || !was {
		return
	}
	send(gomidi.NoteOff(noiseChannel, noiseNote))
}

// Close silences both channels and detaches from the port
func (s *Synth) Close() error {
	s.mu.Lock()
	send := s.send
	s.send = nil
	if s.rampStop != nil {
		close(s.rampStop)
		s.rampStop = nil
	}
	s.mu.Unlock()

	if send != nil {
		send(gomidi.ControlChange(melodicChannel, 123, 0)) // all notes off
		send(gomidi.ControlChange(noiseChannel, 123, 0))
		send(gomidi.ControlChange(drumChannel, 123, 0))
	}
	return nil
}

func midiVelocity(velocity float64) uint8 {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	return uint8(velocity * 127)
}

func clampNote(note int) uint8 {
	if note < 0 {
		note = 0
	}
	if note > 127 {
		note = 127
	}
	return uint8(note)
}

// cutoffToCC maps a cutoff frequency onto the 0..127 brightness range.
// The sweep band runs 300..2000 Hz.
func cutoffToCC(cutoffHz float64) uint8 {
	const lowHz, highHz = 300.0, 2000.0
	if cutoffHz <= lowHz {
		return 0
	}
	if cutoffHz >= highHz {
		return 127
	}
	return uint8((cutoffHz - lowHz) / (highHz - lowHz) * 127)
}
