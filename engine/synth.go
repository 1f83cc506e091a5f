package engine

import (
	"context"
	"time"

	"seedtone/generative"
)

// Synth is the sound output surface. The MIDI implementation sends to a
// hardware or virtual port; tests use a recording fake.
type Synth interface {
	// Load prepares the output. It must return even when no device is
	// available, leaving the synth in a silent degraded mode.
	Load(ctx context.Context) error
	Loaded() bool

	PlayChord(notes []int, velocity float64, duration time.Duration)
	PlayNote(note int, velocity float64, duration time.Duration)
	PlayDrum(voice generative.DrumVoice, velocity float64)

	// RampFilter glides the master lowpass cutoff to the target over
	// the given time.
	RampFilter(cutoffHz float64, over time.Duration)
	SetVolume(volume float64)

	StartNoise()
	StopNoise()

	Close() error
}
