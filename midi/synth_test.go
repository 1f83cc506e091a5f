package midi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"seedtone/generative"
)

func TestCutoffToCC(t *testing.T) {
	assert.Equal(t, uint8(0), cutoffToCC(300))
	assert.Equal(t, uint8(0), cutoffToCC(100))
	assert.Equal(t, uint8(127), cutoffToCC(2000))
	assert.Equal(t, uint8(127), cutoffToCC(8000))

	mid := cutoffToCC(1150)
	assert.Greater(t, mid, uint8(50))
	assert.Less(t, mid, uint8(80))
}

func TestMidiVelocity(t *testing.T) {
	assert.Equal(t, uint8(0), midiVelocity(-1))
	assert.Equal(t, uint8(127), midiVelocity(2))
	assert.Equal(t, uint8(63), midiVelocity(0.5))
}

func TestClampNote(t *testing.T) {
	assert.Equal(t, uint8(0), clampNote(-5))
	assert.Equal(t, uint8(127), clampNote(300))
	assert.Equal(t, uint8(60), clampNote(60))
}

func TestSynth_DegradedModeIsSilentAndSafe(t *testing.T) {
	s := NewSynth("nonexistent")
	s.markLoaded()

	assert.True(t, s.Loaded())

	// no port attached: every call is a safe no-op
	s.PlayChord([]int{60, 64, 67}, 0.7, time.Millisecond)
	s.PlayNote(72, 0.7, time.Millisecond)
	s.PlayDrum(generative.VoiceKick, 0.9)
	s.RampFilter(300, time.Millisecond)
	s.SetVolume(0.5)
	s.StartNoise()
	s.StopNoise()
	assert.NoError(t, s.Close())
}
