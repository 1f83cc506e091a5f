package generative

import "math/rand"

// MelodyWalker produces a melody line by random-walking a scale with
// step sizes biased toward small intervals. A density gate decides on
// each tick whether a note sounds at all.
type MelodyWalker struct {
	rng     *rand.Rand
	scale   []int
	pos     int
	Density float64
}

// NewMelodyWalker starts a walker at a random position in the scale
func NewMelodyWalker(rng *rand.Rand, scale []int, density float64) *MelodyWalker {
	return &MelodyWalker{
		rng:     rng,
		scale:   scale,
		pos:     rng.Intn(len(scale)),
		Density: density,
	}
}

// SetScale swaps in a new scale, rehoming the walker at a random position
func (w *MelodyWalker) SetScale(scale []int) {
	w.scale = scale
	w.pos = w.rng.Intn(len(scale))
}

// Position returns the walker's current scale index
func (w *MelodyWalker) Position() int {
	return w.pos
}

// Step advances the walk one tick. It returns the MIDI note to play and
// true, or 0 and false when the density gate holds or the walk would
// leave the scale. An out-of-range move skips the tick without moving.
func (w *MelodyWalker) Step() (int, bool) {
	if w.rng.Float64() > w.Density {
		return 0, false
	}

	descendRange := min(w.pos, 7) + 1
	ascendRange := min(len(w.scale)-w.pos, 7)

	descend := descendRange > 1
	ascend := ascendRange > 1

	if descend && ascend {
		if w.rng.Float64() > 0.5 {
			ascend = false
		} else {
			descend = false
		}
	}

	limit := ascendRange
	if descend {
		limit = descendRange
	}
	// descendRange can reach 8 from high positions; only 7 weights exist
	if limit > len(IntervalWeights) {
		limit = len(IntervalWeights)
	}
	weights := append([]float64(nil), IntervalWeights[:limit]...)

	var sum float64
	for _, v := range weights {
		sum += v
	}
	for i := range weights {
		weights[i] /= sum
	}
	for i := 1; i < len(weights); i++ {
		weights[i] += weights[i-1]
	}

	r := w.rng.Float64()
	dist := 0
	for dist < len(weights) && r > weights[dist] {
		dist++
	}

	next := w.pos + dist
	if descend {
		next = w.pos - dist
	}
	if next < 0 || next >= len(w.scale) {
		return 0, false
	}

	w.pos = next
	return w.scale[next], true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
