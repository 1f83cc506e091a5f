package generative

import "math/rand"

// Note names usable as progression keys. Minor-mode progressions draw
// from the same natural roots, only the chord qualities change.
var (
	MajorKeys = []string{"C", "D", "E", "F", "G", "A", "B"}
	MinorKeys = []string{"A", "B", "C", "D", "E", "F", "G"}
)

// noteOffsets maps a natural note name to its semitone offset from C
var noteOffsets = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// MajorScale holds the semitone offsets of one major-scale octave
var MajorScale = []int{0, 2, 4, 5, 7, 9, 11}

// MelodyScale spans the major scale from the fifth below the root to the
// third above the octave, the walking range of the melody line.
var MelodyScale = []int{-7, -5, -4, -2, 0, 2, 4, 5, 7, 9, 11, 12, 14, 16}

// IntervalWeights biases melodic motion toward small steps
var IntervalWeights = []float64{8, 5, 3, 2, 1, 0.5, 0.25}

// NoteNumber converts a natural note name and octave to a MIDI note
// number, with C4 = 60.
func NoteNumber(name string, octave int) int {
	return (octave+1)*12 + noteOffsets[name]
}

// chordDef is one diatonic chord voiced to the 13th, with the set of
// degrees it tends to resolve to.
type chordDef struct {
	degree    string
	degreeNum int
	intervals []int
	nextIdxs  []int
}

// chordDefs is the full seven-chord system. Intervals run root, third,
// fifth, seventh, ninth, eleventh, thirteenth.
var chordDefs = []chordDef{
	{degree: "I", degreeNum: 1, intervals: []int{0, 4, 7, 11, 14, 17, 21}, nextIdxs: []int{1, 2, 3, 4, 5, 6}},
	{degree: "ii", degreeNum: 2, intervals: []int{0, 3, 7, 10, 14, 17, 21}, nextIdxs: []int{2, 4, 6}},
	{degree: "iii", degreeNum: 3, intervals: []int{0, 3, 7, 10, 13, 17, 20}, nextIdxs: []int{3, 5}},
	{degree: "IV", degreeNum: 4, intervals: []int{0, 4, 7, 11, 14, 18, 21}, nextIdxs: []int{1, 4}},
	{degree: "V", degreeNum: 5, intervals: []int{0, 4, 7, 10, 14, 17, 21}, nextIdxs: []int{0, 2, 5}},
	{degree: "vi", degreeNum: 6, intervals: []int{0, 3, 7, 10, 14, 17, 20}, nextIdxs: []int{1, 3}},
	{degree: "vii°", degreeNum: 7, intervals: []int{0, 3, 6, 10, 13, 17, 20}, nextIdxs: []int{0, 2}},
}

// Chord is one diatonic chord instance within a progression
type Chord struct {
	Degree       string
	DegreeNum    int
	Intervals    []int
	NextIdxs     []int
	SemitoneDist int
}

func newChord(def chordDef) Chord {
	return Chord{
		Degree:       def.degree,
		DegreeNum:    def.degreeNum,
		Intervals:    append([]int(nil), def.intervals...),
		NextIdxs:     append([]int(nil), def.nextIdxs...),
		SemitoneDist: MajorScale[def.degreeNum-1],
	}
}

// GenerateVoicing picks size chord tones and spreads them into a strictly
// ascending stack above the root. Upper structures are shuffled first so
// repeated voicings of the same chord differ, then octave-lifted until
// each note clears its predecessor.
func (c Chord) GenerateVoicing(rng *rand.Rand, size int) []int {
	if size < 3 {
		return append([]int(nil), c.Intervals[:3]...)
	}
	if size > len(c.Intervals) {
		size = len(c.Intervals)
	}

	upper := append([]int(nil), c.Intervals[1:size]...)
	rng.Shuffle(len(upper), func(i, j int) {
		upper[i], upper[j] = upper[j], upper[i]
	})

	for i := 1; i < len(upper); i++ {
		for upper[i] < upper[i-1] {
			upper[i] += 12
		}
	}

	return append([]int{0}, upper...)
}

// Mode folds the chord's extensions back into one octave, giving the
// modal pitch set the melody can borrow from.
func (c Chord) Mode() []int {
	out := make([]int, len(c.Intervals))
	for i, n := range c.Intervals {
		if n >= 12 {
			n -= 12
		}
		out[i] = n
	}
	return out
}

// GenerateProgression walks the diatonic resolution graph from a random
// starting chord. Lengths under 2 yield nothing.
func GenerateProgression(rng *rand.Rand, length int) []Chord {
	if length < 2 {
		return nil
	}

	progression := make([]Chord, 0, length)
	def := chordDefs[rng.Intn(len(chordDefs))]

	for i := 0; i < length; i++ {
		progression = append(progression, newChord(def))
		def = chordDefs[def.nextIdxs[rng.Intn(len(def.nextIdxs))]]
	}

	return progression
}

// RandomKey picks a key root for the given mode
func RandomKey(rng *rand.Rand, minor bool) string {
	if minor {
		return MinorKeys[rng.Intn(len(MinorKeys))]
	}
	return MajorKeys[rng.Intn(len(MajorKeys))]
}

// BuildMelodyScale harmonizes the melody range onto a key, producing the
// MIDI notes the melody walker moves through. The range centers on the
// key's fifth octave.
func BuildMelodyScale(key string) []int {
	root := NoteNumber(key, 5)
	scale := make([]int, len(MelodyScale))
	for i, interval := range MelodyScale {
		scale[i] = root + interval
	}
	return scale
}

// ChordNotes transposes a voicing onto a key's third-octave root,
// yielding playable MIDI notes.
func ChordNotes(key string, chord Chord, voicing []int) []int {
	root := NoteNumber(key, 3) + chord.SemitoneDist
	notes := make([]int, len(voicing))
	for i, interval := range voicing {
		notes[i] = root + interval
	}
	return notes
}
