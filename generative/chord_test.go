package generative

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProgression_FollowsResolutionGraph(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 20; trial++ {
		progression := GenerateProgression(rng, 8)
		require.Len(t, progression, 8)

		for i := 0; i < len(progression)-1; i++ {
			nextDegree := progression[i+1].DegreeNum
			allowed := false
			for _, idx := range progression[i].NextIdxs {
				if chordDefs[idx].degreeNum == nextDegree {
					allowed = true
					break
				}
			}
			assert.True(t, allowed, "chord %s may not resolve to degree %d", progression[i].Degree, nextDegree)
		}
	}
}

func TestGenerateProgression_TooShort(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	assert.Nil(t, GenerateProgression(rng, 1))
	assert.Nil(t, GenerateProgression(rng, 0))
}

func TestGenerateVoicing_StrictlyAscendingFromRoot(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for _, def := range chordDefs {
		chord := newChord(def)
		for trial := 0; trial < 50; trial++ {
			voicing := chord.GenerateVoicing(rng, 4)
			require.Len(t, voicing, 4)
			assert.Equal(t, 0, voicing[0], "voicing anchors on the root")
			for i := 1; i < len(voicing); i++ {
				assert.Greater(t, voicing[i], voicing[i-1], "voicing must ascend: %v", voicing)
			}
		}
	}
}

func TestGenerateVoicing_TinySizeFallsBackToTriad(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	chord := newChord(chordDefs[0])

	assert.Equal(t, []int{0, 4, 7}, chord.GenerateVoicing(rng, 2))
}

func TestGenerateVoicing_DoesNotMutateChord(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	chord := newChord(chordDefs[0])
	before := append([]int(nil), chord.Intervals...)

	chord.GenerateVoicing(rng, 6)
	assert.Equal(t, before, chord.Intervals)
}

func TestChordMode_FoldsIntoOneOctave(t *testing.T) {
	chord := newChord(chordDefs[0]) // I: 0 4 7 11 14 17 21
	assert.Equal(t, []int{0, 4, 7, 11, 2, 5, 9}, chord.Mode())
}

func TestNoteNumber(t *testing.T) {
	assert.Equal(t, 60, NoteNumber("C", 4))
	assert.Equal(t, 48, NoteNumber("C", 3))
	assert.Equal(t, 69, NoteNumber("A", 4))
}

func TestBuildMelodyScale(t *testing.T) {
	scale := BuildMelodyScale("C")
	require.Len(t, scale, len(MelodyScale))
	assert.Equal(t, NoteNumber("C", 5)-7, scale[0])
	assert.Equal(t, NoteNumber("C", 5), scale[4])
	assert.Equal(t, NoteNumber("C", 5)+16, scale[len(scale)-1])

	for i := 1; i < len(scale); i++ {
		assert.Greater(t, scale[i], scale[i-1])
	}
}

func TestChordNotes_TransposesOntoKeyRoot(t *testing.T) {
	chord := newChord(chordDefs[4]) // V, a fifth above the root
	notes := ChordNotes("C", chord, []int{0, 4, 7})

	root := NoteNumber("G", 3)
	assert.Equal(t, []int{root, root + 4, root + 7}, notes)
}

func TestRandomKey(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 20; i++ {
		assert.Contains(t, MajorKeys, RandomKey(rng, false))
		assert.Contains(t, MinorKeys, RandomKey(rng, true))
	}
}
