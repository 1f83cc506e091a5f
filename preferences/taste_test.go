package preferences

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasteProfile_EncodeDecode(t *testing.T) {
	store := newTestStore(t)
	bandit := NewBandit(store, "")

	liked := GenerationParams{
		Tempo:        Tempo90,
		Energy:       EnergyHigh,
		Valence:      ValenceHappy,
		Danceability: DanceBouncy,
		Mode:         ModeMajor,
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, bandit.UpdateForSong(liked, RewardListen90Plus))
	}

	profile, err := GenerateTasteProfile(bandit)
	require.NoError(t, err)
	assert.Equal(t, liked, profile.TopArms)
	assert.Contains(t, profile.Summary, "Energetic")
	assert.Contains(t, profile.Summary, "Fast")

	encoded, err := EncodeTasteProfile(profile)
	require.NoError(t, err)

	decoded, err := DecodeTasteProfile(encoded)
	require.NoError(t, err)
	assert.Equal(t, profile, decoded)
}

func TestDecodeTasteProfile_RejectsGarbage(t *testing.T) {
	_, err := DecodeTasteProfile("!!! not base64 !!!")
	assert.Error(t, err)

	_, err = DecodeTasteProfile("bm90IGpzb24=") // "not json"
	assert.Error(t, err)

	// valid JSON, wrong shape
	_, err = DecodeTasteProfile("e30=") // "{}"
	assert.Error(t, err)
}
