package generative

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedtone/preferences"
)

func TestComputeTempoParams_BandAndMultiplier(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		arm    preferences.TempoArm
		minBPM int
		maxBPM int
	}{
		{arm: preferences.TempoFocus, minBPM: 120, maxBPM: 144},
		{arm: preferences.Tempo60, minBPM: 140, maxBPM: 156},
		{arm: preferences.Tempo90, minBPM: 188, maxBPM: 204},
	}

	for _, tt := range tests {
		t.Run(string(tt.arm), func(t *testing.T) {
			for i := 0; i < 25; i++ {
				params, err := ComputeTempoParams(rng, tt.arm)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, params.BPM, tt.minBPM)
				assert.LessOrEqual(t, params.BPM, tt.maxBPM)
			}
		})
	}
}

func TestComputeTempoParams_UnknownArm(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	_, err := ComputeTempoParams(rng, "prestissimo")
	assert.Error(t, err)
}

func TestComputeEnergyParams(t *testing.T) {
	low, err := ComputeEnergyParams(preferences.EnergyLow)
	require.NoError(t, err)
	assert.True(t, low.KickOff, "two instruments drop the kick")
	assert.True(t, low.SnareOff, "two instruments drop the snare")
	assert.InDelta(t, 0.6, low.Velocity, 1e-9)
	assert.InDelta(t, 0.3, low.MelodyDensity, 1e-9)

	medium, err := ComputeEnergyParams(preferences.EnergyMedium)
	require.NoError(t, err)
	assert.False(t, medium.KickOff)
	assert.True(t, medium.SnareOff, "the snare needs four instruments")

	high, err := ComputeEnergyParams(preferences.EnergyHigh)
	require.NoError(t, err)
	assert.False(t, high.KickOff)
	assert.False(t, high.SnareOff)
	assert.InDelta(t, 0.9, high.Velocity, 1e-9)

	_, err = ComputeEnergyParams("extreme")
	assert.Error(t, err)
}

func TestComputeDanceabilityParams(t *testing.T) {
	chill, err := ComputeDanceabilityParams(preferences.DanceChill)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, chill.Swing, 1e-9)

	bouncy, err := ComputeDanceabilityParams(preferences.DanceBouncy)
	require.NoError(t, err)
	assert.Greater(t, bouncy.Swing, chill.Swing)
	assert.Greater(t, bouncy.KickEmphasis, chill.KickEmphasis)
	assert.Greater(t, bouncy.HihatActivity, chill.HihatActivity)

	_, err = ComputeDanceabilityParams("stomping")
	assert.Error(t, err)
}

func TestComputeValenceParams(t *testing.T) {
	sad, err := ComputeValenceParams(preferences.ValenceSad)
	require.NoError(t, err)
	assert.True(t, sad.PreferMinor)

	happy, err := ComputeValenceParams(preferences.ValenceHappy)
	require.NoError(t, err)
	assert.False(t, happy.PreferMinor)

	_, err = ComputeValenceParams("euphoric")
	assert.Error(t, err)
}
