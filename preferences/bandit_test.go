package preferences

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleBeta_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := SampleBeta(rng, 2, 3)
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestSampleBeta_Skew(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	mean := func(alpha, beta float64) float64 {
		var sum float64
		for i := 0; i < 500; i++ {
			sum += SampleBeta(rng, alpha, beta)
		}
		return sum / 500
	}

	assert.Greater(t, mean(50, 1), 0.8, "Beta(50,1) should concentrate near 1")
	assert.Less(t, mean(1, 50), 0.2, "Beta(1,50) should concentrate near 0")

	m := mean(10, 10)
	assert.Greater(t, m, 0.35)
	assert.Less(t, m, 0.65)
}

func TestSelectArm_ExploitsStrongPosterior(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	arms := map[EnergyArm]ArmDistribution{
		EnergyLow:    {Alpha: 100, Beta: 1},
		EnergyMedium: {Alpha: 1, Beta: 100},
		EnergyHigh:   {Alpha: 1, Beta: 100},
	}

	for i := 0; i < 100; i++ {
		picked, err := SelectArm(rng, arms, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, EnergyLow, picked)
	}
}

func TestSelectArm_FullExplorationCoversAllArms(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	arms := map[EnergyArm]ArmDistribution{
		EnergyLow:    {Alpha: 100, Beta: 1},
		EnergyMedium: {Alpha: 1, Beta: 100},
		EnergyHigh:   {Alpha: 1, Beta: 100},
	}

	counts := map[EnergyArm]int{}
	for i := 0; i < 300; i++ {
		picked, err := SelectArm(rng, arms, nil, 1)
		require.NoError(t, err)
		counts[picked]++
	}

	for _, arm := range EnergyArms {
		assert.Greater(t, counts[arm], 30, "arm %s should be picked often under full exploration", arm)
	}
}

func TestSelectArm_RespectsAllowedSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	arms := DefaultArmState().Tempo
	allowed := []TempoArm{Tempo80, Tempo90}

	for i := 0; i < 50; i++ {
		picked, err := SelectArm(rng, arms, allowed, 0.5)
		require.NoError(t, err)
		assert.Contains(t, allowed, picked)
	}
}

func TestSelectArm_EmptyCandidatesErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(6))

	_, err := SelectArm(rng, DefaultArmState().Tempo, []TempoArm{"nonsense"}, 0.5)
	assert.Error(t, err)

	_, err = SelectArm(rng, map[ModeArm]ArmDistribution{}, nil, 0.5)
	assert.Error(t, err)
}

func TestUpdateArmDist(t *testing.T) {
	tests := []struct {
		name      string
		start     ArmDistribution
		reward    float64
		wantAlpha float64
		wantBeta  float64
	}{
		{name: "positive adds to alpha", start: ArmDistribution{Alpha: 1, Beta: 1}, reward: 1.0, wantAlpha: 2, wantBeta: 1},
		{name: "partial positive", start: ArmDistribution{Alpha: 2, Beta: 1}, reward: 0.3, wantAlpha: 2.3, wantBeta: 1},
		{name: "negative adds magnitude to beta", start: ArmDistribution{Alpha: 1, Beta: 1}, reward: -0.5, wantAlpha: 1, wantBeta: 1.5},
		{name: "strong negative", start: ArmDistribution{Alpha: 3, Beta: 1}, reward: -1.5, wantAlpha: 3, wantBeta: 2.5},
		{name: "zero is a no-op", start: ArmDistribution{Alpha: 2, Beta: 3}, reward: 0, wantAlpha: 2, wantBeta: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpdateArmDist(tt.start, tt.reward)
			assert.InDelta(t, tt.wantAlpha, got.Alpha, 1e-9)
			assert.InDelta(t, tt.wantBeta, got.Beta, 1e-9)
		})
	}
}

func TestUpdateArmDist_DoesNotMutateInput(t *testing.T) {
	start := ArmDistribution{Alpha: 1, Beta: 1}
	_ = UpdateArmDist(start, 1.5)
	assert.Equal(t, ArmDistribution{Alpha: 1, Beta: 1}, start)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore("")
	require.NoError(t, err)
	return store
}

func TestBandit_UpdateForSongShiftsPosterior(t *testing.T) {
	store := newTestStore(t)
	bandit := NewBandit(store, "")

	params := DefaultParams()
	require.NoError(t, bandit.UpdateForSong(params, 1.0))

	state, err := store.ArmState(DefaultContext)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, state.Tempo[TempoFocus].Alpha, 1e-9)
	assert.InDelta(t, 3.0, state.Energy[EnergyLow].Alpha, 1e-9)

	// untouched dimensions keep their priors
	assert.Equal(t, DefaultArmState().Tempo[Tempo90], state.Tempo[Tempo90])
}

func TestBandit_UpdateForSongRejectsUnknownArm(t *testing.T) {
	bandit := NewBandit(newTestStore(t), "")

	params := DefaultParams()
	params.Tempo = "allegro"
	assert.Error(t, bandit.UpdateForSong(params, 1.0))
}

func TestBandit_Convergence(t *testing.T) {
	store := newTestStore(t)
	bandit := NewBandit(store, "")
	bandit.rng = rand.New(rand.NewSource(7))

	// simulate a listener who finishes every high-energy song and skips
	// everything else
	for i := 0; i < 200; i++ {
		params, err := bandit.SelectParams(nil, 0.2)
		require.NoError(t, err)

		reward := RewardSkipUnder10Sec
		if params.Energy == EnergyHigh {
			reward = RewardListen90Plus
		}
		require.NoError(t, bandit.UpdateForSong(params, reward))
	}

	best, err := bandit.BestParams()
	require.NoError(t, err)
	assert.Equal(t, EnergyHigh, best.Energy)

	ratio, err := bandit.ExploitationRatio()
	require.NoError(t, err)
	assert.Greater(t, ratio, 0.3, "confidence should rise with evidence")
}

func TestBandit_ExploitationRatioStartsLow(t *testing.T) {
	bandit := NewBandit(newTestStore(t), "")

	ratio, err := bandit.ExploitationRatio()
	require.NoError(t, err)
	assert.Less(t, ratio, 0.2, "fresh priors carry little evidence")
}

func TestBandit_Reset(t *testing.T) {
	store := newTestStore(t)
	bandit := NewBandit(store, "")

	require.NoError(t, bandit.UpdateForSong(DefaultParams(), 1.5))
	require.NoError(t, bandit.Reset())

	state, err := store.ArmState(DefaultContext)
	require.NoError(t, err)
	assert.Equal(t, DefaultArmState(), state)
}

func TestAllowedTempoArms(t *testing.T) {
	tests := []struct {
		name   string
		min    float64
		max    float64
		expect []TempoArm
	}{
		{name: "full range", min: 60, max: 102, expect: TempoArms},
		{name: "slow window", min: 60, max: 75, expect: []TempoArm{TempoFocus, Tempo60}},
		{name: "fast window", min: 90, max: 102, expect: []TempoArm{Tempo80, Tempo90}},
		{name: "below everything falls back to focus", min: 20, max: 50, expect: []TempoArm{TempoFocus}},
		{name: "above everything falls back to fastest", min: 150, max: 200, expect: []TempoArm{Tempo90}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, AllowedTempoArms(tt.min, tt.max))
		})
	}
}

func TestDefaultArmState_FavorsSlowChill(t *testing.T) {
	state := DefaultArmState()

	assert.Greater(t, state.Tempo[TempoFocus].Mean(), state.Tempo[Tempo90].Mean())
	assert.Greater(t, state.Energy[EnergyLow].Mean(), state.Energy[EnergyHigh].Mean())
	assert.Greater(t, state.Danceability[DanceChill].Mean(), state.Danceability[DanceBouncy].Mean())
	assert.Equal(t, state.Mode[ModeMajor], state.Mode[ModeMinor])
}
