package generative

import (
	"fmt"
	"math/rand"

	"seedtone/preferences"
)

// bpmMultiplier doubles the felt tempo so heavy swing lands right.
// A felt 78 BPM runs the transport at 156.
const bpmMultiplier = 2

// TempoParams is the transport tempo derived from a tempo arm
type TempoParams struct {
	BPM int
}

// EnergyParams shapes how busy and loud the arrangement is
type EnergyParams struct {
	MelodyDensity float64
	Velocity      float64
	KickOff       bool
	SnareOff      bool
}

// DanceabilityParams shapes the groove feel
type DanceabilityParams struct {
	Swing         float64
	KickEmphasis  float64
	HihatActivity float64
}

// ValenceParams shapes the harmonic mood
type ValenceParams struct {
	PreferMinor bool
}

// ComputeTempoParams picks a BPM uniformly inside the arm's band, scaled
// by the swing multiplier.
func ComputeTempoParams(rng *rand.Rand, arm preferences.TempoArm) (TempoParams, error) {
	band, ok := preferences.TempoRanges[arm]
	if !ok {
		return TempoParams{}, fmt.Errorf("unknown tempo arm %q", arm)
	}
	target := band.Min + rng.Float64()*(band.Max-band.Min)
	return TempoParams{BPM: int(target*bpmMultiplier + 0.5)}, nil
}

// ComputeEnergyParams maps an energy arm to its arrangement knobs. Low
// instrument counts mute the kick first, then the snare.
func ComputeEnergyParams(arm preferences.EnergyArm) (EnergyParams, error) {
	profile, ok := preferences.EnergyProfiles[arm]
	if !ok {
		return EnergyParams{}, fmt.Errorf("unknown energy arm %q", arm)
	}
	return EnergyParams{
		MelodyDensity: profile.Density,
		Velocity:      profile.Velocity,
		KickOff:       profile.Instruments < 3,
		SnareOff:      profile.Instruments < 4,
	}, nil
}

// ComputeDanceabilityParams maps a danceability arm to its groove knobs
func ComputeDanceabilityParams(arm preferences.DanceabilityArm) (DanceabilityParams, error) {
	profile, ok := preferences.DanceabilityProfiles[arm]
	if !ok {
		return DanceabilityParams{}, fmt.Errorf("unknown danceability arm %q", arm)
	}
	return DanceabilityParams{
		Swing:         profile.Swing,
		KickEmphasis:  profile.KickEmphasis,
		HihatActivity: profile.HihatActivity,
	}, nil
}

// ComputeValenceParams maps a valence arm to its harmonic leaning
func ComputeValenceParams(arm preferences.ValenceArm) (ValenceParams, error) {
	profile, ok := preferences.ValenceProfiles[arm]
	if !ok {
		return ValenceParams{}, fmt.Errorf("unknown valence arm %q", arm)
	}
	return ValenceParams{PreferMinor: profile.UseMinor}, nil
}
