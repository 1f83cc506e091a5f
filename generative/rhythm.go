package generative

import (
	"fmt"
	"math/rand"

	"seedtone/preferences"
)

// Kick slot markers. A main slot fires with high probability, a ghost
// slot only when the groove calls for emphasis.
type KickSlot int

const (
	KickRest KickSlot = iota
	KickMain
	KickGhost
)

// KickPattern is the boom-bap kick grid, one slot per 8th note over two
// bars.
var KickPattern = []KickSlot{
	KickMain, KickRest, KickRest, KickRest,
	KickRest, KickRest, KickRest, KickMain,
	KickMain, KickRest, KickGhost, KickRest,
	KickRest, KickRest, KickRest, KickRest,
}

// SnarePattern is the backbeat, one slot per half note
var SnarePattern = []bool{false, true}

// KickProbability returns the chance a kick slot fires given the groove's
// kick emphasis.
func KickProbability(slot KickSlot, emphasis float64) float64 {
	switch slot {
	case KickMain:
		return 0.6 + emphasis*0.35
	case KickGhost:
		return emphasis * 0.15
	default:
		return 0
	}
}

// SnareProbability is the chance a backbeat snare fires
func SnareProbability() float64 {
	return 0.8
}

// HatProbability returns the chance a hat slot fires given the groove's
// hi-hat activity.
func HatProbability(activity float64) float64 {
	return 0.5 + activity*0.4
}

// DrumVoice identifies one drum instrument
type DrumVoice string

const (
	VoiceKick  DrumVoice = "kick"
	VoiceSnare DrumVoice = "snare"
	VoiceHihat DrumVoice = "hihat"
)

// DrumHit is one scheduled drum strike on a 16th-note grid
type DrumHit struct {
	Voice    DrumVoice
	Bar      int
	Step     int // 16th within the bar, 0..15
	Velocity float64
}

// DrumPattern is a named one-or-more-bar drum figure
type DrumPattern struct {
	Name       string
	Hits       []DrumHit
	LengthBars int
}

func buildPattern(name string, kicks, snares, hats []int) DrumPattern {
	var hits []DrumHit
	for _, step := range kicks {
		hits = append(hits, DrumHit{Voice: VoiceKick, Step: step, Velocity: 0.9})
	}
	for _, step := range snares {
		hits = append(hits, DrumHit{Voice: VoiceSnare, Step: step, Velocity: 0.8})
	}
	for _, step := range hats {
		hits = append(hits, DrumHit{Voice: VoiceHihat, Step: step, Velocity: 0.8})
	}
	return DrumPattern{Name: name, Hits: hits, LengthBars: 1}
}

// groovePatterns pools the named figures per groove style
var groovePatterns = map[preferences.DanceabilityArm][]DrumPattern{
	preferences.DanceChill: {
		buildPattern("chill-lofi", []int{0, 7, 8}, []int{4, 12}, []int{0, 4, 8, 12}),
		buildPattern("chill-simple", []int{0, 8}, []int{4, 12}, []int{0, 4, 8, 12}),
	},
	preferences.DanceGroovy: {
		buildPattern("groovy-lofi", []int{0, 7, 8}, []int{4, 12}, []int{0, 2, 4, 6, 8, 10, 12, 14}),
		buildPattern("groovy-sync", []int{0, 6, 8}, []int{4, 12}, []int{0, 2, 4, 6, 8, 10, 12, 14}),
	},
	preferences.DanceBouncy: {
		buildPattern("bouncy-active", []int{0, 4, 7, 8, 12}, []int{4, 12}, []int{0, 2, 4, 6, 8, 10, 12, 14}),
		buildPattern("bouncy-drive", []int{0, 6, 8, 14}, []int{4, 12}, []int{0, 2, 4, 6, 8, 10, 12, 14}),
	},
}

// energyVelocity scales hit velocities per energy level
var energyVelocity = map[preferences.EnergyArm]float64{
	preferences.EnergyLow:    0.75,
	preferences.EnergyMedium: 0.9,
	preferences.EnergyHigh:   1.0,
}

// energyHatDensity thins off-beat hats per energy level
var energyHatDensity = map[preferences.EnergyArm]float64{
	preferences.EnergyLow:    0.5,
	preferences.EnergyMedium: 0.75,
	preferences.EnergyHigh:   1.0,
}

// GenerateDrumPattern picks a figure from the groove's pool and shapes it
// to the energy level: velocities scale down and off-beat hats thin out
// as energy drops. Downbeat hats always survive.
func GenerateDrumPattern(rng *rand.Rand, groove preferences.DanceabilityArm, energy preferences.EnergyArm) (DrumPattern, error) {
	pool, ok := groovePatterns[groove]
	if !ok {
		return DrumPattern{}, fmt.Errorf("unknown groove style %q", groove)
	}
	velocityMult, ok := energyVelocity[energy]
	if !ok {
		return DrumPattern{}, fmt.Errorf("unknown energy level %q", energy)
	}
	hatDensity := energyHatDensity[energy]

	base := pool[rng.Intn(len(pool))]
	shaped := DrumPattern{Name: base.Name, LengthBars: base.LengthBars}

	for _, hit := range base.Hits {
		if hit.Voice == VoiceHihat && hit.Step%4 != 0 && rng.Float64() >= hatDensity {
			continue
		}
		hit.Velocity *= velocityMult
		shaped.Hits = append(shaped.Hits, hit)
	}

	return shaped, nil
}

// ExtendPattern tiles a pattern across the given number of bars
func ExtendPattern(pattern DrumPattern, bars int) DrumPattern {
	extended := DrumPattern{
		Name:       fmt.Sprintf("%s-x%d", pattern.Name, bars),
		LengthBars: bars,
	}
	for bar := 0; bar < bars; bar++ {
		for _, hit := range pattern.Hits {
			hit.Bar = bar
			extended.Hits = append(extended.Hits, hit)
		}
	}
	return extended
}
