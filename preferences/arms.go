package preferences

import "fmt"

// TempoArm is a selectable tempo band
type TempoArm string

const (
	TempoFocus TempoArm = "focus"
	Tempo60    TempoArm = "60-70"
	Tempo70    TempoArm = "70-80"
	Tempo80    TempoArm = "80-90"
	Tempo90    TempoArm = "90-100"
)

// EnergyArm is a selectable energy level
type EnergyArm string

const (
	EnergyLow    EnergyArm = "low"
	EnergyMedium EnergyArm = "medium"
	EnergyHigh   EnergyArm = "high"
)

// ValenceArm is a selectable mood
type ValenceArm string

const (
	ValenceSad     ValenceArm = "sad"
	ValenceNeutral ValenceArm = "neutral"
	ValenceHappy   ValenceArm = "happy"
)

// DanceabilityArm is a selectable groove style
type DanceabilityArm string

const (
	DanceChill  DanceabilityArm = "chill"
	DanceGroovy DanceabilityArm = "groovy"
	DanceBouncy DanceabilityArm = "bouncy"
)

// ModeArm is major or minor
type ModeArm string

const (
	ModeMajor ModeArm = "major"
	ModeMinor ModeArm = "minor"
)

// TempoArms lists all tempo arms in canonical order
var TempoArms = []TempoArm{TempoFocus, Tempo60, Tempo70, Tempo80, Tempo90}

// EnergyArms lists all energy arms in canonical order
var EnergyArms = []EnergyArm{EnergyLow, EnergyMedium, EnergyHigh}

// ValenceArms lists all valence arms in canonical order
var ValenceArms = []ValenceArm{ValenceSad, ValenceNeutral, ValenceHappy}

// DanceabilityArms lists all danceability arms in canonical order
var DanceabilityArms = []DanceabilityArm{DanceChill, DanceGroovy, DanceBouncy}

// ModeArms lists all mode arms in canonical order
var ModeArms = []ModeArm{ModeMajor, ModeMinor}

// ArmDistribution holds the Beta posterior parameters for one arm.
// Both alpha and beta stay strictly positive: defaults seed at >= 1 and
// updates only ever add non-negative magnitudes.
type ArmDistribution struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// Mean returns the posterior mean alpha/(alpha+beta)
func (d ArmDistribution) Mean() float64 {
	return d.Alpha / (d.Alpha + d.Beta)
}

// ArmState holds the Beta posteriors for every arm in every dimension
type ArmState struct {
	Tempo        map[TempoArm]ArmDistribution        `json:"tempo"`
	Energy       map[EnergyArm]ArmDistribution       `json:"energy"`
	Valence      map[ValenceArm]ArmDistribution      `json:"valence"`
	Danceability map[DanceabilityArm]ArmDistribution `json:"danceability"`
	Mode         map[ModeArm]ArmDistribution         `json:"mode"`
}

// GenerationParams is one arm per dimension, chosen once per song
type GenerationParams struct {
	Tempo        TempoArm        `json:"tempo"`
	Energy       EnergyArm       `json:"energy"`
	Valence      ValenceArm      `json:"valence"`
	Danceability DanceabilityArm `json:"danceability"`
	Mode         ModeArm         `json:"mode"`
}

// DefaultParams returns the conservative first-song parameters
func DefaultParams() GenerationParams {
	return GenerationParams{
		Tempo:        TempoFocus,
		Energy:       EnergyLow,
		Valence:      ValenceNeutral,
		Danceability: DanceChill,
		Mode:         ModeMinor,
	}
}

// Validate checks every arm label against its closed set
func (p GenerationParams) Validate() error {
	switch p.Tempo {
	case TempoFocus, Tempo60, Tempo70, Tempo80, Tempo90:
	default:
		return fmt.Errorf("unknown tempo arm %q", p.Tempo)
	}
	switch p.Energy {
	case EnergyLow, EnergyMedium, EnergyHigh:
	default:
		return fmt.Errorf("unknown energy arm %q", p.Energy)
	}
	switch p.Valence {
	case ValenceSad, ValenceNeutral, ValenceHappy:
	default:
		return fmt.Errorf("unknown valence arm %q", p.Valence)
	}
	switch p.Danceability {
	case DanceChill, DanceGroovy, DanceBouncy:
	default:
		return fmt.Errorf("unknown danceability arm %q", p.Danceability)
	}
	switch p.Mode {
	case ModeMajor, ModeMinor:
	default:
		return fmt.Errorf("unknown mode arm %q", p.Mode)
	}
	return nil
}

// Reward weights applied by the feedback tracker
const (
	RewardListen90Plus    = 1.0
	RewardListen50To90    = 0.3
	RewardListenUnder30   = -0.5
	RewardSkipUnder10Sec  = -1.0
	RewardExplicitLike    = 1.5
	RewardExplicitDislike = -1.5
	RewardSessionBonus    = 0.5
)

// DefaultArmState returns the informative priors. Slower tempo, lower
// energy and chill grooves start ahead, encoding the typical first-time
// lofi preference. Warm start can boost these further.
func DefaultArmState() *ArmState {
	return &ArmState{
		Tempo: map[TempoArm]ArmDistribution{
			TempoFocus: {Alpha: 3, Beta: 1},
			Tempo60:    {Alpha: 2, Beta: 1},
			Tempo70:    {Alpha: 1, Beta: 1},
			Tempo80:    {Alpha: 1, Beta: 1.5},
			Tempo90:    {Alpha: 1, Beta: 2},
		},
		Energy: map[EnergyArm]ArmDistribution{
			EnergyLow:    {Alpha: 2, Beta: 1},
			EnergyMedium: {Alpha: 2, Beta: 1},
			EnergyHigh:   {Alpha: 1, Beta: 1.5},
		},
		Valence: map[ValenceArm]ArmDistribution{
			ValenceSad:     {Alpha: 1, Beta: 1},
			ValenceNeutral: {Alpha: 1, Beta: 1},
			ValenceHappy:   {Alpha: 1, Beta: 1},
		},
		Danceability: map[DanceabilityArm]ArmDistribution{
			DanceChill:  {Alpha: 2, Beta: 1},
			DanceGroovy: {Alpha: 1.5, Beta: 1},
			DanceBouncy: {Alpha: 1, Beta: 1.5},
		},
		Mode: map[ModeArm]ArmDistribution{
			ModeMajor: {Alpha: 1, Beta: 1},
			ModeMinor: {Alpha: 1, Beta: 1},
		},
	}
}

// TempoRange is a BPM band for one tempo arm
type TempoRange struct {
	Min float64
	Max float64
}

// TempoRanges maps each tempo arm to its pre-multiplier BPM band
var TempoRanges = map[TempoArm]TempoRange{
	TempoFocus: {Min: 60, Max: 72},
	Tempo60:    {Min: 70, Max: 78},
	Tempo70:    {Min: 78, Max: 86},
	Tempo80:    {Min: 86, Max: 94},
	Tempo90:    {Min: 94, Max: 102},
}

// EnergyProfile holds the synthesis knobs for an energy arm
type EnergyProfile struct {
	Velocity    float64
	Density     float64
	Instruments int
}

// EnergyProfiles maps each energy arm to its profile. Instrument counts
// below 3 drop the kick, below 4 drop the snare.
var EnergyProfiles = map[EnergyArm]EnergyProfile{
	EnergyLow:    {Velocity: 0.6, Density: 0.3, Instruments: 2},
	EnergyMedium: {Velocity: 0.75, Density: 0.5, Instruments: 3},
	EnergyHigh:   {Velocity: 0.9, Density: 0.7, Instruments: 4},
}

// ValenceProfile holds the harmonic leanings of a valence arm
type ValenceProfile struct {
	UseMinor   bool
	Extensions []string
}

// ValenceProfiles maps each valence arm to its profile
var ValenceProfiles = map[ValenceArm]ValenceProfile{
	ValenceSad:     {UseMinor: true, Extensions: []string{"7", "m7", "dim7"}},
	ValenceNeutral: {UseMinor: false, Extensions: []string{"7", "maj7"}},
	ValenceHappy:   {UseMinor: false, Extensions: []string{"maj7", "6", "add9"}},
}

// DanceabilityProfile holds the groove knobs of a danceability arm
type DanceabilityProfile struct {
	Swing         float64
	KickEmphasis  float64
	HihatActivity float64
}

// DanceabilityProfiles maps each danceability arm to its profile
var DanceabilityProfiles = map[DanceabilityArm]DanceabilityProfile{
	DanceChill:  {Swing: 0.45, KickEmphasis: 0.5, HihatActivity: 0.3},
	DanceGroovy: {Swing: 0.55, KickEmphasis: 0.65, HihatActivity: 0.5},
	DanceBouncy: {Swing: 0.65, KickEmphasis: 0.8, HihatActivity: 0.7},
}

// AllowedTempoArms filters the tempo arms to those overlapping a
// user-configured BPM window. An empty overlap falls back to the nearest
// single arm so selection always has a candidate.
func AllowedTempoArms(bpmMin, bpmMax float64) []TempoArm {
	var arms []TempoArm

	if bpmMin <= 72 && bpmMax >= 60 {
		arms = append(arms, TempoFocus)
	}
	if bpmMin <= 78 && bpmMax >= 70 {
		arms = append(arms, Tempo60)
	}
	if bpmMin <= 86 && bpmMax >= 78 {
		arms = append(arms, Tempo70)
	}
	if bpmMin <= 94 && bpmMax >= 86 {
		arms = append(arms, Tempo80)
	}
	if bpmMin <= 102 && bpmMax >= 94 {
		arms = append(arms, Tempo90)
	}

	if len(arms) == 0 {
		if bpmMax < 72 {
			return []TempoArm{TempoFocus}
		}
		if bpmMin > 94 {
			return []TempoArm{Tempo90}
		}
		return []TempoArm{Tempo70}
	}

	return arms
}
