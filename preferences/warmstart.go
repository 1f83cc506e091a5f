package preferences

import "fmt"

// Onboarding answer values
const (
	PreferSlower    = "slower"
	PreferFaster    = "faster"
	PreferChill     = "chill"
	PreferEnergetic = "energetic"
)

// OnboardingPreferences captures the two onboarding answers
type OnboardingPreferences struct {
	Tempo  string `json:"tempo"`  // slower | faster
	Energy string `json:"energy"` // chill | energetic
}

const warmStartBoost = 3

// ApplyWarmStart seeds a fresh ArmState boosted toward the onboarding
// answers and persists it, replacing whatever was stored for the context.
func ApplyWarmStart(store *Store, contextID string, prefs OnboardingPreferences) error {
	if contextID == "" {
		contextID = DefaultContext
	}
	state := DefaultArmState()

	switch prefs.Tempo {
	case PreferSlower:
		state.Tempo[TempoFocus] = boost(state.Tempo[TempoFocus], warmStartBoost)
		state.Tempo[Tempo60] = boost(state.Tempo[Tempo60], warmStartBoost-1)
	case PreferFaster:
		state.Tempo[Tempo90] = boost(state.Tempo[Tempo90], warmStartBoost)
		state.Tempo[Tempo80] = boost(state.Tempo[Tempo80], warmStartBoost-1)
	default:
		return fmt.Errorf("unknown tempo preference %q", prefs.Tempo)
	}

	switch prefs.Energy {
	case PreferChill:
		state.Energy[EnergyLow] = boost(state.Energy[EnergyLow], warmStartBoost)
		state.Danceability[DanceChill] = boost(state.Danceability[DanceChill], warmStartBoost)
	case PreferEnergetic:
		state.Energy[EnergyHigh] = boost(state.Energy[EnergyHigh], warmStartBoost)
		state.Danceability[DanceGroovy] = boost(state.Danceability[DanceGroovy], warmStartBoost-1)
		state.Danceability[DanceBouncy] = boost(state.Danceability[DanceBouncy], warmStartBoost-1)
	default:
		return fmt.Errorf("unknown energy preference %q", prefs.Energy)
	}

	return store.SaveArmState(contextID, state)
}

func boost(d ArmDistribution, amount float64) ArmDistribution {
	return ArmDistribution{Alpha: d.Alpha + amount, Beta: d.Beta}
}
