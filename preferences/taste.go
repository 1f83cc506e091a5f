package preferences

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// TasteProfile is a shareable snapshot of the learned top preferences
type TasteProfile struct {
	Version int              `json:"version"`
	TopArms GenerationParams `json:"topArms"`
	Summary string           `json:"summary"`
}

var tempoLabels = map[TempoArm]string{
	TempoFocus: "Slow",
	Tempo60:    "Relaxed",
	Tempo70:    "Medium",
	Tempo80:    "Upbeat",
	Tempo90:    "Fast",
}

var energyLabels = map[EnergyArm]string{
	EnergyLow:    "Chill",
	EnergyMedium: "Moderate",
	EnergyHigh:   "Energetic",
}

var valenceLabels = map[ValenceArm]string{
	ValenceSad:     "Melancholic",
	ValenceNeutral: "Balanced",
	ValenceHappy:   "Uplifting",
}

var danceLabels = map[DanceabilityArm]string{
	DanceChill:  "Laid-back",
	DanceGroovy: "Groovy",
	DanceBouncy: "Bouncy",
}

// GenerateTasteProfile builds a profile from the bandit's current best arms
func GenerateTasteProfile(bandit *Bandit) (*TasteProfile, error) {
	top, err := bandit.BestParams()
	if err != nil {
		return nil, err
	}
	return &TasteProfile{
		Version: 1,
		TopArms: top,
		Summary: summarize(top),
	}, nil
}

func summarize(p GenerationParams) string {
	mode := "Major"
	if p.Mode == ModeMinor {
		mode = "Minor"
	}
	parts := []string{
		energyLabels[p.Energy],
		valenceLabels[p.Valence],
		tempoLabels[p.Tempo],
		danceLabels[p.Danceability],
		mode,
	}
	return strings.Join(parts, ", ")
}

// EncodeTasteProfile serializes a profile to a compact shareable string
func EncodeTasteProfile(profile *TasteProfile) (string, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeTasteProfile parses an encoded profile, rejecting malformed or
// unversioned input.
func DecodeTasteProfile(encoded string) (*TasteProfile, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("taste profile is not valid base64: %w", err)
	}
	var profile TasteProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("taste profile is not valid JSON: %w", err)
	}
	if profile.Version != 1 || profile.Summary == "" {
		return nil, fmt.Errorf("taste profile has unsupported shape")
	}
	if err := profile.TopArms.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}
