package preferences

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	log "github.com/sirupsen/logrus"
)

// gammaVariate draws from a Gamma(shape, 1) distribution using the
// Marsaglia-Tsang squeeze method. Shapes below 1 are boosted to shape+1
// and corrected with a power of a uniform draw.
func gammaVariate(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		return gammaVariate(rng, 1+shape) * math.Pow(rng.Float64(), 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)

	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}

		v = v * v * v
		u := rng.Float64()

		if u < 1-0.0331*(x*x)*(x*x) {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// SampleBeta draws from Beta(alpha, beta) as x/(x+y) of two independent
// gamma draws, avoiding any incomplete-beta inverse.
func SampleBeta(rng *rand.Rand, alpha, beta float64) float64 {
	x := gammaVariate(rng, alpha)
	y := gammaVariate(rng, beta)
	return x / (x + y)
}

// SelectArm picks one arm by Thompson Sampling blended with an exploration
// bias. Bias >= 1 scores every arm with a uniform draw, bias <= 0 scores
// with the posterior mean, and anything between mixes a Thompson sample
// with a uniform draw. The highest score wins; ties go to the first arm
// in canonical order. An allowed subset that matches nothing is a caller
// bug and returns an error.
func SelectArm[T ~string](rng *rand.Rand, arms map[T]ArmDistribution, allowed []T, explorationBias float64) (T, error) {
	var zero T

	names := make([]T, 0, len(arms))
	for name := range arms {
		if allowed != nil && !containsArm(allowed, name) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return zero, fmt.Errorf("no allowed arms: allowed=%v available=%v", allowed, armKeys(arms))
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	best := zero
	bestScore := -1.0

	for _, name := range names {
		dist := arms[name]
		var score float64

		switch {
		case explorationBias >= 1:
			score = rng.Float64()
		case explorationBias <= 0:
			score = dist.Mean()
		default:
			thompson := SampleBeta(rng, dist.Alpha, dist.Beta)
			score = (1-explorationBias)*thompson + explorationBias*rng.Float64()
		}

		if score > bestScore {
			bestScore = score
			best = name
		}
	}

	return best, nil
}

func containsArm[T ~string](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func armKeys[T ~string](arms map[T]ArmDistribution) []T {
	keys := make([]T, 0, len(arms))
	for k := range arms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// UpdateArmDist applies a reward to a posterior. Positive rewards add
// their magnitude to alpha, negative to beta, zero is a no-op. The
// magnitude-scaled update (rather than unit pseudo-counts) is deliberate:
// stronger signals shift the posterior further. The input is returned by
// value, never mutated.
func UpdateArmDist(dist ArmDistribution, reward float64) ArmDistribution {
	if reward > 0 {
		return ArmDistribution{Alpha: dist.Alpha + reward, Beta: dist.Beta}
	}
	if reward < 0 {
		return ArmDistribution{Alpha: dist.Alpha, Beta: dist.Beta + math.Abs(reward)}
	}
	return dist
}

// Bandit runs five parallel single-dimension learners over one context's
// ArmState, persisting through a Store.
type Bandit struct {
	store   *Store
	rng     *rand.Rand
	context string
}

// NewBandit creates a bandit for the given context (profile) id. An empty
// context uses the default.
func NewBandit(store *Store, contextID string) *Bandit {
	if contextID == "" {
		contextID = DefaultContext
	}
	return &Bandit{
		store:   store,
		rng:     rand.New(rand.NewSource(rand.Int63())),
		context: contextID,
	}
}

// SelectParams chooses one arm per dimension with a shared exploration
// bias. Tempo arms may be restricted to a user BPM window.
func (b *Bandit) SelectParams(allowedTempo []TempoArm, explorationBias float64) (GenerationParams, error) {
	state, err := b.store.ArmState(b.context)
	if err != nil {
		return GenerationParams{}, err
	}

	tempo, err := SelectArm(b.rng, state.Tempo, allowedTempo, explorationBias)
	if err != nil {
		return GenerationParams{}, err
	}
	energy, err := SelectArm(b.rng, state.Energy, nil, explorationBias)
	if err != nil {
		return GenerationParams{}, err
	}
	valence, err := SelectArm(b.rng, state.Valence, nil, explorationBias)
	if err != nil {
		return GenerationParams{}, err
	}
	dance, err := SelectArm(b.rng, state.Danceability, nil, explorationBias)
	if err != nil {
		return GenerationParams{}, err
	}
	mode, err := SelectArm(b.rng, state.Mode, nil, explorationBias)
	if err != nil {
		return GenerationParams{}, err
	}

	return GenerationParams{
		Tempo:        tempo,
		Energy:       energy,
		Valence:      valence,
		Danceability: dance,
		Mode:         mode,
	}, nil
}

// UpdateForSong applies one scalar reward to the five arms a song used
func (b *Bandit) UpdateForSong(params GenerationParams, reward float64) error {
	if err := params.Validate(); err != nil {
		return err
	}

	state, err := b.store.ArmState(b.context)
	if err != nil {
		return err
	}

	state.Tempo[params.Tempo] = UpdateArmDist(state.Tempo[params.Tempo], reward)
	state.Energy[params.Energy] = UpdateArmDist(state.Energy[params.Energy], reward)
	state.Valence[params.Valence] = UpdateArmDist(state.Valence[params.Valence], reward)
	state.Danceability[params.Danceability] = UpdateArmDist(state.Danceability[params.Danceability], reward)
	state.Mode[params.Mode] = UpdateArmDist(state.Mode[params.Mode], reward)

	log.WithFields(log.Fields{
		"reward": reward,
		"tempo":  params.Tempo,
		"energy": params.Energy,
	}).Debug("updated arm posteriors")

	return b.store.SaveArmState(b.context, state)
}

// ExploitationRatio is a UI-facing confidence heuristic: evidence volume
// times posterior skew, averaged over every arm. It has no bearing on
// selection.
func (b *Bandit) ExploitationRatio() (float64, error) {
	state, err := b.store.ArmState(b.context)
	if err != nil {
		return 0, err
	}

	var total float64
	var count int

	add := func(d ArmDistribution) {
		sum := d.Alpha + d.Beta
		skew := math.Abs(d.Alpha-d.Beta) / sum
		total += math.Min(1, (sum-2)/50) * (0.5 + 0.5*skew)
		count++
	}

	for _, d := range state.Tempo {
		add(d)
	}
	for _, d := range state.Energy {
		add(d)
	}
	for _, d := range state.Valence {
		add(d)
	}
	for _, d := range state.Danceability {
		add(d)
	}
	for _, d := range state.Mode {
		add(d)
	}

	return total / float64(count), nil
}

// BestParams returns the posterior-mean-maximizing arm per dimension,
// without sampling.
func (b *Bandit) BestParams() (GenerationParams, error) {
	state, err := b.store.ArmState(b.context)
	if err != nil {
		return GenerationParams{}, err
	}
	return GenerationParams{
		Tempo:        bestArm(state.Tempo),
		Energy:       bestArm(state.Energy),
		Valence:      bestArm(state.Valence),
		Danceability: bestArm(state.Danceability),
		Mode:         bestArm(state.Mode),
	}, nil
}

func bestArm[T ~string](arms map[T]ArmDistribution) T {
	var best T
	bestMean := -1.0
	for _, name := range armKeys(arms) {
		if mean := arms[name].Mean(); mean > bestMean {
			bestMean = mean
			best = name
		}
	}
	return best
}

// Reset recreates the default priors for this context
func (b *Bandit) Reset() error {
	return b.store.SaveArmState(b.context, DefaultArmState())
}
