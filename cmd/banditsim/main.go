// banditsim runs the preference learner against a simulated listener so
// convergence can be inspected without playing any audio.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/urfave/cli"

	"seedtone/preferences"
)

func main() {
	app := cli.NewApp()
	app.Name = "banditsim"
	app.Usage = "simulate listening sessions and watch the learner converge"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "rounds,n",
			Value: 300,
			Usage: "number of simulated songs",
		},
		cli.Float64Flag{
			Name:  "bias",
			Value: 0.3,
			Usage: "exploration level 0-1",
		},
		cli.Int64Flag{
			Name:  "seed",
			Value: 1,
			Usage: "rng seed",
		},
		cli.StringFlag{
			Name:  "tempo",
			Value: string(preferences.Tempo80),
			Usage: "tempo arm the simulated listener prefers",
		},
		cli.StringFlag{
			Name:  "energy",
			Value: string(preferences.EnergyHigh),
			Usage: "energy arm the simulated listener prefers",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	store, err := preferences.OpenStore("")
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(c.Int64("seed")))
	bandit := preferences.NewBandit(store, "")
	tracker := preferences.NewTracker(store, bandit)

	likedTempo := preferences.TempoArm(c.String("tempo"))
	likedEnergy := preferences.EnergyArm(c.String("energy"))
	rounds := c.Int("rounds")
	bias := c.Float64("bias")

	fmt.Printf("simulated listener likes tempo=%s energy=%s, %d rounds at bias %.2f\n\n",
		likedTempo, likedEnergy, rounds, bias)

	start := time.Now()
	for i := 1; i <= rounds; i++ {
		params, err := bandit.SelectParams(preferences.TempoArms, bias)
		if err != nil {
			return err
		}
		if _, err := tracker.StartTracking(params, 120); err != nil {
			return err
		}

		// The simulated listener sits through matching songs and skips
		// the rest early, with a little noise.
		match := params.Tempo == likedTempo && params.Energy == likedEnergy
		if match && rng.Float64() < 0.9 {
			tracker.UpdateListenDuration(115)
			if _, err := tracker.EndPlayback(false); err != nil {
				return err
			}
		} else {
			tracker.UpdateListenDuration(rng.Float64() * 8)
			if _, err := tracker.EndPlayback(true); err != nil {
				return err
			}
		}

		if i%50 == 0 {
			ratio, err := bandit.ExploitationRatio()
			if err != nil {
				return err
			}
			best, err := bandit.BestParams()
			if err != nil {
				return err
			}
			fmt.Printf("round %3d  confidence %.0f%%  best: tempo=%s energy=%s mood=%s groove=%s\n",
				i, ratio*100, best.Tempo, best.Energy, best.Valence, best.Danceability)
		}
	}

	best, err := bandit.BestParams()
	if err != nil {
		return err
	}
	fmt.Printf("\nconverged on tempo=%s energy=%s in %s\n", best.Tempo, best.Energy, time.Since(start).Round(time.Millisecond))

	if best.Tempo != likedTempo || best.Energy != likedEnergy {
		fmt.Println("warning: learner did not match the simulated preference")
	}
	return nil
}
