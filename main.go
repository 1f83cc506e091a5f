package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"seedtone/config"
	"seedtone/debug"
	"seedtone/engine"
	"seedtone/midi"
	"seedtone/preferences"
	"seedtone/theme"
	"seedtone/tui"
)

var version string

func main() {
	app := cli.NewApp()
	app.Name = "seedtone"
	app.Usage = "generative lofi player that learns what you like"
	app.Version = version
	app.Compiled = time.Now()
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "verbose logging",
		},
		cli.StringFlag{
			Name:  "port,p",
			Usage: "MIDI output port name (substring match)",
		},
		cli.Float64Flag{
			Name:  "exploration",
			Value: -1,
			Usage: "exploration level 0-1 (overrides config)",
		},
		cli.Float64Flag{
			Name:  "bpm-min",
			Usage: "lowest allowed BPM (overrides config)",
		},
		cli.Float64Flag{
			Name:  "bpm-max",
			Usage: "highest allowed BPM (overrides config)",
		},
		cli.StringFlag{
			Name:  "palette",
			Usage: "GIMP .gpl palette file for the UI (overrides config)",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "export",
			Usage: "write all preference data to a JSON file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "dir",
					Value: ".",
					Usage: "directory to write the export into",
				},
			},
			Action: exportAction,
		},
		{
			Name:      "import",
			Usage:     "merge preference data from an exported JSON file",
			ArgsUsage: "<file>",
			Action:    importAction,
		},
		{
			Name:   "reset",
			Usage:  "discard learned preferences for the current context",
			Action: resetAction,
		},
		{
			Name:   "stats",
			Usage:  "show listening history statistics",
			Action: statsAction,
		},
		{
			Name:   "profile",
			Usage:  "show the learned taste profile and its share code",
			Action: profileAction,
		},
		{
			Name:      "onboard",
			Usage:     "seed the learner from two quick answers",
			ArgsUsage: "<slower|faster> <chill|energetic>",
			Action:    onboardAction,
		},
	}

	app.Action = playAction

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) {
	if c.GlobalBool("debug") || c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
}

func openStore() (*config.Config, *preferences.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	path, err := cfg.StorePath()
	if err != nil {
		return nil, nil, err
	}
	store, err := preferences.OpenStore(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func playAction(c *cli.Context) error {
	setupLogging(c)

	// The TUI owns the terminal, so debug logs go to a file.
	if c.GlobalBool("debug") {
		if err := debug.Enable(); err != nil {
			return err
		}
		defer debug.Disable()
	}

	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	if c.IsSet("exploration") {
		cfg.Learning.ExplorationLevel = c.Float64("exploration")
	}
	if c.IsSet("bpm-min") {
		cfg.Playback.BPMMin = c.Float64("bpm-min")
	}
	if c.IsSet("bpm-max") {
		cfg.Playback.BPMMax = c.Float64("bpm-max")
	}
	if c.IsSet("port") {
		cfg.Output.PortName = c.String("port")
	}
	if c.IsSet("palette") {
		cfg.PaletteFile = c.String("palette")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	synth := midi.NewSynth(cfg.Output.PortName)
	eng := engine.New(engine.Options{
		Store:           store,
		Synth:           synth,
		ExplorationBias: cfg.Learning.ExplorationLevel,
		BPMMin:          cfg.Playback.BPMMin,
		BPMMax:          cfg.Playback.BPMMax,
		Context:         cfg.Learning.Context,
	})
	eng.SetVolume(cfg.Playback.Volume)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := midi.NewPortWatcher(cfg.Output.PortName)
	go watcher.Run(ctx)

	palette := theme.DefaultPalette()
	if cfg.PaletteFile != "" {
		palette, err = theme.LoadGPL(cfg.PaletteFile)
		if err != nil {
			return err
		}
	}

	th := theme.New(palette)
	m := tui.NewModel(ctx, eng, watcher, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func exportAction(c *cli.Context) error {
	setupLogging(c)

	_, store, err := openStore()
	if err != nil {
		return err
	}
	path, err := preferences.WriteExportFile(store, c.String("dir"))
	if err != nil {
		return err
	}
	fmt.Println("exported to", path)
	return nil
}

func importAction(c *cli.Context) error {
	setupLogging(c)

	file := c.Args().First()
	if file == "" {
		return cli.NewExitError("usage: seedtone import <file>", 1)
	}
	_, store, err := openStore()
	if err != nil {
		return err
	}
	if err := preferences.ReadImportFile(store, file); err != nil {
		return err
	}
	fmt.Println("imported", file)
	return nil
}

func resetAction(c *cli.Context) error {
	setupLogging(c)

	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	bandit := preferences.NewBandit(store, cfg.Learning.Context)
	if err := bandit.Reset(); err != nil {
		return err
	}
	fmt.Println("preferences reset")
	return nil
}

func statsAction(c *cli.Context) error {
	setupLogging(c)

	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("songs played      %d\n", stats.TotalSongs)
	fmt.Printf("time listened     %.1f min\n", stats.TotalListenSeconds/60)
	fmt.Printf("avg listen ratio  %.0f%%\n", stats.AverageListenRatio*100)
	fmt.Printf("likes             %d\n", stats.LikeCount)
	fmt.Printf("skips             %d\n", stats.SkipCount)

	bandit := preferences.NewBandit(store, cfg.Learning.Context)
	if ratio, err := bandit.ExploitationRatio(); err == nil {
		fmt.Printf("taste confidence  %.0f%%\n", ratio*100)
	}

	daily, err := preferences.DailyStats(store, 7)
	if err != nil {
		return err
	}
	fmt.Println("\nlast 7 days:")
	for _, day := range daily {
		fmt.Printf("  %s  %2d songs  %5.1f min\n", day.Date, day.SongCount, day.ListenMinutes)
	}
	return nil
}

func profileAction(c *cli.Context) error {
	setupLogging(c)

	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	bandit := preferences.NewBandit(store, cfg.Learning.Context)
	profile, err := preferences.GenerateTasteProfile(bandit)
	if err != nil {
		return err
	}
	code, err := preferences.EncodeTasteProfile(profile)
	if err != nil {
		return err
	}

	fmt.Println("taste:", profile.Summary)
	fmt.Println("share code:", code)
	return nil
}

func onboardAction(c *cli.Context) error {
	setupLogging(c)

	if c.NArg() != 2 {
		return cli.NewExitError("usage: seedtone onboard <slower|faster> <chill|energetic>", 1)
	}
	prefs := preferences.OnboardingPreferences{
		Tempo:  strings.ToLower(c.Args().Get(0)),
		Energy: strings.ToLower(c.Args().Get(1)),
	}

	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	if err := preferences.ApplyWarmStart(store, cfg.Learning.Context, prefs); err != nil {
		return err
	}
	fmt.Println("warm start applied")
	return nil
}
