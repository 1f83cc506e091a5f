package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"seedtone/generative"
	"seedtone/midi"
	"seedtone/preferences"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "play":
		playSmokeTest()
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list [name]  - List all MIDI ports")
	fmt.Println("  play [name]  - Play a chord and a drum bar through the synth")
	fmt.Println("  poll         - Poll for device changes")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func playSmokeTest() {
	portName := ""
	if len(os.Args) > 2 {
		portName = os.Args[2]
	}

	synth := midi.NewSynth(portName)
	if err := synth.Load(context.Background()); err != nil {
		fmt.Printf("Error opening port: %v\n", err)
		return
	}
	defer synth.Close()

	if !synth.Loaded() {
		fmt.Println("No output port found, nothing to play")
		return
	}

	fmt.Println("Playing a Cmaj7 voicing...")
	synth.PlayChord([]int{48, 52, 55, 59}, 0.7, 2*time.Second)
	time.Sleep(2 * time.Second)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pattern, err := generative.GenerateDrumPattern(rng, preferences.DanceGroovy, preferences.EnergyMedium)
	if err != nil {
		fmt.Printf("Error building pattern: %v\n", err)
		return
	}

	fmt.Printf("Playing one bar of drums (%s)...\n", pattern.Name)
	for step := 0; step < 16; step++ {
		for _, hit := range pattern.Hits {
			if hit.Step == step {
				synth.PlayDrum(hit.Voice, hit.Velocity)
			}
		}
		time.Sleep(125 * time.Millisecond)
	}

	fmt.Println("Done!")
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect MIDI gear to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()

		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
