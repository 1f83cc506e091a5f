package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// PortEvent is emitted when the watched output port appears or disappears
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// PortWatcher polls MIDI output ports and reports hot-plug changes for
// the port the synth sends to.
type PortWatcher struct {
	portName string
	current  string
	mu       sync.RWMutex
	events   chan PortEvent
	pollRate time.Duration
}

// NewPortWatcher watches for an output port whose name contains portName
// (case-insensitive). An empty name matches any port.
func NewPortWatcher(portName string) *PortWatcher {
	return &PortWatcher{
		portName: portName,
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
	}
}

// Events returns a channel of connect/disconnect events
func (w *PortWatcher) Events() <-chan PortEvent {
	return w.events
}

// Connected reports whether a matching port is currently present
func (w *PortWatcher) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current != ""
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *PortWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	w.scan()

	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *PortWatcher) scan() {
	// Get current MIDI ports with timeout (CoreMIDI can hang)
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	var outs []drivers.Out
	select {
	case outs = <-ch:
	case <-time.After(3 * time.Second):
		// CoreMIDI is hung - skip this scan
		// User needs to run: sudo killall coreaudiod midiserver
		return
	}

	found := ""
	want := strings.ToLower(w.portName)
	for _, out := range outs {
		if want == "" || strings.Contains(strings.ToLower(out.String()), want) {
			found = out.String()
			break
		}
	}

	w.mu.Lock()
	previous := w.current
	w.current = found
	w.mu.Unlock()

	if found != "" && previous == "" {
		w.events <- PortEvent{Type: PortConnected, Name: found}
	} else if found == "" && previous != "" {
		w.events <- PortEvent{Type: PortDisconnected, Name: previous}
	}
}
