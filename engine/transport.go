package engine

import (
	"sync"
	"time"
)

// TickFunc receives the running 8th-note tick count
type TickFunc func(tick int64)

// Transport is the timing source driving the sequencer. It fires the
// handler on an 8th-note grid, swung.
type Transport interface {
	Start()
	Pause()
	Resume()
	Stop()
	Playing() bool
	SetBPM(bpm int)
	BPM() int
	SetSwing(amount float64)
}

// ClockTransport is the wall-clock Transport. The tick loop is
// timer-driven against absolute deadlines so the grid never drifts,
// even when a handler runs long.
type ClockTransport struct {
	mu      sync.RWMutex
	bpm     int
	swing   float64
	playing bool
	handler TickFunc

	tick     int64
	next     time.Time
	stopChan chan struct{}
}

// NewClockTransport creates a stopped transport at the given tempo
func NewClockTransport(bpm int, handler TickFunc) *ClockTransport {
	return &ClockTransport{
		bpm:     bpm,
		handler: handler,
	}
}

// eighth returns the duration of one straight 8th note
func (t *ClockTransport) eighth() time.Duration {
	return time.Duration(float64(time.Minute) / float64(t.bpm) / 2)
}

// tickDelay returns the swing displacement of a tick. Odd 8ths land
// late; at full swing they land a triplet behind the grid.
func (t *ClockTransport) tickDelay(tick int64) time.Duration {
	if tick%2 == 0 {
		return 0
	}
	return time.Duration(t.swing * float64(t.eighth()) / 3)
}

// Start begins ticking from zero. Starting a running transport is a
// no-op.
func (t *ClockTransport) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopChan != nil {
		t.playing = true
		return
	}

	t.tick = 0
	t.playing = true
	t.next = time.Now()
	t.stopChan = make(chan struct{})
	go t.loop(t.stopChan)
}

func (t *ClockTransport) loop(stop chan struct{}) {
	for {
		t.mu.RLock()
		playing := t.playing
		deadline := t.next
		t.mu.RUnlock()

		if !playing {
			select {
			case <-stop:
				return
			case <-time.After(5 * time.Millisecond):
			}
			// hold the schedule while paused
			t.mu.Lock()
			t.next = time.Now()
			t.mu.Unlock()
			continue
		}

		if wait := time.Until(deadline); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		t.mu.Lock()
		tick := t.tick
		t.tick++
		t.next = deadline.Add(t.eighth() - t.tickDelay(tick) + t.tickDelay(tick+1))
		handler := t.handler
		t.mu.Unlock()

		if handler != nil {
			handler(tick)
		}
	}
}

// Pause suspends ticking without resetting the tick count
func (t *ClockTransport) Pause() {
	t.mu.Lock()
	t.playing = false
	t.mu.Unlock()
}

// Resume continues a paused transport
func (t *ClockTransport) Resume() {
	t.mu.Lock()
	t.playing = true
	t.mu.Unlock()
}

// Stop halts the loop and resets the tick count
func (t *ClockTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopChan != nil {
		close(t.stopChan)
		t.stopChan = nil
	}
	t.playing = false
	t.tick = 0
}

// Playing reports whether the transport is actively ticking
func (t *ClockTransport) Playing() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.playing
}

// SetBPM changes the tempo for future ticks
func (t *ClockTransport) SetBPM(bpm int) {
	if bpm <= 0 {
		return
	}
	t.mu.Lock()
	t.bpm = bpm
	t.mu.Unlock()
}

// BPM returns the current tempo
func (t *ClockTransport) BPM() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bpm
}

// SetSwing sets the swing amount, clamped to [0, 1]
func (t *ClockTransport) SetSwing(amount float64) {
	if amount < 0 {
		amount = 0
	}
	if amount > 1 {
		amount = 1
	}
	t.mu.Lock()
	t.swing = amount
	t.mu.Unlock()
}
