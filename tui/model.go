package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"seedtone/engine"
	"seedtone/midi"
	"seedtone/theme"
)

type Model struct {
	Engine  *engine.Engine
	Watcher *midi.PortWatcher
	Theme   *theme.Theme

	ctx      context.Context
	updates  <-chan engine.Snapshot
	unsub    func()
	snapshot engine.Snapshot
	portName string
	status   string
	quitting bool
}

type SnapshotMsg engine.Snapshot

type PortEventMsg midi.PortEvent

func NewModel(ctx context.Context, eng *engine.Engine, watcher *midi.PortWatcher, th *theme.Theme) Model {
	updates, unsub := eng.Subscribe()
	return Model{
		Engine:   eng,
		Watcher:  watcher,
		Theme:    th,
		ctx:      ctx,
		updates:  updates,
		unsub:    unsub,
		snapshot: eng.GetSnapshot(),
	}
}

func ListenForSnapshots(updates <-chan engine.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return SnapshotMsg(snap)
	}
}

func ListenForPorts(watcher *midi.PortWatcher) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-watcher.Events()
		if !ok {
			return nil
		}
		return PortEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	if m.Watcher == nil {
		return ListenForSnapshots(m.updates)
	}
	return tea.Batch(
		ListenForSnapshots(m.updates),
		ListenForPorts(m.Watcher),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.unsub()
			m.Engine.EndSession()
			m.Engine.Dispose()
			return m, tea.Quit

		case " ":
			if m.snapshot.State == engine.StatePlaying {
				m.Engine.Pause()
				m.status = "paused"
			} else {
				if err := m.Engine.Play(m.ctx); err != nil {
					m.status = err.Error()
				} else {
					m.status = "playing"
				}
			}

		case "s":
			m.Engine.Stop()
			m.status = "stopped"

		case "n":
			if err := m.Engine.Skip(); err != nil {
				m.status = err.Error()
			} else {
				m.status = "skipped, trying something new"
			}

		case "l":
			if err := m.Engine.Like(); err != nil {
				m.status = err.Error()
			} else {
				m.status = fmt.Sprintf("%c liked", m.Theme.Symbols.Like)
			}

		case "d":
			if err := m.Engine.Dislike(); err != nil {
				m.status = err.Error()
			} else {
				m.status = "noted, less of this"
			}

		case "+", "=":
			m.Engine.SetVolume(m.Engine.Volume() + 0.05)

		case "-", "_":
			m.Engine.SetVolume(m.Engine.Volume() - 0.05)
		}

		m.snapshot = m.Engine.GetSnapshot()

	case SnapshotMsg:
		m.snapshot = engine.Snapshot(msg)
		return m, ListenForSnapshots(m.updates)

	case PortEventMsg:
		event := midi.PortEvent(msg)
		if event.Type == midi.PortConnected {
			m.portName = event.Name
		} else {
			m.portName = ""
		}
		return m, ListenForPorts(m.Watcher)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.snapshot

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	activeStyle := lipgloss.NewStyle().Foreground(m.Theme.Active())

	stateSym := m.Theme.Symbols.Stopped
	switch snap.State {
	case engine.StatePlaying:
		stateSym = m.Theme.Symbols.Playing
	case engine.StatePaused:
		stateSym = m.Theme.Symbols.Paused
	}

	midiStatus := ""
	if m.portName != "" {
		midiStatus = "  midi:" + m.portName
	}

	header := headerStyle.Render(fmt.Sprintf("seedtone  %c  %3dbpm  vol:%s%s", stateSym, snap.BPM, m.volumeMeter(snap.Volume), midiStatus))

	nowPlaying := fmt.Sprintf("%c  %s %s  %s", m.Theme.Symbols.Note, snap.Key, snap.Params.Mode, snap.Degree)
	if snap.State == engine.StateStopped {
		nowPlaying = "press space to start"
	}

	params := dimStyle.Render(fmt.Sprintf("tempo:%s  energy:%s  mood:%s  groove:%s",
		snap.Params.Tempo, snap.Params.Energy, snap.Params.Valence, snap.Params.Danceability))

	listen := dimStyle.Render(fmt.Sprintf("listened %s  taste confidence %.0f%%",
		formatSeconds(snap.ListenSeconds), snap.ExploitationPct))

	help := dimStyle.Render("space:play/pause  n:skip  l:like  d:dislike  +/-:volume  s:stop  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(fgStyle.Render(nowPlaying))
	out.WriteString("\n")
	out.WriteString(params)
	out.WriteString("\n")
	out.WriteString(listen)
	out.WriteString("\n\n")
	out.WriteString(help)

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(activeStyle.Render(m.status))
	}

	return out.String()
}

// volumeMeter renders a 10-cell bar for a 0-1 level
func (m Model) volumeMeter(volume float64) string {
	const cells = 10
	filled := int(volume*cells + 0.5)
	if filled > cells {
		filled = cells
	}
	var b strings.Builder
	for i := 0; i < cells; i++ {
		if i < filled {
			b.WriteRune(m.Theme.Symbols.MeterFull)
		} else {
			b.WriteRune(m.Theme.Symbols.MeterEmpty)
		}
	}
	return b.String()
}

func formatSeconds(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
