// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"filterplay/internal/audio"
	"filterplay/internal/dsp"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SeekStep is the fraction moved by one seek key press.
const SeekStep = 0.05

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	meterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
)

// Player is the engine surface the front-end drives. *audio.Engine
// implements it.
type Player interface {
	Status() audio.Status
	Start(onFinished func()) error
	TogglePause() (bool, error)
	Stop() error
	Seek(fraction float64) error
	UpdateFilterText(lowEnabled, highEnabled bool, low, high string) error
	SaveFiltered(ctx context.Context, path string) error
}

var _ Player = (*audio.Engine)(nil)

type focus int

const (
	focusNone focus = iota
	focusLow
	focusHigh
)

type tickMsg time.Time

type savedMsg struct {
	path string
	err  error
}

type faultMsg struct{ err error }

// PlayerModel is the Bubble Tea model of the playback screen.
type PlayerModel struct {
	player   Player
	title    string
	savePath string
	interval time.Duration
	faults   <-chan error

	keys     playerKeyMap
	help     help.Model
	progress progress.Model
	low      textinput.Model
	high     textinput.Model
	focus    focus

	lowEnabled  bool
	highEnabled bool

	status  audio.Status
	message string
	isErr   bool
	saving  bool
	width   int
}

// NewPlayerModel creates the playback screen for the file at path. The
// initial cut settings are taken from req. Saved audio goes to savePath.
func NewPlayerModel(p Player, path, savePath string, req dsp.FilterRequest, interval time.Duration) PlayerModel {
	m := PlayerModel{
		player:      p,
		title:       filepath.Base(path),
		savePath:    savePath,
		interval:    interval,
		keys:        newPlayerKeyMap(),
		help:        help.New(),
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		low:         newCutInput(req.LowCut),
		high:        newCutInput(req.HighCut),
		lowEnabled:  req.LowEnabled,
		highEnabled: req.HighEnabled,
		status:      p.Status(),
	}
	return m
}

func newCutInput(hz float64) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Hz"
	ti.CharLimit = 10
	ti.Width = 10
	ti.SetValue(strconv.FormatFloat(hz, 'f', -1, 64))
	return ti
}

func (m PlayerModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// WithFaults reports every error received on faults in the status line.
func (m PlayerModel) WithFaults(faults <-chan error) PlayerModel {
	m.faults = faults
	return m
}

// waitFault blocks for the next fault. It returns nil once faults is closed
// or was never set.
func (m PlayerModel) waitFault() tea.Cmd {
	if m.faults == nil {
		return nil
	}
	faults := m.faults
	return func() tea.Msg {
		err, ok := <-faults
		if !ok {
			return nil
		}
		return faultMsg{err}
	}
}

func (m PlayerModel) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.waitFault())
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(msg.Width-4, 60))
		return m, nil

	case tickMsg:
		m.status = m.player.Status()
		return m, m.tick()

	case faultMsg:
		m.setError(msg.err)
		m.status = m.player.Status()
		return m, m.waitFault()

	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.setError(fmt.Errorf("save failed: %w", msg.err))
		} else {
			m.setInfo("Saved filtered audio to " + msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
			return m.quit()
		}
		if m.focus != focusNone {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m PlayerModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Play):
		m.playPause()

	case key.Matches(msg, m.keys.Back):
		m.seekBy(-SeekStep)

	case key.Matches(msg, m.keys.Forward):
		m.seekBy(SeekStep)

	case key.Matches(msg, m.keys.LowCut):
		m.lowEnabled = !m.lowEnabled
		m.applyFilter()

	case key.Matches(msg, m.keys.HighCut):
		m.highEnabled = !m.highEnabled
		m.applyFilter()

	case key.Matches(msg, m.keys.Edit):
		m.focus = focusLow
		return m, m.low.Focus()

	case key.Matches(msg, m.keys.Save):
		if m.saving {
			return m, nil
		}
		m.saving = true
		m.setInfo("Saving...")
		return m, m.save()

	case key.Matches(msg, m.keys.ToggleHlp):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m PlayerModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Apply):
		m.blur()
		m.applyFilter()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		m.blur()
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		if m.focus == focusLow {
			m.low.Blur()
			m.focus = focusHigh
			return m, m.high.Focus()
		}
		m.high.Blur()
		m.focus = focusLow
		return m, m.low.Focus()
	}

	var cmd tea.Cmd
	if m.focus == focusLow {
		m.low, cmd = m.low.Update(msg)
	} else {
		m.high, cmd = m.high.Update(msg)
	}
	return m, cmd
}

func (m *PlayerModel) blur() {
	m.low.Blur()
	m.high.Blur()
	m.focus = focusNone
}

// playPause starts a stopped engine with the current filter fields applied
// first, and toggles pause otherwise.
func (m *PlayerModel) playPause() {
	switch m.player.Status().State {
	case audio.Stopped:
		if !m.applyFilter() {
			return
		}
		if err := m.player.Start(nil); err != nil {
			m.setError(err)
			return
		}
		m.setInfo("")
	case audio.Playing, audio.Paused:
		if _, err := m.player.TogglePause(); err != nil {
			m.setError(err)
		}
	}
	m.status = m.player.Status()
}

func (m *PlayerModel) seekBy(delta float64) {
	pos := m.player.Status().Position + delta
	pos = max(0, min(pos, 1))
	if err := m.player.Seek(pos); err != nil {
		m.setError(err)
		return
	}
	m.status = m.player.Status()
}

// applyFilter sends the cut fields to the engine and reports whether they
// were accepted. Rejected settings leave the previous filter active.
func (m *PlayerModel) applyFilter() bool {
	err := m.player.UpdateFilterText(m.lowEnabled, m.highEnabled, m.low.Value(), m.high.Value())
	if err != nil {
		if errors.Is(err, audio.ErrNoWaveform) {
			return true
		}
		m.setError(err)
		return false
	}
	m.setInfo("")
	m.status = m.player.Status()
	return true
}

func (m PlayerModel) save() tea.Cmd {
	p, path := m.player, m.savePath
	return func() tea.Msg {
		return savedMsg{path: path, err: p.SaveFiltered(context.Background(), path)}
	}
}

func (m PlayerModel) quit() (tea.Model, tea.Cmd) {
	if err := m.player.Stop(); err != nil {
		m.setError(err)
	}
	return m, tea.Quit
}

func (m *PlayerModel) setError(err error) {
	m.message, m.isErr = err.Error(), true
}

func (m *PlayerModel) setInfo(s string) {
	m.message, m.isErr = s, false
}

func (m PlayerModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("filterplay") + " " + infoStyle.Render(m.title))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("%-8s %s\n", strings.ToUpper(m.status.State.String()), m.status.Clock()))
	sb.WriteString(m.progress.ViewAs(m.status.Position))
	sb.WriteString("\n\n")

	sb.WriteString(m.cutLine("Low cut ", m.lowEnabled, m.low, m.focus == focusLow))
	sb.WriteString(m.cutLine("High cut", m.highEnabled, m.high, m.focus == focusHigh))
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("Active: %s", m.status.Kind)))
	sb.WriteString("\n")
	sb.WriteString(meterStyle.Render(levelBar(m.status.Peak, 30)))
	sb.WriteString("\n\n")

	if m.message != "" {
		if m.isErr {
			sb.WriteString(errorStyle.Render(m.message))
		} else {
			sb.WriteString(infoStyle.Render(m.message))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m PlayerModel) cutLine(label string, enabled bool, input textinput.Model, focused bool) string {
	box := "[ ]"
	if enabled {
		box = "[x]"
	}
	line := fmt.Sprintf("%s %s %s Hz", box, label, input.View())
	if focused {
		line = highlightStyle.Render(line)
	}
	return line + "\n"
}

// levelBar draws peak (linear, 0-1) as a bar width cells wide.
func levelBar(peak float32, width int) string {
	n := int(float32(width) * min(max(peak, 0), 1))
	return strings.Repeat("█", n) + mutedStyle.Render(strings.Repeat("░", width-n))
}

// RunPlayer runs the playback screen until the user quits or ctx is done.
func RunPlayer(ctx context.Context, m PlayerModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		// Killed by cancellation: make sure the device is released.
		return m.player.Stop()
	}
	return err
}
