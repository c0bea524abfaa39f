// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"filterplay/internal/audio"
	"filterplay/internal/dsp"

	tea "github.com/charmbracelet/bubbletea"
)

type filterCall struct {
	lowEnabled, highEnabled bool
	low, high               string
}

type fakePlayer struct {
	status    audio.Status
	started   int
	stopped   int
	seeks     []float64
	filters   []filterCall
	filterErr error
	saved     string
	saveErr   error
}

func (f *fakePlayer) Status() audio.Status { return f.status }

func (f *fakePlayer) Start(func()) error {
	f.started++
	f.status.State = audio.Playing
	return nil
}

func (f *fakePlayer) TogglePause() (bool, error) {
	switch f.status.State {
	case audio.Playing:
		f.status.State = audio.Paused
		return true, nil
	case audio.Paused:
		f.status.State = audio.Playing
		return false, nil
	}
	return false, audio.ErrNotPlaying
}

func (f *fakePlayer) Stop() error {
	f.stopped++
	f.status.State = audio.Stopped
	return nil
}

func (f *fakePlayer) Seek(fraction float64) error {
	f.seeks = append(f.seeks, fraction)
	f.status.Position = fraction
	return nil
}

func (f *fakePlayer) UpdateFilterText(lowEnabled, highEnabled bool, low, high string) error {
	f.filters = append(f.filters, filterCall{lowEnabled, highEnabled, low, high})
	return f.filterErr
}

func (f *fakePlayer) SaveFiltered(_ context.Context, path string) error {
	f.saved = path
	return f.saveErr
}

func newTestModel(p *fakePlayer) PlayerModel {
	req := dsp.FilterRequest{LowCut: 2000, HighCut: 5000}
	return NewPlayerModel(p, "/music/test.wav", "out.wav", req, 100*time.Millisecond)
}

func press(t *testing.T, m PlayerModel, keys ...tea.KeyMsg) (PlayerModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(PlayerModel)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	left  = tea.KeyMsg{Type: tea.KeyLeft}
	right = tea.KeyMsg{Type: tea.KeyRight}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestPlayAppliesFilterFirst(t *testing.T) {
	p := &fakePlayer{status: audio.Status{State: audio.Stopped}}
	m := newTestModel(p)

	m, _ = press(t, m, space)
	if p.started != 1 {
		t.Fatalf("Start called %d times", p.started)
	}
	want := filterCall{false, false, "2000", "5000"}
	if len(p.filters) != 1 || p.filters[0] != want {
		t.Errorf("filter calls = %+v, want [%+v]", p.filters, want)
	}

	m, _ = press(t, m, space)
	if p.status.State != audio.Paused {
		t.Errorf("state after second press = %s, want paused", p.status.State)
	}
	press(t, m, space)
	if p.status.State != audio.Playing {
		t.Errorf("state after third press = %s, want playing", p.status.State)
	}
}

func TestPlayRejectedFilterDoesNotStart(t *testing.T) {
	p := &fakePlayer{
		status:    audio.Status{State: audio.Stopped},
		filterErr: &dsp.InvalidFrequencyError{Side: dsp.LowCut, Value: "abc", Nyquist: 22050},
	}
	m, _ := press(t, newTestModel(p), space)
	if p.started != 0 {
		t.Error("playback started with an invalid filter")
	}
	if !m.isErr || !strings.Contains(m.View(), "low cut") {
		t.Errorf("error not shown:\n%s", m.View())
	}
}

func TestSeekKeys(t *testing.T) {
	p := &fakePlayer{status: audio.Status{State: audio.Playing, Position: 0.5}}
	m := newTestModel(p)

	m, _ = press(t, m, right)
	m, _ = press(t, m, left, left)
	if len(p.seeks) != 3 {
		t.Fatalf("seeks = %v", p.seeks)
	}
	if math.Abs(p.seeks[0]-0.55) > 1e-9 || math.Abs(p.seeks[2]-0.45) > 1e-9 {
		t.Errorf("seeks = %v, want 0.55 then down to 0.45", p.seeks)
	}

	p.status.Position = 0.98
	press(t, m, right)
	if got := p.seeks[len(p.seeks)-1]; got != 1 {
		t.Errorf("seek past the end = %v, want clamped to 1", got)
	}
}

func TestToggleCuts(t *testing.T) {
	p := &fakePlayer{status: audio.Status{State: audio.Playing}}
	m, _ := press(t, newTestModel(p), runes("l"), runes("h"), runes("l"))

	want := []filterCall{
		{true, false, "2000", "5000"},
		{true, true, "2000", "5000"},
		{false, true, "2000", "5000"},
	}
	if len(p.filters) != len(want) {
		t.Fatalf("filter calls = %+v", p.filters)
	}
	for i := range want {
		if p.filters[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, p.filters[i], want[i])
		}
	}
	if !strings.Contains(m.View(), "[x] High cut") {
		t.Errorf("view does not show the enabled high cut:\n%s", m.View())
	}
}

func TestEditCutoffs(t *testing.T) {
	p := &fakePlayer{status: audio.Status{State: audio.Playing}}
	m := newTestModel(p)

	m, _ = press(t, m, tab)
	if m.focus != focusLow {
		t.Fatalf("focus = %v, want low", m.focus)
	}
	m.low.SetValue("")
	m, _ = press(t, m, runes("3"), runes("0"), runes("0"), tab)
	if m.focus != focusHigh {
		t.Fatalf("focus = %v, want high", m.focus)
	}

	// Keys that are bindings elsewhere are text while editing.
	m, _ = press(t, m, runes("q"))
	if p.stopped != 0 {
		t.Fatal("q quit while editing")
	}

	m, _ = press(t, m, enter)
	if m.focus != focusNone {
		t.Errorf("focus after enter = %v", m.focus)
	}
	last := p.filters[len(p.filters)-1]
	if last.low != "300" || last.high != "5000q" {
		t.Errorf("applied %+v", last)
	}

	m, _ = press(t, m, tab, esc)
	if m.focus != focusNone {
		t.Errorf("esc did not leave editing")
	}
}

func TestSave(t *testing.T) {
	tests := []struct {
		name    string
		saveErr error
		want    string
	}{
		{"Success", nil, "Saved filtered audio to out.wav"},
		{"Failure", errors.New("disk full"), "save failed: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlayer{status: audio.Status{State: audio.Playing}, saveErr: tt.saveErr}
			m, cmd := press(t, newTestModel(p), runes("w"))
			if cmd == nil || !m.saving {
				t.Fatal("save did not start")
			}
			if _, again := press(t, m, runes("w")); again != nil {
				t.Error("second save started while saving")
			}

			next, _ := m.Update(cmd())
			m = next.(PlayerModel)
			if p.saved != "out.wav" {
				t.Errorf("saved to %q", p.saved)
			}
			if m.message != tt.want || m.isErr != (tt.saveErr != nil) {
				t.Errorf("message = %q (err=%v), want %q", m.message, m.isErr, tt.want)
			}
		})
	}
}

func TestTickRefreshesStatus(t *testing.T) {
	p := &fakePlayer{status: audio.Status{State: audio.Stopped}}
	m := newTestModel(p)

	p.status = audio.Status{State: audio.Playing, Position: 0.5, Elapsed: 65 * time.Second, Total: 130 * time.Second}
	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(PlayerModel)
	if cmd == nil {
		t.Error("tick not rescheduled")
	}
	if !strings.Contains(m.View(), "01:05 / 02:10") || !strings.Contains(m.View(), "PLAYING") {
		t.Errorf("view not refreshed:\n%s", m.View())
	}
}

func TestFaultsReachStatusLine(t *testing.T) {
	p := &fakePlayer{status: audio.Status{State: audio.Playing}}
	faults := make(chan error, 1)
	m := newTestModel(p).WithFaults(faults)
	if m.Init() == nil {
		t.Fatal("Init returned no command")
	}

	fault := &audio.CallbackFault{Value: "index out of range"}
	faults <- fault
	msg := m.waitFault()()
	p.status.State = audio.Stopped
	next, cmd := m.Update(msg)
	m = next.(PlayerModel)

	if !m.isErr || m.message != fault.Error() {
		t.Errorf("message = %q (err=%v), want %q", m.message, m.isErr, fault.Error())
	}
	if !strings.Contains(m.View(), "render callback fault") || !strings.Contains(m.View(), "STOPPED") {
		t.Errorf("fault not shown:\n%s", m.View())
	}
	if cmd == nil {
		t.Error("fault wait not re-armed")
	}

	close(faults)
	if msg := cmd(); msg != nil {
		t.Errorf("closed fault channel produced %#v", msg)
	}
}

func TestNoFaultChannel(t *testing.T) {
	m := newTestModel(&fakePlayer{})
	if cmd := m.waitFault(); cmd != nil {
		t.Error("waitFault without a channel returned a command")
	}
}

func TestQuitStopsPlayer(t *testing.T) {
	p := &fakePlayer{status: audio.Status{State: audio.Playing}}
	_, cmd := press(t, newTestModel(p), runes("q"))
	if p.stopped != 1 {
		t.Errorf("Stop called %d times", p.stopped)
	}
	if cmd == nil {
		t.Fatal("no quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit the program")
	}
}

func TestLevelBar(t *testing.T) {
	tests := []struct {
		peak float32
		full int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{2, 10},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := strings.Count(levelBar(tt.peak, 10), "█"); got != tt.full {
			t.Errorf("levelBar(%v) has %d full cells, want %d", tt.peak, got, tt.full)
		}
	}
}
