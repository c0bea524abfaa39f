// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	"filterplay/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

func testDevices() ([]audio.Device, error) {
	return []audio.Device{
		{ID: 1, Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{ID: 2, Name: "USB Interface", MaxOutputChannels: 8, DefaultSampleRate: 96000, IsDefaultOutput: true},
		{ID: 4, Name: "HDMI", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	}, nil
}

func update(m DeviceListModel, msgs ...tea.Msg) (DeviceListModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(DeviceListModel)
	}
	return m, cmd
}

func TestDeviceListPick(t *testing.T) {
	m := NewDeviceListModel(testDevices)
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 40}, m.Init()())

	if m.selectedIndex != 1 {
		t.Errorf("selection starts at %d, want the default device", m.selectedIndex)
	}
	if !strings.Contains(m.View(), "USB Interface [default]") {
		t.Errorf("view missing default marker:\n%s", m.View())
	}

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	id, ok := m.Chosen()
	if !ok || id != 4 {
		t.Errorf("Chosen() = %d, %v; want 4, true", id, ok)
	}
	if cmd == nil {
		t.Fatal("enter did not quit")
	}
}

func TestDeviceListQuitWithoutChoice(t *testing.T) {
	m := NewDeviceListModel(testDevices)
	m, _ = update(m, m.Init()(), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if _, ok := m.Chosen(); ok {
		t.Error("quitting should not choose a device")
	}
}

func TestDeviceListError(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) {
		return nil, errors.New("PortAudio not initialized")
	})
	m, _ = update(m, m.Init()())
	if !strings.Contains(m.View(), "PortAudio not initialized") {
		t.Errorf("error not shown:\n%s", m.View())
	}
}

func TestDeviceListEmpty(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, nil })
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 20}, m.Init()(), tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := m.Chosen(); ok {
		t.Error("enter with no devices chose something")
	}
	if !strings.Contains(m.View(), "No output devices found.") {
		t.Errorf("view:\n%s", m.View())
	}
}
