// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

type playerKeyMap struct {
	Play      key.Binding
	Back      key.Binding
	Forward   key.Binding
	LowCut    key.Binding
	HighCut   key.Binding
	Edit      key.Binding
	Apply     key.Binding
	Cancel    key.Binding
	Save      key.Binding
	Quit      key.Binding
	ToggleHlp key.Binding
}

func newPlayerKeyMap() playerKeyMap {
	return playerKeyMap{
		Play:      key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
		Back:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5%")),
		Forward:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5%")),
		LowCut:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "low cut")),
		HighCut:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "high cut")),
		Edit:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "edit cutoffs")),
		Apply:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done")),
		Save:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		ToggleHlp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	}
}

func (k playerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Back, k.Forward, k.LowCut, k.HighCut, k.Save, k.Quit, k.ToggleHlp}
}

func (k playerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Back, k.Forward},
		{k.LowCut, k.HighCut, k.Edit, k.Apply, k.Cancel},
		{k.Save, k.Quit, k.ToggleHlp},
	}
}
