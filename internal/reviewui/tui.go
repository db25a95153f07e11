// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reviewui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/spec-harvester/internal/review"
)

var (
	selectedRowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	confirmedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Console is a terminal accept/confirm console: an operator tool over the
// same review.Store API the websocket hub publishes from, never a
// reimplementation of Store's semantics.
type Console struct {
	store    *review.Store
	category string
	rows     []review.Row
	cursor   int
	status   string
	err      error
}

// NewConsole loads category's rows from store for display.
func NewConsole(ctx context.Context, store *review.Store, category string) (*Console, error) {
	rows, err := store.ListRows(ctx, category)
	if err != nil {
		return nil, err
	}
	return &Console{store: store, category: category, rows: rows}, nil
}

func (c *Console) Init() tea.Cmd { return nil }

func (c *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q":
		return c, tea.Quit
	case "up", "k":
		if c.cursor > 0 {
			c.cursor--
		}
	case "down", "j":
		if c.cursor < len(c.rows)-1 {
			c.cursor++
		}
	case "c":
		c.applyAction(review.LaneAction{Kind: review.ActionConfirm})
	case "a":
		if newValue, submitted := c.promptForValue(); submitted {
			c.applyAction(review.LaneAction{Kind: review.ActionAccept, NewValue: newValue})
		}
	}
	return c, nil
}

func (c *Console) applyAction(action review.LaneAction) {
	if c.cursor >= len(c.rows) {
		return
	}
	row := c.rows[c.cursor]
	updated, err := c.store.ApplyLaneAction(context.Background(), row.Key, action)
	if err != nil {
		c.err = err
		return
	}
	c.rows[c.cursor] = updated
	c.status = fmt.Sprintf("applied %s to %s", action.Kind, row.Key.FieldKey)
}

// promptForValue blocks on a huh.Form to collect the operator's replacement
// value for an accept action, run outside bubbletea's own render loop the
// way huh.Form.Run is documented to be used for one-off prompts.
func (c *Console) promptForValue() (string, bool) {
	var value string
	submitted := true
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("New value").Value(&value),
	))
	if err := form.Run(); err != nil {
		c.err = err
		submitted = false
	}
	return value, submitted
}

func (c *Console) View() string {
	b := headerStyle.Render(fmt.Sprintf("review queue: %s (%d rows)", c.category, len(c.rows))) + "\n\n"
	for i, row := range c.rows {
		line := fmt.Sprintf("%-24s %-12s ai=%-10s user=%-10s", row.Key.FieldKey, row.SelectedValue, row.AIConfirmSharedStatus, row.UserAcceptSharedStatus)
		style := pendingStyle
		if row.AIConfirmSharedStatus == review.AIConfirmConfirmed {
			style = confirmedStyle
		}
		if i == c.cursor {
			style = selectedRowStyle
		}
		b += style.Render(line) + "\n"
	}
	b += "\n[up/down] move  [c] confirm  [a] accept  [q] quit\n"
	if c.status != "" {
		b += c.status + "\n"
	}
	if c.err != nil {
		b += "error: " + c.err.Error() + "\n"
	}
	return b
}

// Run starts the bubbletea program and blocks until the operator quits.
func (c *Console) Run() error {
	_, err := tea.NewProgram(c).Run()
	return err
}
