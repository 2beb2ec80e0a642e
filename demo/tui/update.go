package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStats(m.Client), tickCmd())
	case StatsUpdateMsg:
		return m.handleStatsUpdate(msg)
	case CleanupCompleteMsg:
		return m.handleCleanupComplete(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "c":
		if m.State == StatePolling && m.Connected {
			m.State = StateCleaning
			m = m.AddLog("Starting dry-run cleanup sweep...")
			return m, runCleanup(m.Client, true, m.ConfidenceThreshold)
		}
	case "C":
		if m.State == StatePolling && m.Connected {
			m.State = StateCleaning
			m = m.AddLog("Starting cleanup sweep (removing duplicates)...")
			return m, runCleanup(m.Client, false, m.ConfidenceThreshold)
		}
	}
	return m, nil
}

// handleStatsUpdate processes a statistics poll result
func (m Model) handleStatsUpdate(msg StatsUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		return m, nil
	}
	if !m.Connected {
		m = m.AddLog("Connected to deduplication server")
	}
	m.Connected = true
	m.Stats = msg.Stats
	return m, nil
}

// handleCleanupComplete processes a finished cleanup sweep
func (m Model) handleCleanupComplete(msg CleanupCompleteMsg) (tea.Model, tea.Cmd) {
	m.State = StatePolling
	if msg.Err != nil {
		m.State = StateError
		m.Err = fmt.Errorf("cleanup failed: %w", msg.Err)
		return m, nil
	}
	m.CleanupReport = msg.Report
	if msg.Report.DryRun {
		m = m.AddLog(fmt.Sprintf("Dry run complete: %d duplicates found", msg.Report.Found))
	} else {
		m = m.AddLog(fmt.Sprintf("Cleanup complete: removed %d of %d duplicates", msg.Report.Removed, msg.Report.Found))
	}
	return m, pollStats(m.Client)
}
