package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollStats creates a command to poll duplicate statistics
func pollStats(client *AtlasClient) tea.Cmd {
	return func() tea.Msg {
		stats, err := client.GetStatistics()
		return StatsUpdateMsg{
			Stats: stats,
			Err:   err,
		}
	}
}

// runCleanup creates a command to trigger a cleanup sweep
func runCleanup(client *AtlasClient, dryRun bool, confidenceThreshold float64) tea.Cmd {
	return func() tea.Msg {
		report, err := client.RunCleanup(dryRun, confidenceThreshold)
		return CleanupCompleteMsg{Report: report, Err: err}
	}
}

// tickCmd creates a command that ticks every 2s for polling
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
