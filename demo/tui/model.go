package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"atlas/dedup"
)

// State represents the dashboard state machine
type State string

const (
	StatePolling  State = "polling"
	StateCleaning State = "cleaning"
	StateError    State = "error"
)

// LogEntry is a single activity line with timestamp
type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// Model represents the review dashboard state (thin client)
type Model struct {
	// Deduplication API client
	Client *AtlasClient

	// Local UI state (synced from the server)
	State         State
	Stats         *dedup.DuplicateStatistics
	CleanupReport *dedup.CleanupReport
	Logs          []LogEntry
	Err           error

	// Cleanup confidence floor; zero lets the server default apply
	ConfidenceThreshold float64

	// Connection status
	Connected bool
}

// NewModel creates a new dashboard model
func NewModel(serverURL string, confidenceThreshold float64) Model {
	return Model{
		Client:              NewAtlasClient(serverURL),
		State:               StatePolling,
		Logs:                make([]LogEntry, 0),
		ConfidenceThreshold: confidenceThreshold,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	// Start polling immediately
	return tea.Batch(
		pollStats(m.Client),
		tickCmd(),
	)
}

// AddLog appends an activity line, keeping the last eight
func (m Model) AddLog(message string) Model {
	m.Logs = append(m.Logs, LogEntry{Timestamp: time.Now(), Message: message})
	if len(m.Logs) > 8 {
		m.Logs = m.Logs[len(m.Logs)-8:]
	}
	return m
}

// getStateText returns the appropriate state message
func (m Model) getStateText() string {
	if !m.Connected {
		return ErrorStyle.Render("❌ Not connected to deduplication server")
	}

	switch m.State {
	case StatePolling:
		return StatusStyle.Render("🔍 Watching corpus for duplicates...")
	case StateCleaning:
		return StatusStyle.Render("🧹 Running cleanup sweep...")
	case StateError:
		errMsg := "Unknown error"
		if m.Err != nil {
			errMsg = m.Err.Error()
		}
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %v", errMsg))
	default:
		return ""
	}
}
