package tui

import (
	"time"

	"atlas/dedup"
)

// Messages for the tea program (polling-based)

// StatsUpdateMsg is sent when we receive statistics from the server
type StatsUpdateMsg struct {
	Stats *dedup.DuplicateStatistics
	Err   error
}

// CleanupCompleteMsg is sent when a cleanup sweep finishes
type CleanupCompleteMsg struct {
	Report *dedup.CleanupReport
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}
