package tui

import (
	"fmt"
	"sort"
	"strings"

	"atlas/types"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	// Title
	b.WriteString(TitleStyle.Render("🗂  Atlas Duplicate Review"))
	b.WriteString("\n\n")

	// Current state
	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	// Statistics
	if m.Stats != nil {
		stats := fmt.Sprintf("📊 Items: %d | Potential duplicates: %d | High confidence: %d",
			m.Stats.TotalItems, m.Stats.PotentialDuplicates, m.Stats.HighConfidenceDuplicates)
		b.WriteString(InfoStyle.Render(stats))
		b.WriteString("\n")

		names := make([]string, 0, len(m.Stats.ByType))
		for contentType := range m.Stats.ByType {
			names = append(names, string(contentType))
		}
		sort.Strings(names)
		for _, name := range names {
			ts := m.Stats.ByType[types.ContentType(name)]
			if ts.TotalItems == 0 {
				continue
			}
			line := fmt.Sprintf("   %s: %d items, %d potential", name, ts.TotalItems, ts.PotentialDuplicates)
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Last cleanup result
	if m.CleanupReport != nil {
		b.WriteString(BoxStyle.Render(m.formatCleanupReport()))
		b.WriteString("\n\n")
	}

	// Logs
	if len(m.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, entry := range m.Logs {
			line := fmt.Sprintf("   %s %s", entry.Timestamp.Format("15:04:05"), entry.Message)
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Help text
	b.WriteString(InfoStyle.Render("Press 'c' for dry-run cleanup | 'C' to remove duplicates | 'q' to quit"))

	return b.String()
}

// formatCleanupReport formats the last cleanup sweep for display
func (m Model) formatCleanupReport() string {
	report := m.CleanupReport
	var b strings.Builder

	if report.DryRun {
		b.WriteString(HighlightStyle.Render("Cleanup Sweep (dry run)"))
	} else {
		b.WriteString(HighlightStyle.Render("Cleanup Sweep"))
	}
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Found: %d\n", report.Found))
	b.WriteString(fmt.Sprintf("Removed: %d\n", report.Removed))

	for contentType, tc := range report.ByType {
		if tc.Found == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: found %d, removed %d\n", contentType, tc.Found, tc.Removed))
	}

	if len(report.Errors) > 0 {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Errors: %d", len(report.Errors))))
		b.WriteString("\n")
	}

	return b.String()
}
