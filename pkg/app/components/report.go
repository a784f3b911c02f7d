package components

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kerbaras/skypack/pkg/app/styles"
	"github.com/kerbaras/skypack/pkg/data"
)

// ReportView renders the outcome of a build for the terminal.
func ReportView(report *data.RunReport) string {
	if report == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("skypack: " + report.Name))
	b.WriteString("\n")

	if report.BaseDir == "" {
		b.WriteString(styles.StatusError.Render("Aborted before any output was written"))
		b.WriteString("\n")
		b.WriteString(eventsView(report.Events))
		return b.String()
	}

	if len(report.Items) > 0 {
		b.WriteString(ItemsTable(report.BaseDir, report.Items))
		b.WriteString("\n")
	} else {
		b.WriteString(styles.MutedStyle.Render("No item textures found"))
		b.WriteString("\n")
	}

	b.WriteString(ManifestView(report.Manifest))
	b.WriteString("\n")

	summary := []string{
		styles.MutedStyle.Render("Output:  ") + styles.TextStyle.Render(report.BaseDir),
	}
	if report.ArchivePath != "" {
		summary = append(summary, styles.MutedStyle.Render("Archive: ")+styles.TextStyle.Render(report.ArchivePath))
	}
	if report.LogPath != "" {
		summary = append(summary, styles.MutedStyle.Render("Log:     ")+styles.TextStyle.Render(report.LogPath))
	}
	b.WriteString(styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, summary...)))
	b.WriteString("\n")

	b.WriteString(statusLine(report))
	b.WriteString("\n")
	return b.String()
}

// ItemsTable lists item outcomes with destinations relative to baseDir.
func ItemsTable(baseDir string, items []data.ItemOutcome) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Secondary)).
		Headers("ITEM", "BUCKET", "ZONE", "STATUS", "DESTINATION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Foreground(styles.Primary).Bold(true).Padding(0, 1)
			}
			if col == 3 && row >= 0 && row < len(items) {
				return styles.StatusStyle(items[row].Status).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, item := range items {
		dest := item.DestinationDir
		if rel, err := filepath.Rel(baseDir, dest); err == nil {
			dest = rel
		}
		zone := string(item.Zone)
		if zone == "" {
			zone = "-"
		}
		t.Row(item.ItemKey, item.Bucket.String(), zone, item.Status, filepath.ToSlash(dest))
	}
	return t.Render()
}

// ManifestView shows which top-level pack files made it into the output.
func ManifestView(m *data.OutputManifest) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, entry := range m.Entries {
		var mark string
		switch {
		case entry.Expected && entry.Present:
			mark = styles.StatusCompleted.Render("✓")
		case entry.Expected:
			mark = styles.StatusError.Render("✗")
		default:
			mark = styles.MutedStyle.Render("-")
		}
		fmt.Fprintf(&b, "%s %s\n", mark, entry.Name)
	}
	return b.String()
}

func statusLine(report *data.RunReport) string {
	failures := report.Failures()
	count := fmt.Sprintf("%d items, %d without metadata", len(report.Items), failures)

	switch {
	case !report.Success:
		return styles.StatusError.Render("Some files were not successfully copied. ") + styles.MutedStyle.Render(count)
	case failures > 0:
		return styles.StatusWarning.Render("Pack built with missing metadata. ") + styles.MutedStyle.Render(count)
	default:
		return styles.StatusCompleted.Render("All files were successfully copied and verified! ") + styles.MutedStyle.Render(count)
	}
}

func eventsView(events []data.Event) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString(styles.StatusStyle(e.Level).Render(strings.ToUpper(e.Level)))
		b.WriteString(" ")
		b.WriteString(styles.TextStyle.Render(e.Message))
		b.WriteString("\n")
	}
	return b.String()
}
