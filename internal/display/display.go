// Package display provides terminal formatting for scout output.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/daviddao/scout/internal/types"
)

var (
	// Styles
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	Warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	Accent   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563eb"))

	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563eb"))
	SentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	FailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	ClosedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
)

// StatusDot returns a colored dot for a candidate status.
func StatusDot(s types.Status) string {
	switch s {
	case types.StatusPendingReview:
		return PendingStyle.Render("●")
	case types.StatusSending:
		return Warn.Render("◐")
	case types.StatusSent, types.StatusReplied:
		return SentStyle.Render("✓")
	case types.StatusFailed, types.StatusBounced:
		return FailedStyle.Render("✗")
	case types.StatusDismissed, types.StatusRejected, types.StatusOOO:
		return ClosedStyle.Render("◌")
	default:
		return Dim.Render("·")
	}
}

// StatusLabel returns a styled, fixed-width status label.
func StatusLabel(s types.Status) string {
	label := fmt.Sprintf("%-14s", strings.ToUpper(strings.ReplaceAll(string(s), "_", " ")))
	switch s {
	case types.StatusPendingReview:
		return PendingStyle.Render(label)
	case types.StatusSending:
		return Warn.Render(label)
	case types.StatusSent, types.StatusReplied:
		return SentStyle.Render(label)
	case types.StatusFailed, types.StatusBounced:
		return FailedStyle.Render(label)
	default:
		return ClosedStyle.Render(label)
	}
}

// ConfidenceBar renders a 0..1 confidence as a ten-cell bar plus percentage.
func ConfidenceBar(c float64) string {
	c = max(0, min(1, c))
	filled := int(c*10 + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
	style := Muted
	switch {
	case c >= 0.75:
		style = Success
	case c >= 0.5:
		style = Warn
	}
	return style.Render(bar) + Dim.Render(fmt.Sprintf(" %3.0f%%", c*100))
}

// TimeAgo formats an ISO date string as a relative time.
func TimeAgo(isoDate string) string {
	if isoDate == "" {
		return ""
	}

	var t time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", time.RFC3339Nano} {
		t, err = time.Parse(layout, isoDate)
		if err == nil {
			break
		}
	}
	if err != nil {
		return isoDate[:min(10, len(isoDate))]
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Truncate shortens s to maxLen runes, adding an ellipsis if needed.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(Success.Render("✓") + " " + msg)
}

// ErrorMsg prints a red X + message to stderr.
func ErrorMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, ErrStyle.Render("✗")+" "+msg)
}

// WarnMsg prints an amber bang + message to stderr.
func WarnMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, Warn.Render("!")+" "+msg)
}

// Header prints a section header.
func Header(title string) {
	fmt.Println(Bold.Render(title))
}

// SubHeader prints a dim subsection label.
func SubHeader(title string) {
	fmt.Println(Muted.Render(title))
}

// CandidateLine is the one-line queue row for a candidate.
func CandidateLine(c types.Candidate, marks ...string) string {
	who := c.Name
	if who == "" {
		who = c.ID
	}
	org := c.Company
	if c.Title != "" && org != "" {
		org = c.Title + " @ " + org
	} else if c.Title != "" {
		org = c.Title
	}
	line := fmt.Sprintf("%s %s %-24s %s", StatusDot(c.Status), StatusLabel(c.Status),
		Truncate(who, 24), Dim.Render(Truncate(org, 40)))
	if len(marks) > 0 {
		line += "  " + Accent.Render(strings.Join(marks, " "))
	}
	return line + "  " + Muted.Render(c.ID)
}

// DraftBlock renders a draft as an indented tree: subject on the first line,
// then up to maxLines body lines. maxLines <= 0 shows the whole body.
func DraftBlock(d *types.Draft, maxLines int) string {
	if d == nil {
		return "  " + Dim.Render("(no draft)") + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s\n", Muted.Render("┌─"), Bold.Render(d.Subject))
	lines := strings.Split(strings.TrimSpace(d.Body), "\n")
	for i, line := range lines {
		if maxLines > 0 && i >= maxLines {
			fmt.Fprintf(&b, "%s%s\n", Muted.Render("  │  "), Dim.Render(fmt.Sprintf("... (%d more lines)", len(lines)-maxLines)))
			break
		}
		fmt.Fprintf(&b, "%s%s\n", Muted.Render("  │  "), strings.TrimRight(line, " \t"))
	}
	if d.AssetHTML != "" {
		fmt.Fprintf(&b, "  %s %s\n", Muted.Render("└─"), Dim.Render(fmt.Sprintf("+ html asset (%d bytes)", len(d.AssetHTML))))
	} else {
		fmt.Fprintf(&b, "  %s\n", Muted.Render("└─"))
	}
	return b.String()
}

// OutreachLine summarizes outreach status.
func OutreachLine(st *types.OutreachStatus) string {
	if st == nil {
		return Dim.Render("outreach status unknown")
	}
	conn := Success.Render("outlook connected")
	if !st.OutlookConnected {
		conn = ErrStyle.Render("outlook disconnected")
	}
	state := Success.Render(st.Status)
	if st.Status == types.OutreachPaused {
		state = Warn.Render(st.Status)
	}
	line := fmt.Sprintf("%s · %s", state, conn)
	if st.WarningDue {
		line += " · " + Warn.Render("warning due")
	}
	return line
}
