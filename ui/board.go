package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/callboard/internal/calls"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

const ellipsis = "…"

var (
	darkGreen = lipgloss.Color("#00532E")
	paleGreen = lipgloss.Color("#E8F5E9")
	midGreen  = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}
	faintFg   = lipgloss.AdaptiveColor{Light: "#9E9E9E", Dark: "#5A5A5A"}
	noteFg    = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBg  = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(paleGreen).
			Background(darkGreen).
			Padding(0, 2)

	hintStyle = lipgloss.NewStyle().Foreground(noteFg)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(paleGreen).
			Background(darkGreen)

	currentNameStyle = lipgloss.NewStyle().Bold(true).Foreground(midGreen)
	currentDimStyle  = lipgloss.NewStyle().Bold(true).Foreground(faintFg)
	roomStyle        = lipgloss.NewStyle().Bold(true)
	ageStyle         = lipgloss.NewStyle().Foreground(noteFg).Italic(true)
	recentRoomStyle  = lipgloss.NewStyle().Foreground(midGreen)
	emptyStyle       = lipgloss.NewStyle().Foreground(faintFg)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	spinnerStyle     = lipgloss.NewStyle().Foreground(midGreen)

	statusBarStyle = lipgloss.NewStyle().Foreground(noteFg).Background(statusBg)
	statusLogo     = lipgloss.NewStyle().
			Foreground(paleGreen).
			Background(darkGreen).
			Padding(0, 1).
			Render("Callboard")
)

func (m model) lockedView() string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Patient Call System"),
		"",
		hintStyle.Render("Press enter to start the call screen and enable audio"),
	)
	if m.height == 0 {
		return body + "\n"
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m model) boardView() string {
	var b strings.Builder

	b.WriteString(header("CURRENT CALL", m.width))
	b.WriteString("\n\n")
	m.currentView(&b)
	b.WriteString("\n")

	b.WriteString(header("RECENT CALLS", m.width))
	b.WriteString("\n\n")
	m.recentView(&b)

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(truncate.StringWithTail(m.err.Error(), uint(max(m.width, 1)), ellipsis))) //nolint:gosec
		b.WriteString("\n")
	}

	body := b.String()
	if m.height > 0 {
		// pin the status bar to the bottom
		if pad := m.height - lipgloss.Height(body) - 1; pad > 0 {
			body += strings.Repeat("\n", pad)
		}
	}
	return body + m.statusBarView()
}

func header(title string, width int) string {
	return headerStyle.Width(width).Align(lipgloss.Center).Render(title)
}

func (m model) currentView(b *strings.Builder) {
	cur := m.view.Current
	if cur == nil {
		fmt.Fprintf(b, "  %s Waiting for call...\n", m.spinner.View())
		return
	}

	name := truncate.StringWithTail(m.upper.String(cur.Name), uint(max(m.width-4, 1)), ellipsis) //nolint:gosec
	if m.blinkOn {
		name = currentNameStyle.Render(name)
	} else {
		name = currentDimStyle.Render(name)
	}
	fmt.Fprintf(b, "  %s\n", name)
	fmt.Fprintf(b, "  %s\n", roomStyle.Render("ROOM: "+cur.Room))
	if !cur.Timestamp.IsZero() {
		age := humanize.RelTime(cur.Timestamp, m.now(), "ago", "from now")
		fmt.Fprintf(b, "  %s\n", ageStyle.Render("called "+age))
	}
}

func (m model) recentView(b *strings.Builder) {
	if len(m.view.Recent) == 0 {
		b.WriteString("  " + emptyStyle.Render("No recent calls") + "\n")
		return
	}
	for _, rec := range m.view.Recent {
		b.WriteString(recentLine(m.upper.String(calls.Abbreviate(rec.Name)), "Room "+rec.Room, m.width))
		b.WriteString("\n")
	}
}

// recentLine renders name left and room right aligned within width,
// truncating the name when the two do not fit.
func recentLine(name, room string, width int) string {
	const margin = 2

	roomWidth := runewidth.StringWidth(room)
	avail := width - 2*margin - roomWidth - 1
	if avail < 1 {
		avail = 1
	}
	name = truncate.StringWithTail(name, uint(avail), ellipsis) //nolint:gosec

	gap := width - 2*margin - runewidth.StringWidth(name) - roomWidth
	if gap < 1 {
		gap = 1
	}
	pad := strings.Repeat(" ", margin)
	return pad + name + strings.Repeat(" ", gap) + recentRoomStyle.Render(room) + pad
}

func (m model) statusBarView() string {
	var audio string
	switch {
	case m.gate.Locked():
		audio = "audio locked"
	case m.engine == "":
		audio = "speech disabled"
	default:
		audio = "audio on (" + m.engine + ")"
	}

	note := " " + audio
	if m.storePath != "" {
		note += " · " + m.storePath
	}
	help := " r refresh · q quit "

	w := lipgloss.Width
	avail := max(m.width-w(statusLogo)-w(help), 0)
	note = truncate.StringWithTail(note, uint(avail), ellipsis) //nolint:gosec
	note += strings.Repeat(" ", max(avail-w(note), 0))

	return statusLogo + statusBarStyle.Render(note) + statusBarStyle.Render(help)
}
