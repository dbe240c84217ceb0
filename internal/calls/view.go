package calls

import (
	"fmt"
	"strings"
)

// WindowSize is how many calls preceding the current one the board keeps.
const WindowSize = 5

// View is the board state derived from one snapshot.
type View struct {
	Current *Record  // nil while waiting for the first call
	Recent  []Record // at most WindowSize, never includes Current
}

// DeriveView computes the board state from a snapshot ordered newest first.
func DeriveView(snapshot []Record) View {
	if len(snapshot) == 0 {
		return View{Recent: []Record{}}
	}

	current := snapshot[0]
	end := min(len(snapshot), 1+WindowSize)

	recent := make([]Record, end-1)
	copy(recent, snapshot[1:end])

	return View{Current: &current, Recent: recent}
}

// Abbreviate shortens a full name for the recent list: the first word plus
// the initial of the last one ("Maria Silva Souza" becomes "Maria S.").
// Single-word names are returned unchanged.
func Abbreviate(name string) string {
	parts := strings.Split(name, " ")
	if len(parts) == 1 {
		return name
	}

	last := parts[len(parts)-1]
	initial := ""
	for _, r := range last {
		initial = string(r)
		break
	}
	return parts[0] + " " + initial + "."
}

// Phrase renders the spoken announcement for a call. Values are used
// verbatim; the producer owns data quality.
func Phrase(name, room string) string {
	return fmt.Sprintf("Attention, %s, room %s", name, room)
}
