package domain

import (
	"fmt"
)

// Document is the shared state of one session: the full text, an optional
// language tag and a version counter that advances by exactly one for each
// accepted edit.
type Document struct {
	Text     string
	Language *string
	Version  int
}

// Participant is one connection joined to a session. The color is derived
// deterministically from the connection identifier.
type Participant struct {
	ID    string
	Color string
}

func NewParticipant(id string) Participant {
	return Participant{
		ID:    id,
		Color: ColorFor(id),
	}
}

// ColorFor maps an identifier to a stable hsl() color string. The mapping is
// purely cosmetic; it only needs to be deterministic so every client renders
// the same participant with the same hue.
func ColorFor(id string) string {
	hash := 0
	for _, c := range id {
		hash = int(c) + (hash << 5) - hash
	}
	hue := hash % 360
	if hue < 0 {
		hue += 360
	}
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", hue)
}

// Position is a cursor location inside the document.
type Position struct {
	LineNumber int
	Column     int
}

// LineRange is an inclusive, 1-indexed span of document lines.
type LineRange struct {
	StartLine int
	EndLine   int
}
