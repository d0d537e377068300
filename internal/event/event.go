// Package event recognises players joining and leaving in Minecraft
// server log lines.
package event

import (
	"fmt"
	"regexp"
)

// Kind identifies which event a line described.
type Kind int

const (
	// Joined means a player entered the server.
	Joined Kind = iota + 1
	// Left means a player left the server.
	Left
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Joined:
		return "joined"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Event is a detected join or leave.
type Event struct {
	Kind  Kind
	Actor string
}

// Message is the notification text sent for the event.
func (e Event) Message() string {
	switch e.Kind {
	case Joined:
		return fmt.Sprintf("Player joined: %s", e.Actor)
	case Left:
		return fmt.Sprintf("Player left: %s", e.Actor)
	default:
		return fmt.Sprintf("Player %s: %s", e.Kind, e.Actor)
	}
}

// grammar pairs a line pattern with the kind it produces. The pattern's
// first capture group is the actor's display name.
type grammar struct {
	kind    Kind
	pattern *regexp.Regexp
}

var (
	joinPattern = regexp.MustCompile(`\[Server thread/INFO\]: (.*) joined the game`)
	quitPattern = regexp.MustCompile(`\[Server thread/INFO\]: (.*) left the game`)
)

// Matcher classifies log lines.
type Matcher struct {
	grammars []grammar
}

// NewMatcher returns a Matcher for the vanilla server's join and leave
// messages.
func NewMatcher() *Matcher {
	return &Matcher{grammars: []grammar{
		{kind: Joined, pattern: joinPattern},
		{kind: Left, pattern: quitPattern},
	}}
}

// Classify returns the events described by line. Every grammar is tried
// independently, so a line may produce more than one event. Lines that
// match nothing return nil.
func (m *Matcher) Classify(line string) []Event {
	var events []Event
	for _, g := range m.grammars {
		match := g.pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		events = append(events, Event{Kind: g.kind, Actor: match[1]})
	}
	return events
}
