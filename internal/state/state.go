// Package state holds the viewer's application state. A State value is
// never modified in place; every transition returns a new value, so the
// session, error and selection always change together.
package state

import "github.com/Zuo-Peng/adk-session-viewer/internal/session"

type SourceKind string

const (
	SourceNone  SourceKind = ""
	SourceLocal SourceKind = "local"
	SourceDrive SourceKind = "drive"
)

// Source says where the active session came from: a local path or a
// Drive file id.
type Source struct {
	Kind SourceKind
	Ref  string
}

type State struct {
	Session *session.Session
	Source  Source
	Err     error
	Loading bool

	// Selection is the position in Session.Events of the inspected event,
	// valid while HasSelection is set. Event ids may be missing or repeated,
	// so they cannot identify the selection.
	Selection    int
	HasSelection bool
}

// LoadStarted marks a load in progress. Nothing else changes until the
// load finishes.
func (s State) LoadStarted() State {
	s.Loading = true
	return s
}

// LoadSucceeded replaces the session and clears the error and selection.
func (s State) LoadSucceeded(sess *session.Session, src Source) State {
	return State{Session: sess, Source: src}
}

// LoadFailed records the error and keeps the previous session, source and
// selection.
func (s State) LoadFailed(err error) State {
	s.Err = err
	s.Loading = false
	return s
}

// LoadCancelled ends a load that produced nothing, such as a dismissed
// picker. The previous error is kept.
func (s State) LoadCancelled() State {
	s.Loading = false
	return s
}

// Select inspects the event at the given position in Session.Events.
// Positions outside the session and user events leave the state unchanged.
func (s State) Select(index int) State {
	if s.Session == nil || index < 0 || index >= len(s.Session.Events) {
		return s
	}
	if s.Session.Events[index].IsUser() {
		return s
	}
	s.Selection = index
	s.HasSelection = true
	return s
}

func (s State) Deselect() State {
	s.Selection = 0
	s.HasSelection = false
	return s
}

// Reset closes the active session.
func (s State) Reset() State {
	return State{}
}

// Selected returns the inspected event.
func (s State) Selected() (session.Event, bool) {
	if !s.HasSelection || s.Session == nil || s.Selection >= len(s.Session.Events) {
		return session.Event{}, false
	}
	return s.Session.Events[s.Selection], true
}

// HasSession reports whether a session is loaded.
func (s State) HasSession() bool {
	return s.Session != nil
}
