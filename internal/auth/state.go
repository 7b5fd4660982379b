// Package auth owns the operator session: the only component allowed to move
// between anonymous and authenticated.
package auth

import (
	"github.com/memberdesk/memberdesk/internal/models"
)

// Status is the coarse session state
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
)

// State is the full session record. Every settle replaces it as a whole.
type State struct {
	Token           string       `json:"token"`
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	IsLoading       bool         `json:"isLoading"`
	Error           string       `json:"error,omitempty"`
}

// Status derives the coarse state from the record
func (s State) Status() Status {
	switch {
	case s.IsAuthenticated:
		return StatusAuthenticated
	case s.IsLoading:
		return StatusAuthenticating
	default:
		return StatusAnonymous
	}
}

// EventKind names a session transition
type EventKind string

const (
	EventStarted       EventKind = "started"
	EventAuthenticated EventKind = "authenticated"
	EventDenied        EventKind = "denied"
	EventFailed        EventKind = "failed"
	EventCleared       EventKind = "cleared"
	EventErrorCleared  EventKind = "error_cleared"
	EventRestored      EventKind = "restored"
)

// Event is the input to Transition
type Event struct {
	Kind    EventKind
	Token   string
	User    *models.User
	Message string
}

// Transition computes the next session record. It has no side effects; the
// store decides whether the result is committed and persists it afterwards.
func Transition(s State, e Event) State {
	switch e.Kind {
	case EventStarted:
		next := s
		next.IsLoading = true
		next.Error = ""
		return next

	case EventAuthenticated, EventRestored:
		if e.Token == "" || !e.User.IsSuperAdmin() {
			if e.Kind == EventRestored {
				// A half-written record keeps its token so checkAuth can still verify it
				return State{Token: e.Token}
			}
			return State{Error: accessDeniedMessage}
		}
		user := *e.User
		return State{
			Token:           e.Token,
			User:            &user,
			IsAuthenticated: true,
		}

	case EventDenied:
		msg := e.Message
		if msg == "" {
			msg = accessDeniedMessage
		}
		return State{Error: msg}

	case EventFailed:
		return State{Error: e.Message}

	case EventCleared:
		return State{}

	case EventErrorCleared:
		next := s
		next.Error = ""
		return next
	}

	return s
}
