package session

import (
	"github.com/jrsteele09/resume-client/users"
)

// Status is the state machine position derived from a Session.
type Status int

const (
	StatusAnonymous Status = iota
	StatusAuthenticating
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session is the client's authentication state. IsAuthenticated implies both
// tokens and User are present.
type Session struct {
	User            *users.User
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
}

func (s Session) Status() Status {
	switch {
	case s.IsLoading:
		return StatusAuthenticating
	case s.IsAuthenticated:
		return StatusAuthenticated
	default:
		return StatusAnonymous
	}
}

// clone copies the session so callers never share the cached User.
func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
