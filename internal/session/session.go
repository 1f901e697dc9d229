// Package session tracks who is signed in. A Context is created once per
// process (or per request scope) and passed explicitly to the code that needs
// the current user; there is no global session.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cella-health/cella/pkg/types"
)

// State is the authentication state of a Context.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState returns the State named s.
func ParseState(s string) (State, error) {
	switch strings.ToLower(s) {
	case "anonymous":
		return Anonymous, nil
	case "authenticating":
		return Authenticating, nil
	case "authenticated":
		return Authenticated, nil
	}
	return 0, fmt.Errorf("%w: %q", types.ErrInvalidState, s)
}

// Session describes a signed-in user.
type Session struct {
	UserID string
	Email  string
	Role   string
}

// Observer is notified after every state change.
type Observer func(from, to State, s Session)

// Context holds the current state and session. It is safe for concurrent use.
type Context struct {
	mu        sync.RWMutex
	state     State
	session   Session
	observers []Observer
}

// New returns an anonymous Context.
func New() *Context {
	return &Context{}
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Session returns the current session; it is the zero Session unless the
// state is Authenticated.
func (c *Context) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// UserID returns the owner filter for reads made on behalf of the signed-in
// user, or types.NoOwner when nobody is signed in.
func (c *Context) UserID() types.OwnerFilter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != Authenticated {
		return types.NoOwner
	}
	return types.OwnerFilter(c.session.UserID)
}

// Observe registers fn to run after each transition.
func (c *Context) Observe(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Begin moves an anonymous context to Authenticating.
func (c *Context) Begin() error {
	return c.transition(Authenticating, Session{}, Anonymous)
}

// Complete finishes sign-in with s. s.UserID must be set.
func (c *Context) Complete(s Session) error {
	if s.UserID == "" {
		return types.ErrInvalidID
	}
	return c.transition(Authenticated, s, Authenticating)
}

// Fail abandons a sign-in in progress.
func (c *Context) Fail() error {
	return c.transition(Anonymous, Session{}, Authenticating)
}

// SignOut clears the session of an authenticated context.
func (c *Context) SignOut() error {
	return c.transition(Anonymous, Session{}, Authenticated)
}

func (c *Context) transition(to State, s Session, from State) error {
	c.mu.Lock()
	if c.state != from {
		cur := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", types.ErrInvalidTransition, cur, to)
	}
	c.state = to
	c.session = s
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(from, to, s)
	}
	return nil
}
