package bot

import (
	"sync"

	"github.com/VladChristmas/bot/internal/models"
)

// State enumerates the steps of the admin conversation. Transitions are
// driven by the handlers in bot.go; there is no hidden state beyond
// the session itself.
type State int

const (
	StateIdle State = iota
	StateTaskText
	StateTaskMedia
	StateRecipientKind
	StateSelectChats
	StateSelectGroups
	StateGroupName
	StateGroupAddChats
)

// SelectionKind says what the checkbox list currently shows.
type SelectionKind string

const (
	SelectChats  SelectionKind = "chats"
	SelectGroups SelectionKind = "groups"
)

// Session is the conversational state of one administrator: current
// step, the task being composed, the checkbox selection and the
// navigation history for the back button.
type Session struct {
	State    State
	TaskText string
	Media    []models.MediaItem
	Kind     SelectionKind
	Selected map[string]bool
	GroupID  int64 // group currently being filled with chats
	History  []State
}

// Push records the current state before a transition so Back can
// return to it.
func (s *Session) Push(next State) {
	s.History = append(s.History, s.State)
	s.State = next
}

// Back pops the previous state; with an empty history it lands on the
// main menu.
func (s *Session) Back() State {
	if len(s.History) == 0 {
		s.State = StateIdle
		return StateIdle
	}
	prev := s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]
	s.State = prev
	return prev
}

// Reset clears everything back to the main menu.
func (s *Session) Reset() {
	*s = Session{State: StateIdle, Selected: make(map[string]bool)}
}

// SessionStore holds per-user sessions. The bot recognizes a single
// admin, but keying by user keeps the store honest.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Get returns the session for the user, creating it on first use.
func (st *SessionStore) Get(userID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	if !ok {
		s = &Session{State: StateIdle, Selected: make(map[string]bool)}
		st.sessions[userID] = s
	}
	return s
}
