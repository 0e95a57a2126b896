package entity

import "time"

type State string

const (
	StateAtQuestion State = "at_question"
	StateAtLeaf     State = "at_leaf"
	StateWon        State = "won"
	StateLost       State = "lost"
)

// Session is one player's walk through the tree. StepCount always equals
// len(History)+1.
type Session struct {
	ID            string    `json:"id"`
	CurrentNodeID int64     `json:"current_node_id"`
	History       []int64   `json:"history"`
	StepCount     int       `json:"step_count"`
	State         State     `json:"state"`
	PendingTitle  string    `json:"pending_title,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewSession(id string) *Session {
	session := &Session{ID: id}
	session.Reset()

	return session
}

// Reset moves the session back to the root with an empty history.
// State is resolved by the caller once the root node has been read.
func (that *Session) Reset() {
	that.CurrentNodeID = RootID
	that.History = []int64{}
	that.StepCount = 1
	that.State = ""
	that.PendingTitle = ""
}

func (that *Session) Push(next int64) {
	that.History = append(that.History, that.CurrentNodeID)
	that.StepCount++
	that.CurrentNodeID = next
}

// Pop restores the previously visited node. It reports false and leaves
// the session untouched when the history is empty.
func (that *Session) Pop() bool {
	if len(that.History) == 0 {
		return false
	}

	last := len(that.History) - 1
	that.CurrentNodeID = that.History[last]
	that.History = that.History[:last]
	that.StepCount--

	return true
}

func (that *Session) IsTerminal() bool {
	return that.State == StateWon || that.State == StateLost
}

// ResolveState derives the non-terminal state from the kind of the current node.
func (that *Session) ResolveState(node *Node) {
	if node.IsQuestion() {
		that.State = StateAtQuestion
		return
	}

	that.State = StateAtLeaf
}
