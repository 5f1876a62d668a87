package conversation

// Turn is one utterance in a call, either from the caller or from the agent.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// State tracks where a call session is in its lifecycle.
type State int

const (
	// StateAwaitingFirstInput means the greeting has played but the caller
	// has not said anything the engine accepted yet.
	StateAwaitingFirstInput State = iota
	StateInConversation
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstInput:
		return "awaiting_first_input"
	case StateInConversation:
		return "in_conversation"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TurnRequest carries one caller utterance into the engine.
type TurnRequest struct {
	CallID      string
	CallerPhone string
	Utterance   string
	Confidence  float64
}

// TurnResult is what the engine wants spoken back, and whether the call
// should be wrapped up after speaking it.
type TurnResult struct {
	Reply   string
	EndCall bool
}
