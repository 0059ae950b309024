package history

// Phase is the coarse state of a file's history.
type Phase int

const (
	// NoHistory: the file has not been mutated since creation or deletion.
	NoHistory Phase = iota
	// HasHistory: snapshots 0..Counter exist.
	HasHistory
)

func (p Phase) String() string {
	switch p {
	case NoHistory:
		return "no-history"
	case HasHistory:
		return "has-history"
	default:
		return "unknown"
	}
}

// State is a file's position in the history state machine:
//
//	NoHistory -> HasHistory(0) -> HasHistory(1) -> ...
//	HasHistory(n) -(unlink)-> NoHistory
type State struct {
	Phase   Phase
	Counter uint64
	// Area is set when a history area directory exists. A NoHistory state
	// with Area set is an area whose first snapshot was never committed.
	Area bool
}

// Next is the state after one more recorded mutation.
func (s State) Next() State {
	if s.Phase == NoHistory {
		return State{Phase: HasHistory, Counter: 0, Area: true}
	}
	return State{Phase: HasHistory, Counter: s.Counter + 1, Area: true}
}
