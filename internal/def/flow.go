package def

// Player-order directions.
const (
	DirClockwise        = "clockwise"
	DirCounterclockwise = "counterclockwise"
)

// Phase-loop policies for a flow state.
const (
	// LoopCycle returns to the first phase after the last.
	LoopCycle = "cycle"
	// LoopHalt stops phase stepping after the last phase; a transition or
	// an external trigger must move the machine on.
	LoopHalt = "halt"
)

// Phase is one named step inside a flow state.
type Phase struct {
	Name string `yaml:"name" json:"name"`
}

// FlowState is an outer state of the two-level flow machine, owning an
// ordered phase list.
type FlowState struct {
	Name   string  `yaml:"name" json:"name"`
	Phases []Phase `yaml:"phases,omitempty" json:"phases,omitempty"`
	Loop   string  `yaml:"loop,omitempty" json:"loop,omitempty"`
}

// Transition moves the flow machine between states. Transitions are
// evaluated in declaration order at each checkpoint; the first whose From
// matches the current state and whose Condition evaluates true fires.
type Transition struct {
	ID        string `yaml:"id,omitempty" json:"id,omitempty"`
	From      string `yaml:"from" json:"from"`
	To        string `yaml:"to" json:"to"`
	Condition *Expr  `yaml:"condition,omitempty" json:"condition,omitempty"`
	Priority  int    `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// WinCondition yields a winner once its evaluator resolves to a non-empty
// result: a player id, an ordered ranking, or a {winners, reason} record.
type WinCondition struct {
	Evaluator *Expr `yaml:"evaluator" json:"evaluator"`
}

// Flow is the flow graph: states, transitions, win condition, and the
// player-order mode the session starts in.
type Flow struct {
	InitialState string        `yaml:"initial_state" json:"initial_state"`
	States       []FlowState   `yaml:"states" json:"states"`
	Transitions  []Transition  `yaml:"transitions,omitempty" json:"transitions,omitempty"`
	Win          *WinCondition `yaml:"win,omitempty" json:"win,omitempty"`
	Direction    string        `yaml:"direction,omitempty" json:"direction,omitempty"`
}

// State returns the named flow state, or nil.
func (f *Flow) State(name string) *FlowState {
	for i := range f.States {
		if f.States[i].Name == name {
			return &f.States[i]
		}
	}
	return nil
}
