package def

// Action names. Like operators, the action vocabulary is closed.
const (
	// Movement.
	ActMove           = "MOVE"
	ActMoveAll        = "MOVE_ALL"
	ActDeal           = "DEAL"
	ActDealRoundRobin = "DEAL_ROUND_ROBIN"
	ActDealAll        = "DEAL_ALL"
	ActMill           = "MILL"

	// Visibility and face.
	ActReveal  = "REVEAL"
	ActConceal = "CONCEAL"
	ActFlip    = "FLIP"
	ActPeek    = "PEEK"
	ActLook    = "LOOK"

	// Randomization and ordering.
	ActShuffle        = "SHUFFLE"
	ActReorder        = "REORDER"
	ActChooseRandom   = "CHOOSE_RANDOM"
	ActSearchZone     = "SEARCH_ZONE"
	ActRevealMatching = "REVEAL_MATCHING"

	// Variables and flow state.
	ActSetVariable  = "SET_VARIABLE"
	ActIncrement    = "INCREMENT"
	ActSetState     = "SET_STATE"
	ActSetGameState = "SET_GAME_STATE" // alias of SET_STATE
	ActSetPhase     = "SET_PHASE"

	// Flow modifiers.
	ActSkipTurn     = "SKIP_TURN"
	ActExtraTurn    = "EXTRA_TURN"
	ActReverseOrder = "REVERSE_ORDER"
	ActInsertPhase  = "INSERT_PHASE"
	ActRemovePhase  = "REMOVE_PHASE"

	// External input.
	ActRequestInput = "REQUEST_INPUT"

	// Control structures.
	ActForEachPlayer = "FOR_EACH_PLAYER"
	ActForEach       = "FOR_EACH"
	ActParallel      = "PARALLEL"
	ActIf            = "IF"
)

// KnownActions is the full action vocabulary.
var KnownActions = map[string]bool{
	ActMove: true, ActMoveAll: true, ActDeal: true, ActDealRoundRobin: true,
	ActDealAll: true, ActMill: true,
	ActReveal: true, ActConceal: true, ActFlip: true, ActPeek: true, ActLook: true,
	ActShuffle: true, ActReorder: true, ActChooseRandom: true,
	ActSearchZone: true, ActRevealMatching: true,
	ActSetVariable: true, ActIncrement: true, ActSetState: true,
	ActSetGameState: true, ActSetPhase: true,
	ActSkipTurn: true, ActExtraTurn: true, ActReverseOrder: true,
	ActInsertPhase: true, ActRemovePhase: true,
	ActRequestInput: true,
	ActForEachPlayer: true, ActForEach: true, ActParallel: true, ActIf: true,
}

// Failure policies for effects and PARALLEL blocks.
const (
	FailAbort    = "abort"
	FailContinue = "continue"
	FailRollback = "rollback"
)

// Iteration orders.
const (
	OrderSeating      = "seating"
	OrderSimultaneous = "simultaneous"
)

// Action is one atomic action specification: a tagged variant discriminated
// by its action: name. Only the fields relevant to the named action are
// populated; the runtime validator rejects specs whose required fields are
// missing.
type Action struct {
	Op string `yaml:"action" json:"action"`

	// Movement: From/To are selectors; Count bounds the transfer (fewer
	// available cards than requested transfers what exists unless Exact);
	// Filter restricts eligible source cards, with each candidate bound
	// as $.card during its evaluation.
	From   string   `yaml:"from,omitempty" json:"from,omitempty"`
	To     string   `yaml:"to,omitempty" json:"to,omitempty"`
	Count  *Operand `yaml:"count,omitempty" json:"count,omitempty"`
	Exact  bool     `yaml:"exact,omitempty" json:"exact,omitempty"`
	Filter *Expr    `yaml:"filter,omitempty" json:"filter,omitempty"`

	// Recipients selects players for DEAL-family actions and
	// FOR_EACH_PLAYER; Order is the iteration order (seating direction or
	// simultaneous).
	Recipients string `yaml:"recipients,omitempty" json:"recipients,omitempty"`
	Order      string `yaml:"order,omitempty" json:"order,omitempty"`

	// Target selects cards or a zone for visibility, face, and
	// randomization actions. Viewers selects players for PEEK/LOOK.
	Target  string `yaml:"target,omitempty" json:"target,omitempty"`
	Viewers string `yaml:"viewers,omitempty" json:"viewers,omitempty"`
	Face    string `yaml:"face,omitempty" json:"face,omitempty"`
	Max     int    `yaml:"max,omitempty" json:"max,omitempty"`

	// Variable and flow-state fields.
	Name  string   `yaml:"name,omitempty" json:"name,omitempty"`
	Value *Operand `yaml:"value,omitempty" json:"value,omitempty"`
	State string   `yaml:"state,omitempty" json:"state,omitempty"`
	Phase string   `yaml:"phase,omitempty" json:"phase,omitempty"`
	Index int      `yaml:"index,omitempty" json:"index,omitempty"`

	// Player selects the player a flow modifier applies to.
	Player string `yaml:"player,omitempty" json:"player,omitempty"`

	// REQUEST_INPUT fields. Options is evaluated to the legal choice set
	// before the effect suspends.
	Prompt      string   `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Options     *Operand `yaml:"options,omitempty" json:"options,omitempty"`
	Multiselect bool     `yaml:"multiselect,omitempty" json:"multiselect,omitempty"`

	// Control-structure fields.
	Over      *Operand   `yaml:"over,omitempty" json:"over,omitempty"`
	Do        []Action   `yaml:"do,omitempty" json:"do,omitempty"`
	Condition *Expr      `yaml:"condition,omitempty" json:"condition,omitempty"`
	Then      []Action   `yaml:"then,omitempty" json:"then,omitempty"`
	Else      []Action   `yaml:"else,omitempty" json:"else,omitempty"`
	Branches  [][]Action `yaml:"branches,omitempty" json:"branches,omitempty"`
	Wait      string     `yaml:"wait,omitempty" json:"wait,omitempty"`

	// OnFailure overrides the enclosing failure policy for PARALLEL blocks.
	OnFailure string `yaml:"on_failure,omitempty" json:"on_failure,omitempty"`

	// StoreAs binds the action's result value in the temporary binding
	// table for the remainder of the enclosing effect.
	StoreAs string `yaml:"store_as,omitempty" json:"store_as,omitempty"`
}
