package def

// Rule timings relative to an event's default engine behavior.
const (
	TimingPre     = "pre"
	TimingPost    = "post" // default
	TimingReplace = "replace"
)

// once_per windows.
const (
	OncePerTurn  = "turn"
	OncePerPhase = "phase"
	OncePerGame  = "game"
)

// Rule is one trigger-condition-effect rule.
//
// Trigger is an event-tag pattern: "on.<tag>" matches the exact tag or, for
// a family tag, every sub-kind ("on.move" matches "move.deal" too).
// EnabledWhen is a silent pre-filter; Condition gates firing. Effect is the
// ordered action list executed on firing; StoreAs captures the result of the
// last action in that effect.
type Rule struct {
	ID          string   `yaml:"id" json:"id"`
	Trigger     string   `yaml:"trigger" json:"trigger"`
	Priority    int      `yaml:"priority,omitempty" json:"priority,omitempty"`
	Timing      string   `yaml:"timing,omitempty" json:"timing,omitempty"`
	OncePer     string   `yaml:"once_per,omitempty" json:"once_per,omitempty"`
	EnabledWhen *Expr    `yaml:"enabled_when,omitempty" json:"enabled_when,omitempty"`
	Condition   *Expr    `yaml:"condition,omitempty" json:"condition,omitempty"`
	Effect      []Action `yaml:"effect" json:"effect"`
	OnFailure   string   `yaml:"on_failure,omitempty" json:"on_failure,omitempty"`
	StoreAs     string   `yaml:"store_as,omitempty" json:"store_as,omitempty"`
}

// EffectiveTiming returns the rule's timing, defaulting to post.
func (r *Rule) EffectiveTiming() string {
	if r.Timing == "" {
		return TimingPost
	}
	return r.Timing
}

// EffectiveOnFailure returns the rule's failure policy, defaulting to abort.
func (r *Rule) EffectiveOnFailure() string {
	if r.OnFailure == "" {
		return FailAbort
	}
	return r.OnFailure
}
