package domain

// SkipPolicy describes how an optional stage warns before being skipped.
type SkipPolicy struct {
	// Short is the one-line warning shown when a skip is requested.
	Short string `json:"short,omitempty" yaml:"short,omitempty"`
	// Reason is the detailed explanation of what skipping gives up.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	// WarnThreshold is how many times the warning is repeated before the
	// skip is permitted.
	WarnThreshold int `json:"warn_threshold,omitempty" yaml:"warn_threshold,omitempty"`
}

// StageNode is one unit of work in a workflow graph.
//
// Previous lists the ids of the stages whose artifacts this stage consumes.
// A nil Previous marks a root. An empty (non-nil) Previous is rejected by
// the parser: "no parents" is always expressed as null, never as [].
type StageNode struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Phase groups stages for progress reporting (e.g. "discovery").
	Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`

	// Previous holds parent ids in declaration order. The first entry is
	// the primary parent used for session path nesting.
	Previous []string `json:"previous,omitempty" yaml:"previous,omitempty"`

	// Optional stages may be skipped; a skipped stage materializes a
	// sentinel instead of a real artifact.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`

	// Structural stages exist only to converge or gate topology and are
	// invisible in session paths.
	Structural bool `json:"structural,omitempty" yaml:"structural,omitempty"`

	// Produces lists the artifact filenames this stage materializes.
	// Never empty for a parsed node.
	Produces []string `json:"produces" yaml:"produces"`

	// Defaults are the stage's default parameters. Scripts merge their
	// overrides on top of these.
	Defaults map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	// Instructions is the operator-facing markdown for this stage.
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`

	// Commands lists the verbs that make this stage executable.
	Commands []string `json:"commands,omitempty" yaml:"commands,omitempty"`

	// Handler names a delegated executor for this stage, if any.
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty"`

	SkipPolicy *SkipPolicy `json:"skip_policy,omitempty" yaml:"skip_policy,omitempty"`

	// Parameters is the effective parameter set for this node. For a
	// manifest node it mirrors Defaults; script parsing replaces it with
	// the merged overlay.
	Parameters StageParameters `json:"parameters" yaml:"parameters"`
}

// IsRoot reports whether the node declares no parents.
func (n *StageNode) IsRoot() bool {
	return n.Previous == nil
}

// PrimaryParent returns the first declared parent id, or "" for a root.
func (n *StageNode) PrimaryParent() string {
	if len(n.Previous) == 0 {
		return ""
	}
	return n.Previous[0]
}

// Clone returns a deep copy of the node. Parameter and default maps are
// value-copied so overlays never mutate the originals.
func (n *StageNode) Clone() *StageNode {
	c := *n
	c.Previous = append([]string(nil), n.Previous...)
	c.Produces = append([]string(nil), n.Produces...)
	c.Commands = append([]string(nil), n.Commands...)
	if n.Defaults != nil {
		c.Defaults = make(map[string]any, len(n.Defaults))
		for k, v := range n.Defaults {
			c.Defaults[k] = v
		}
	}
	if n.SkipPolicy != nil {
		p := *n.SkipPolicy
		c.SkipPolicy = &p
	}
	c.Parameters = n.Parameters.Clone()
	return &c
}
