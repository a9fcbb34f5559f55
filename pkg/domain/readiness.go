package domain

// NodeReadiness is the point-in-time execution state of one stage against
// the artifact store. Computed on every query, never cached: the store can
// change between calls from outside the engine's control.
type NodeReadiness struct {
	Stage string `json:"stage"`
	Phase string `json:"phase,omitempty"`

	// Ready: every parent is complete or skipped. Roots are always ready.
	Ready bool `json:"ready"`
	// Complete: the stage's artifact (or skip sentinel) exists.
	Complete bool `json:"complete"`
	// Skipped: completeness came from a skip sentinel, not a real artifact.
	Skipped bool `json:"skipped"`
	// Stale: complete, but an upstream artifact changed after this one was
	// produced.
	Stale bool `json:"stale"`

	// Warnings surfaces integrity problems (corrupt envelopes) distinctly
	// from plain absence.
	Warnings []string `json:"warnings,omitempty"`
}

// WorkflowPosition answers "what's done, what's next, what's blocked" for a
// whole graph. It is the single query surface collaborators should use;
// they must not re-derive readiness from raw artifact listings.
type WorkflowPosition struct {
	// CurrentStage is the first stage in declaration order that is ready
	// and not complete. Empty means blocked or finished.
	CurrentStage string `json:"current_stage,omitempty"`
	// Phase is the phase tag of the current stage, if any.
	Phase string `json:"phase,omitempty"`

	CompletedStages []string `json:"completed_stages"`
	// IsComplete: every terminal stage is complete.
	IsComplete bool `json:"is_complete"`

	CompletedCount int `json:"completed_count"`
	TotalCount     int `json:"total_count"`

	Warnings []string `json:"warnings,omitempty"`
}
