package domain

import "time"

// ArtifactEnvelope is the persisted record of one stage execution.
//
// The on-disk JSON shape is frozen for compatibility: exactly the fields
// stage, timestamp, parameters_used, content, _fingerprint and
// _parent_fingerprints. External consumers read content and _fingerprint;
// the shape of _parent_fingerprints may evolve and must not be relied on
// outside this module.
//
// Envelopes are created exactly once per execution and never mutated.
// Re-execution creates a new envelope on a branch path; superseded
// envelopes remain in the store for audit.
type ArtifactEnvelope struct {
	Stage              string            `json:"stage"`
	Timestamp          time.Time         `json:"timestamp"`
	ParametersUsed     map[string]any    `json:"parameters_used"`
	Content            any               `json:"content"`
	Fingerprint        string            `json:"_fingerprint"`
	ParentFingerprints map[string]string `json:"_parent_fingerprints"`
}

// SkipSentinel is the placeholder written in place of an envelope when an
// optional stage is skipped. It shares the stage/timestamp fields so audit
// tooling can list it alongside real envelopes.
type SkipSentinel struct {
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Skipped   bool      `json:"skipped"`
	Reason    string    `json:"reason,omitempty"`
}
