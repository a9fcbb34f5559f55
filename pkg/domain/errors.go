package domain

import "errors"

// ErrStageNotFound is returned when an id does not resolve to a node in the
// graph definition.
var ErrStageNotFound = errors.New("stage not found")

// ErrArtifactExists is returned by stores when an atomic create hits an
// existing path. The provenance engine reacts by branching, never by
// overwriting.
var ErrArtifactExists = errors.New("artifact already exists")

// ErrArtifactNotFound is returned by stores when a read targets a path
// that does not exist. The readiness engine degrades it to "not complete".
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrNoEnvelope is returned when a stage has no materialized envelope yet.
var ErrNoEnvelope = errors.New("no envelope materialized")
