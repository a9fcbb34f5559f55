// Package weft is a manifest-driven workflow engine core.
//
// A manifest declares an ordered list of stages, each pointing backwards at
// the stages whose artifacts it consumes. Weft compiles that document into
// an immutable DAG, derives a deterministic session tree for stage
// artifacts, answers readiness and staleness queries against the tree, and
// chains every artifact to its parents with content fingerprints so any
// output can prove which inputs produced it.
//
// The facade Engine binds a parser, a path resolver and the provenance
// runtime to one artifact store:
//
//	store := file.New(".weft/session")
//	eng, err := weft.New(store)
//	def, err := eng.ParseManifest(manifestBytes)
//	pos, err := eng.Position(ctx, def)
//
// Conversational layers, CLIs and status surfaces should answer "what's
// done, what's next" exclusively through Position.
package weft
