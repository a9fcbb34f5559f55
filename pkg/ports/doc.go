// Package ports defines the interfaces between the Weft core and its
// storage backends.
//
// The core depends on exactly four artifact-store primitives. Anything
// satisfying them (local filesystem, memory, Redis) can host a session
// tree; the engine adds no locking or filesystem features on top.
package ports
