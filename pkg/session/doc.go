// Package session derives the on-disk layout of a workflow session and
// serializes artifact writes within it.
//
// The directory tree produced by ResolvePaths mirrors the provenance chain:
// a stage's artifacts nest under its primary ancestor chain, with structural
// and bypass stages filtered out so a human browsing the session sees only
// the stages that matter.
package session
