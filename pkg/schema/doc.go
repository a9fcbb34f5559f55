// Package schema provides field-path-tagged validation errors for manifest
// and script documents.
//
// Parsing never partially succeeds: the compiler collects every violation it
// finds into one AggregateError, so an author sees the whole list at once
// instead of fixing fields one re-parse at a time.
package schema
