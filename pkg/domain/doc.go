// Package domain contains the pure data model of the Weft engine:
// stage nodes, the parsed graph definition, artifact envelopes and the
// transient readiness/position query results.
//
// Nothing in this package performs I/O. A GraphDefinition is immutable
// after parsing; script overlays always clone nodes before mutating them.
package domain
