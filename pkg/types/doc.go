// Package types defines the core data types shared by the sifter search engine.
//
// This package contains the fundamental types used throughout sifter:
//   - FieldType: the closed set of field categories a search path can resolve to
//   - Operator: the comparison operators, each with a stable wire code and label
//   - Criterion / CriteriaList: the user's filter conditions
//   - Selection: the per-request buffer a new criterion is extracted from
//   - FieldMeta: what a metadata provider reports for one path segment
//   - Record / ResultSet: what storage drivers hand back
//
// # Operators
//
// Every FieldType accepts a fixed, ordered subset of operators:
//
//	ops := types.OperatorsFor(types.FieldText)
//	// [= != contains starts with ends with]
//
// # Wire Codes
//
// Operator codes are part of the serialized criteria format and must never be
// renumbered. FieldType tags are part of the selector encoding consumed by
// user interfaces.
package types
