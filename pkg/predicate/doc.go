// Package predicate defines the storage-neutral filter conditions produced by
// the search engine and consumed by storage drivers.
//
// A Predicate is one of:
//   - True: the identity, matches every record
//   - Compare: a single comparison of the values reachable along a Path
//   - In: membership of the values reachable along a Path in a set of ids
//   - And: the conjunction of its terms
//
// Paths are made of steps. A step is either a scalar field or a relation to
// another entity (single, multi-valued or reverse). Drivers translate steps
// into joins, subqueries or graph patterns; Eval interprets them directly
// against a Resolver.
//
// Conditions over relation paths have "exists" semantics: a record matches a
// comparison when at least one reachable value satisfies it. Each term of an
// And is evaluated on its own, so
//
//	predicate.All(predicate.Member(tags, 1), predicate.Member(tags, 2))
//
// matches records related to both 1 and 2 even through distinct related
// records.
package predicate
