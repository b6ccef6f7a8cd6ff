// Package driver provides the storage backends that search predicates run
// against.
//
// Every backend implements Driver, which combines predicate execution with
// record upserts and the instance listing used to populate choice fields.
//
// # Supported Backends
//
//   - memory: in-process maps with roaring bitmap posting lists
//   - badger: embedded key-value store; predicates are evaluated while scanning
//   - sqlite: one JSON column per record; predicates compile to SQL (CompileSQL)
//   - neo4j: :Record nodes joined by LINK relationships; predicates compile to
//     Cypher (CompileCypher)
//
// # Usage
//
//	d, err := driver.Open(ctx, cfg.Database, sch, logger)
//	if err != nil {
//		return err
//	}
//	d = driver.NewCircuitBreakerDriver(d, cfg.CircuitBreaker, alerter, logger)
//	rs, err := d.Execute(ctx, "ticket", p, types.Page{Limit: 25})
//
// # Semantics
//
// All backends agree with predicate.Eval. A comparison on a multi-valued path
// holds when any reachable value satisfies it, and a missing value satisfies
// nothing. Results are ordered by record id.
//
// # Thread Safety
//
// All drivers are safe for concurrent use from multiple goroutines.
package driver
