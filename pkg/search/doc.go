// Package search turns user-composed filter criteria into storage-neutral
// predicates.
//
// A criterion names a searchable field, an operator code and a raw value. The
// set of criteria applied so far travels between requests as a single string:
//
//	status||8||1;2//title||5||crash
//
// Each request may add the criterion described by the current selection or
// remove one by its position. The resulting list is compiled into a
// predicate.Predicate plus one human-readable description per criterion.
//
// # Fields
//
// Searchable fields are dotted paths declared per entity. A Resolver
// classifies each path into a types.FieldType using a FieldMetadataProvider;
// relation fields become Choice or MultiChoice over the related entity's
// instances, which come from an OptionSource. A segment ending in "_set"
// names a reverse relation.
//
// # Usage
//
//	engine := search.NewEngine(schema, store, logger)
//	session := search.NewSession(engine, store, logger)
//
//	criteria, err := session.ApplyMutation(ctx, "ticket", prior,
//	    search.Action{Add: true}, selection)
//	result, err := session.Filter(ctx, "ticket", criteria, types.Page{Limit: 25})
//
// # Errors
//
// A criterion naming a field that is not searchable fails with
// types.ErrFieldNotFound, an operator outside its field type's set with
// types.ErrOperatorNotAllowed and an uncoercible value with
// types.ErrInvalidValue. Unresolvable declared paths are skipped when a
// registry is built.
package search
