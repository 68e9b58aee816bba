// Package entity is the runtime instance engine of the entity graph.
//
// A Context is the registry scoping one document: it resolves identifiers
// to live Objects and fans registration transitions out to watching
// ItemReferences. An Object holds field values for one schema-declared
// entity instance, tracks its owning container, and fires change events
// synchronously as it is mutated. An ItemReference resolves a stored
// Specifier against the registry so that cross-object links survive
// serialization, reordering, and reload.
//
// The whole package assumes the single-threaded cooperative model of the
// owning application: all mutation and event dispatch happen on one
// logical thread, dispatch is depth-first and re-entrant, and nothing
// here locks. Background work must marshal its results back onto the
// owning thread before touching the graph.
package entity
