// Package broker implements the subscription broker (C9): in-process
// pub-sub for entity and event streams with per-subscriber filtering and
// backpressure, per spec.md §4.9.
package broker

import "github.com/dojoengine/torii-go/felt"

// KeyPattern is one key-matching clause of the pattern language spec.md
// §4.9 calls "key-pattern matching with wildcards": a fixed-length prefix
// match where felt.Zero in any position matches any key there (SPEC_FULL.md
// §13 freezes this as the wildcard grammar, there being no normative
// reference for anything richer). A pattern matches a key list that is at
// least as long as the pattern; trailing keys beyond the pattern's length
// are ignored.
type KeyPattern struct {
	Keys []felt.Felt
}

// Match reports whether keys satisfies p.
func (p KeyPattern) Match(keys []felt.Felt) bool {
	if len(p.Keys) > len(keys) {
		return false
	}
	for i, want := range p.Keys {
		if want.IsZero() {
			continue
		}
		if keys[i] != want {
			return false
		}
	}
	return true
}

// anyPatternMatches reports whether keys satisfies at least one pattern; an
// empty pattern list matches everything (no key restriction configured).
func anyPatternMatches(patterns []KeyPattern, keys []felt.Felt) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if p.Match(keys) {
			return true
		}
	}
	return false
}

// EntityClause is one OR-branch of an EntityFilter: an entity matches the
// clause if it satisfies every non-empty restriction the clause declares.
type EntityClause struct {
	// HashedIDs restricts by entity id set membership; empty means no
	// restriction on id.
	HashedIDs []felt.Felt
	// KeyPatterns restricts by the entity's parsed key tuple; empty means
	// no restriction on keys.
	KeyPatterns []KeyPattern
	// ModelNames restricts by which model's data triggered the update;
	// empty means no restriction on model.
	ModelNames []string
}

func (c EntityClause) matches(hashedID felt.Felt, keys []felt.Felt, modelName string) bool {
	if len(c.HashedIDs) > 0 && !containsFelt(c.HashedIDs, hashedID) {
		return false
	}
	if !anyPatternMatches(c.KeyPatterns, keys) {
		return false
	}
	if len(c.ModelNames) > 0 && !containsString(c.ModelNames, modelName) {
		return false
	}
	return true
}

// EntityFilter is an OR of clauses; a nil filter (no filter configured at
// all) accepts every entity, per spec.md §4.9: "if the subscriber has no
// filter, accept."
type EntityFilter struct {
	Clauses []EntityClause
}

func matchEntity(hashedID felt.Felt, keys []felt.Felt, modelName string, filter *EntityFilter) bool {
	if filter == nil || len(filter.Clauses) == 0 {
		return true
	}
	for _, c := range filter.Clauses {
		if c.matches(hashedID, keys, modelName) {
			return true
		}
	}
	return false
}

// EventFilter is an OR of key patterns matched against an event's parsed
// keys; nil accepts every event.
type EventFilter struct {
	Patterns []KeyPattern
}

func matchEvent(keys []felt.Felt, filter *EventFilter) bool {
	if filter == nil {
		return true
	}
	return anyPatternMatches(filter.Patterns, keys)
}

func containsFelt(set []felt.Felt, v felt.Felt) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
