// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package store defines the abstract Store interface: atom-level
// CRUD, property lookup for schema validation, and Triple Pattern
// Fragment queries. Concrete backends (store/memstore,
// store/boltstore) implement this interface; most callers should
// depend on the interface, not a specific backend, the way
// applications built on the teacher's coordinate package depend on
// coordinate.Coordinate rather than a specific implementation.
package store

import (
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/schema"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Atom is a single (subject, property, value) triple, the minimal
// addressable fact in the store.
type Atom struct {
	Subject  string
	Property string
	Value    value.Value
}

// Pattern is a Triple Pattern Fragment query: each empty field is a
// wildcard.
type Pattern struct {
	Subject  string
	Property string
	Value    string // compared against Value.String(); empty = wildcard
}

// ViolationKind enumerates the categories validate_store can report.
type ViolationKind int

const (
	ViolationUnknownProperty ViolationKind = iota
	ViolationInvalidValue
	ViolationClassTypeMismatch
	ViolationMissingRequired
)

// Violation describes one failure found by ValidateStore.
type Violation struct {
	Kind     ViolationKind
	Subject  string
	Property string
	Detail   string
}

// Report aggregates every Violation found across a full store scan.
type Report struct {
	Violations []Violation
}

// OK reports whether the scan found no violations.
func (r Report) OK() bool { return len(r.Violations) == 0 }

// Store is the persistent triple store contract of spec section 4.2.
type Store interface {
	// GetResource returns the Resource at subject, or a NotFound
	// atomicerr.Error if no Atom mentions it.
	GetResource(subject string) (*resource.Resource, error)

	// GetProperty returns the Property resource at url, or
	// NotFound. Used during value coercion on write.
	GetProperty(url string) (*schema.Property, error)

	// AddResource validates every property/value pair against its
	// Property's datatype (and class_type, if set) before storing
	// the Resource. On any SchemaError the store is unchanged.
	AddResource(r *resource.Resource) error

	// AddResourceUnsafe stores r without validation. Used only by
	// the populator while bootstrapping the Property/Class
	// resources that the validator itself depends on.
	AddResourceUnsafe(r *resource.Resource) error

	// AddAtoms bulk-inserts atoms without per-Resource schema
	// validation; order of the slice does not matter.
	AddAtoms(atoms []Atom) error

	// DestroyResource removes subject and every Atom mentioning it.
	DestroyResource(subject string) error

	// TPF returns every Atom matching pattern.
	TPF(pattern Pattern) ([]Atom, error)

	// PropertyURLToShortname resolves a property URL to its Slug
	// shortname via the stored Property resource.
	PropertyURLToShortname(url string) (string, error)

	// PropertyShortnameToURL is the inverse of
	// PropertyURLToShortname.
	PropertyShortnameToURL(shortname string) (string, error)

	// ValidateStore scans every Atom and returns a Report rather
	// than aborting on the first violation.
	ValidateStore() (Report, error)
}
