// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package resource defines Resource, the ordered property->Value
// record that is the unit of identity in Atomic Data. A Resource's
// property ordering is not semantic but must be preserved for
// byte-stable serialization (spec section 3).
package resource

import (
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Resource is all Atoms sharing a subject, viewed as a keyed record.
// The zero Resource is not usable; construct one with New.
type Resource struct {
	subject    string
	order      []string
	properties map[string]value.Value
}

// New creates an empty Resource with the given subject.
func New(subject string) *Resource {
	return &Resource{
		subject:    subject,
		properties: make(map[string]value.Value),
	}
}

// Subject returns this Resource's identity URL.
func (r *Resource) Subject() string { return r.subject }

// Get returns the Value stored under propertyURL, and whether it was
// present.
func (r *Resource) Get(propertyURL string) (value.Value, bool) {
	v, ok := r.properties[propertyURL]
	return v, ok
}

// Set stores v under propertyURL, appending propertyURL to the
// insertion order the first time it is used. Overwriting an existing
// property does not change its position.
func (r *Resource) Set(propertyURL string, v value.Value) {
	if _, exists := r.properties[propertyURL]; !exists {
		r.order = append(r.order, propertyURL)
	}
	r.properties[propertyURL] = v
}

// Remove deletes propertyURL from this Resource, if present.
func (r *Resource) Remove(propertyURL string) {
	if _, exists := r.properties[propertyURL]; !exists {
		return
	}
	delete(r.properties, propertyURL)
	for i, p := range r.order {
		if p == propertyURL {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Properties returns the property URLs of this Resource in insertion
// order.
func (r *Resource) Properties() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of properties on this Resource.
func (r *Resource) Len() int { return len(r.order) }

// IsA reports whether this Resource's isA ResourceArray contains
// classURL.
func (r *Resource) IsA(classURL string) bool {
	v, ok := r.Get(ids.IsA)
	if !ok {
		return false
	}
	for _, u := range v.URLs() {
		if u == classURL {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of this Resource.
func (r *Resource) Clone() *Resource {
	out := New(r.subject)
	for _, p := range r.order {
		out.Set(p, r.properties[p])
	}
	return out
}
