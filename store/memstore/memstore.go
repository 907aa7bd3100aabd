// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memstore provides an in-process, in-memory implementation
// of store.Store. There is no persistence; the entire store is
// behind a single mutex, the way the teacher's memory package
// protects its Coordinate state. It is the reference implementation
// used by store/storetest and most of the core's own tests.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/schema"
	"github.com/diffeo-labs/atomic-data-go/store"
)

// Store is an in-memory store.Store implementation.
type Store struct {
	mu        sync.Mutex
	resources map[string]*resource.Resource
	lastWrite map[string]time.Time
	clock     clock.Clock
}

// New creates an empty in-memory Store using the real wall clock.
func New() *Store {
	return NewWithClock(clock.New())
}

// NewWithClock creates an empty in-memory Store using clk to stamp
// writes, the way the teacher's memory.NewWithClock lets tests
// substitute a clock.Mock for deterministic timing assertions.
func NewWithClock(clk clock.Clock) *Store {
	return &Store{
		resources: make(map[string]*resource.Resource),
		lastWrite: make(map[string]time.Time),
		clock:     clk,
	}
}

// LastWrite returns the time the subject was last written (via
// AddResource, AddResourceUnsafe, or AddAtoms), and whether it has
// been written at all.
func (s *Store) LastWrite(subject string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastWrite[subject]
	return t, ok
}

func (s *Store) GetResource(subject string) (*resource.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[subject]
	if !ok {
		return nil, atomicerr.NotFound("no resource at %s", subject)
	}
	return r.Clone(), nil
}

func (s *Store) GetProperty(url string) (*schema.Property, error) {
	s.mu.Lock()
	r, ok := s.resources[url]
	s.mu.Unlock()
	if !ok {
		return nil, atomicerr.NotFound("no property at %s", url)
	}
	return schema.PropertyFromResource(r)
}

func (s *Store) AddResource(r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := store.ValidateResource(s.unsafeView(), r); err != nil {
		return err
	}
	s.resources[r.Subject()] = r.Clone()
	s.lastWrite[r.Subject()] = s.clock.Now()
	return nil
}

func (s *Store) AddResourceUnsafe(r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.Subject()] = r.Clone()
	s.lastWrite[r.Subject()] = s.clock.Now()
	return nil
}

func (s *Store) AddAtoms(atoms []store.Atom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for _, a := range atoms {
		r, ok := s.resources[a.Subject]
		if !ok {
			r = resource.New(a.Subject)
			s.resources[a.Subject] = r
		}
		r.Set(a.Property, a.Value)
		s.lastWrite[a.Subject] = now
	}
	return nil
}

func (s *Store) DestroyResource(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, subject)
	delete(s.lastWrite, subject)
	return nil
}

func (s *Store) TPF(pattern store.Pattern) ([]store.Atom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Atom
	for subject, r := range s.resources {
		if pattern.Subject != "" && pattern.Subject != subject {
			continue
		}
		for _, propertyURL := range r.Properties() {
			if pattern.Property != "" && pattern.Property != propertyURL {
				continue
			}
			v, _ := r.Get(propertyURL)
			if pattern.Value != "" && pattern.Value != v.String() {
				continue
			}
			out = append(out, store.Atom{Subject: subject, Property: propertyURL, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Property < out[j].Property
	})
	return out, nil
}

func (s *Store) PropertyURLToShortname(url string) (string, error) {
	prop, err := s.GetProperty(url)
	if err != nil {
		return "", err
	}
	return prop.Shortname, nil
}

func (s *Store) PropertyShortnameToURL(shortname string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for url, r := range s.resources {
		sn, ok := r.Get(ids.Shortname)
		if ok && sn.Text() == shortname {
			return url, nil
		}
	}
	return "", atomicerr.NotFound("no property with shortname %s", shortname)
}

func (s *Store) ValidateStore() (store.Report, error) {
	return store.ValidateStoreScan(s)
}

// unsafeView returns a store.Lookup handle usable from within a
// locked method without re-entering s.mu: AddResource's validation
// path calls GetResource/GetProperty, which would deadlock against
// the already-held mutex, so it reads the map directly instead of
// calling back into Store's exported, locking methods.
func (s *Store) unsafeView() store.Lookup {
	return (*lockedView)(s)
}

// lockedView implements store.Lookup against a Store whose mutex the
// caller already holds.
type lockedView Store

func (v *lockedView) GetResource(subject string) (*resource.Resource, error) {
	r, ok := v.resources[subject]
	if !ok {
		return nil, atomicerr.NotFound("no resource at %s", subject)
	}
	return r, nil
}

func (v *lockedView) GetProperty(url string) (*schema.Property, error) {
	r, ok := v.resources[url]
	if !ok {
		return nil, atomicerr.NotFound("no property at %s", url)
	}
	return schema.PropertyFromResource(r)
}
