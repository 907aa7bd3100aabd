// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package populate

import (
	"sort"

	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Collection is a property/value filter over a store.Store, re-run at
// read time rather than materialized. It backs the synthetic
// resources PopulateCollections installs (/classes, /properties, and
// so on): the Resource on disk records only the filter, and Members
// re-queries the live store every time it is called, so newly added
// Classes show up in /classes without anyone re-running populate.
type Collection struct {
	s        store.Store
	property string
	value    string
}

// NewCollection builds a Collection that matches every subject with
// property set to value.
func NewCollection(s store.Store, property, value string) *Collection {
	return &Collection{s: s, property: property, value: value}
}

// Members returns the sorted subject URLs currently matching the
// collection's filter. The filter property is almost always isA,
// whose values are ResourceArrays rather than single AtomicUrls, so
// membership is tested by containment rather than by TPF's
// whole-value string equality: a TPF lookup fetches every atom for
// c.property (value wildcard) and each candidate's ResourceArray is
// checked for c.value.
func (c *Collection) Members() ([]string, error) {
	atoms, err := c.s.TPF(store.Pattern{Property: c.property})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(atoms))
	for _, a := range atoms {
		if a.Value.Datatype().Kind() == value.KindResourceArray {
			for _, u := range a.Value.URLs() {
				if u == c.value {
					out = append(out, a.Subject)
					break
				}
			}
			continue
		}
		if a.Value.String() == c.value {
			out = append(out, a.Subject)
		}
	}
	sort.Strings(out)
	return out, nil
}

type collectionSeed struct {
	suffix   string
	classURL string
}

var builtinCollections = []collectionSeed{
	{ids.CollectionClasses, ids.ClassClass},
	{ids.CollectionProperties, ids.ClassProperty},
	{ids.CollectionCommits, ids.ClassCommit},
	{ids.CollectionAgents, ids.ClassAgent},
	{ids.CollectionCollections, ids.ClassCollection},
}

// PopulateCollections installs the five built-in collection Resources
// under baseURL, each filtering on isA = one of the built-in Classes.
// The Resources themselves record only the filter (collection/property,
// collection/value) and their isA; they carry no paging parameters.
// Collection.Members does the actual work at read time.
func PopulateCollections(s store.Store, baseURL string) error {
	for _, seed := range builtinCollections {
		r := resource.New(baseURL + seed.suffix)
		r.Set(ids.CollectionProperty, value.NewAtomicURL(ids.IsA))
		r.Set(ids.CollectionValue, value.NewAtomicURL(seed.classURL))
		isA, err := value.NewResourceArray([]string{ids.ClassCollection})
		if err != nil {
			return err
		}
		r.Set(ids.IsA, isA)
		if err := s.AddResourceUnsafe(r); err != nil {
			return err
		}
	}
	return nil
}
