// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package path implements the dotted-path language of spec section
// 4.4: a space-separated sequence of a head and zero or more segments,
// resolved against a store.Store to either a Resource or a leaf
// Value.
package path

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/schema"
	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Resolver resolves paths against a single store.Store, optionally
// consulting a bookmarks map for the head segment.
type Resolver struct {
	store     store.Store
	bookmarks map[string]string
}

// New builds a Resolver. bookmarks may be nil; a nil map is simply
// never consulted, falling straight through to global shortname
// resolution.
func New(s store.Store, bookmarks map[string]string) *Resolver {
	return &Resolver{store: s, bookmarks: bookmarks}
}

// Resolve walks path and returns either the Resource or the Value it
// names. Exactly one of the two return values is non-nil on success.
func (rv *Resolver) Resolve(path string) (*resource.Resource, *value.Value, error) {
	segments := strings.Fields(path)
	if len(segments) == 0 {
		return nil, nil, atomicerr.NotFound("path is empty")
	}

	subject, err := rv.resolveHead(segments[0])
	if err != nil {
		return nil, nil, err
	}
	cur, err := rv.store.GetResource(subject)
	if err != nil {
		return nil, nil, err
	}

	rest := segments[1:]
	for len(rest) > 0 {
		seg := rest[0]
		rest = rest[1:]

		if _, ok := parseIndex(seg); ok {
			return nil, nil, atomicerr.SchemaError(
				"TypeMismatch: %q indexes a ResourceArray but the current path position is Resource %s", seg, cur.Subject())
		}

		propertyURL, err := rv.resolveSegment(cur, seg)
		if err != nil {
			return nil, nil, err
		}
		v, ok := cur.Get(propertyURL)
		if !ok {
			return nil, nil, atomicerr.NotFound("resource %s has no value for property %s", cur.Subject(), propertyURL)
		}

		if len(rest) == 0 {
			result := v
			return nil, &result, nil
		}

		switch v.Datatype().Kind() {
		case value.KindResourceArray:
			idxSeg := rest[0]
			idx, ok := parseIndex(idxSeg)
			if !ok {
				return nil, nil, atomicerr.SchemaError(
					"TypeMismatch: %q must index ResourceArray property %s", idxSeg, propertyURL)
			}
			rest = rest[1:]
			urls := v.URLs()
			if idx >= len(urls) {
				return nil, nil, atomicerr.NotFound("index %d out of range for %s (length %d)", idx, propertyURL, len(urls))
			}
			next, err := rv.store.GetResource(urls[idx])
			if err != nil {
				return nil, nil, err
			}
			cur = next

		case value.KindAtomicURL:
			next, err := rv.store.GetResource(v.Text())
			if err != nil {
				return nil, nil, err
			}
			cur = next

		default:
			return nil, nil, atomicerr.SchemaError(
				"PathTooLong: property %s on %s is a leaf value, %d segment(s) remain", propertyURL, cur.Subject(), len(rest))
		}
	}
	return cur, nil, nil
}

// resolveHead resolves the first path segment to a subject URL: an
// absolute URL is used as-is, otherwise the bookmarks map is tried,
// falling back to a global shortname lookup.
func (rv *Resolver) resolveHead(head string) (string, error) {
	if isAbsoluteURL(head) {
		return head, nil
	}
	if rv.bookmarks != nil {
		if u, ok := rv.bookmarks[head]; ok {
			return u, nil
		}
	}
	return rv.globalShortname(head)
}

// resolveSegment resolves one non-head segment to a property URL. An
// absolute URL segment is used as-is. A shortname segment is first
// checked against the current resource's own classes' required and
// recommended properties, then against the global shortname index,
// matching spec section 4.4's "current resource's classes... falling
// back to global shortnames."
func (rv *Resolver) resolveSegment(cur *resource.Resource, segment string) (string, error) {
	if isAbsoluteURL(segment) {
		return segment, nil
	}

	isA, ok := cur.Get(ids.IsA)
	if ok {
		for _, classURL := range isA.URLs() {
			propertyURL, err := rv.findInClass(classURL, segment)
			if err == nil {
				return propertyURL, nil
			}
		}
	}

	return rv.globalShortname(segment)
}

// findInClass looks for a property with the given shortname among
// classURL's required and recommended properties.
func (rv *Resolver) findInClass(classURL, shortname string) (string, error) {
	classRes, err := rv.store.GetResource(classURL)
	if err != nil {
		return "", err
	}
	cls, err := schema.ClassFromResource(classRes)
	if err != nil {
		return "", err
	}
	for _, propertyURL := range append(append([]string{}, cls.Requires...), cls.Recommends...) {
		propRes, err := rv.store.GetResource(propertyURL)
		if err != nil {
			continue
		}
		prop, err := schema.PropertyFromResource(propRes)
		if err != nil {
			continue
		}
		if prop.Shortname == shortname {
			return propertyURL, nil
		}
	}
	return "", atomicerr.NotFound("class %s has no property shortnamed %q", classURL, shortname)
}

// globalShortname looks up any resource whose shortname property
// equals shortname, via the same TPF-by-property query boltstore uses
// internally for PropertyShortnameToURL.
func (rv *Resolver) globalShortname(shortname string) (string, error) {
	atoms, err := rv.store.TPF(store.Pattern{Property: ids.Shortname, Value: shortname})
	if err != nil {
		return "", err
	}
	if len(atoms) == 0 {
		return "", atomicerr.NotFound("no bookmark or shortname resolves %q", shortname)
	}
	return atoms[0].Subject, nil
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
