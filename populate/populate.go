// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package populate bootstraps a fresh store.Store with the built-in
// schema (spec section 4.5) and a handful of default resources. It is
// the one place in the core allowed to call AddResourceUnsafe: the
// Property and Class resources it inserts are exactly what
// AddResource's own validation depends on, so the chicken-and-egg
// problem spec section 9 calls "the bootstrap circularity" has to be
// broken somewhere, and this package is it.
package populate

import (
	"strings"

	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/serialize"
	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/value"
)

type propertySeed struct {
	subject     string
	shortname   string
	datatype    string
	description string
	classType   string
}

type classSeed struct {
	subject     string
	shortname   string
	description string
	requires    []string
	recommends  []string
}

var baseProperties = []propertySeed{
	{ids.Shortname, "shortname", ids.DatatypeSlug,
		"A short name of something. It can only contain lowercase letters, numbers, and dashes.", ""},
	{ids.Description, "description", ids.DatatypeMarkdown,
		"A textual description of something. Supports markdown.", ""},
	{ids.IsA, "is-a", ids.DatatypeResourceArray,
		"A list of Classes of which the thing is an instance.", ids.ClassClass},
	{ids.Datatype, "datatype", ids.DatatypeAtomicURL,
		"The Datatype of a property, such as string or timestamp.", ids.ClassDatatype},
	{ids.ClassType, "classtype", ids.DatatypeAtomicURL,
		"Indicates that an AtomicUrl or ResourceArray value must be an instance of this class.", ids.ClassClass},
	{ids.Requires, "requires", ids.DatatypeResourceArray,
		"Properties that instances of this Class must have.", ids.ClassProperty},
	{ids.Recommends, "recommends", ids.DatatypeResourceArray,
		"Properties that instances of this Class are encouraged to have.", ids.ClassProperty},
	{ids.CreatedAt, "createdAt", ids.DatatypeTimestamp,
		"The Unix millisecond timestamp at which a Commit was created.", ""},
	{ids.Signer, "signer", ids.DatatypeAtomicURL,
		"The Agent that signed a Commit.", ids.ClassAgent},
	{ids.Subject, "subject", ids.DatatypeAtomicURL,
		"The Resource a Commit targets.", ""},
	{ids.Set, "set", ids.DatatypeString,
		"The JSON-encoded property->value map a Commit sets.", ""},
	{ids.Remove, "remove", ids.DatatypeResourceArray,
		"The properties a Commit clears.", ""},
	{ids.Destroy, "destroy", ids.DatatypeBoolean,
		"Whether a Commit deletes its whole target Resource.", ""},
	{ids.Signature, "signature", ids.DatatypeString,
		"The base64 Ed25519 signature of a Commit's canonical serialization.", ""},
	{ids.Name, "name", ids.DatatypeString,
		"A human readable name.", ""},
	{ids.Parent, "parent", ids.DatatypeAtomicURL,
		"The parent Resource, if any.", ""},
}

var baseClasses = []classSeed{
	{ids.ClassProperty, "property",
		"A Property is a single field in a Class: a datatype, a description, and an optional class_type.",
		[]string{ids.Shortname, ids.Datatype, ids.Description}, nil},
	{ids.ClassClass, "class",
		"A Class describes an abstract concept such as Person or BlogPost, and the Properties its instances require or recommend.",
		[]string{ids.Shortname, ids.Description}, []string{ids.Requires, ids.Recommends}},
	{ids.ClassDatatype, "datatype",
		"A Datatype describes the legal string form and parser of a Property's values.",
		[]string{ids.Shortname}, nil},
	{ids.ClassAgent, "agent",
		"An Agent is the signer of a Commit, identified by the public key embedded in its subject URL.",
		nil, nil},
	{ids.ClassCommit, "commit",
		"A Commit is a signed, atomic mutation to one Resource.",
		[]string{ids.Subject, ids.CreatedAt, ids.Signer, ids.Signature}, nil},
	{ids.ClassCollection, "collection",
		"A Collection is a synthetic Resource defined by a property/value filter, re-evaluated at read time.",
		nil, nil},
}

// PopulateBaseModels inserts the built-in Properties and Classes via
// AddResourceUnsafe. It is idempotent: re-running it simply overwrites
// the same resources with the same data.
func PopulateBaseModels(s store.Store) error {
	for _, p := range baseProperties {
		r := resource.New(p.subject)
		r.Set(ids.Shortname, value.NewSlug(p.shortname))
		r.Set(ids.Datatype, value.NewAtomicURL(p.datatype))
		r.Set(ids.Description, value.NewString(p.description))
		if p.classType != "" {
			r.Set(ids.ClassType, value.NewAtomicURL(p.classType))
		}
		isA, err := value.NewResourceArray([]string{ids.ClassProperty})
		if err != nil {
			return err
		}
		r.Set(ids.IsA, isA)
		if err := s.AddResourceUnsafe(r); err != nil {
			return err
		}
	}

	for _, c := range baseClasses {
		r := resource.New(c.subject)
		r.Set(ids.Shortname, value.NewSlug(c.shortname))
		r.Set(ids.Description, value.NewString(c.description))
		if len(c.requires) > 0 {
			req, err := value.NewResourceArray(c.requires)
			if err != nil {
				return err
			}
			r.Set(ids.Requires, req)
		}
		if len(c.recommends) > 0 {
			rec, err := value.NewResourceArray(c.recommends)
			if err != nil {
				return err
			}
			r.Set(ids.Recommends, rec)
		}
		isA, err := value.NewResourceArray([]string{ids.ClassClass})
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

// defaultAtoms is the embedded payload populate_default parses: a
// small AD3 document with one example Resource carrying a Slug
// shortname and a Markdown description, in the spirit of the
// teacher's default_store.ad3. It must be applied after
// PopulateBaseModels, since each value is parsed against the Datatype
// of a Property that PopulateBaseModels inserts.
const defaultAtoms = `
# Seed resource with a slug shortname and a markdown description.
["https://atomicdata.dev/example", "https://atomicdata.dev/properties/shortname", "example"]
["https://atomicdata.dev/example", "https://atomicdata.dev/properties/description", "An example Resource populated by default, showing **Markdown** support."]
`

// PopulateDefault parses the embedded AD3 payload and inserts it via
// AddAtoms. It must run after PopulateBaseModels or the referenced
// properties will not resolve during later validated writes.
func PopulateDefault(s store.Store) error {
	raw, err := serialize.ReadAD3(strings.NewReader(defaultAtoms))
	if err != nil {
		return err
	}
	atoms := make([]store.Atom, 0, len(raw))
	for _, a := range raw {
		prop, err := s.GetProperty(a.Property)
		var dt value.Datatype
		if err == nil {
			dt = prop.Datatype
		} else {
			dt = value.String
		}
		v, err := value.Parse(a.RawValue, dt)
		if err != nil {
			return err
		}
		atoms = append(atoms, store.Atom{Subject: a.Subject, Property: a.Property, Value: v})
	}
	return s.AddAtoms(atoms)
}
