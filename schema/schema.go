// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package schema wraps resource.Resource with the two metadata
// shapes the core understands natively: Property and Class. Both are
// themselves ordinary Resources (spec section 3's "Properties and
// Classes are just Resources") validated against the required fields
// laid out there.
package schema

import (
	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Property is a Resource with the required fields shortname,
// datatype, and description, and the optional field class_type.
type Property struct {
	Subject     string
	Shortname   string
	Datatype    value.Datatype
	Description string
	ClassType   string // empty if absent
}

// PropertyFromResource extracts a Property from a Resource, failing
// with SchemaError if a required field is missing or malformed.
func PropertyFromResource(r *resource.Resource) (*Property, error) {
	shortname, ok := r.Get(ids.Shortname)
	if !ok {
		return nil, atomicerr.SchemaError("property %s missing required field shortname", r.Subject())
	}
	dt, ok := r.Get(ids.Datatype)
	if !ok {
		return nil, atomicerr.SchemaError("property %s missing required field datatype", r.Subject())
	}
	desc, ok := r.Get(ids.Description)
	if !ok {
		return nil, atomicerr.SchemaError("property %s missing required field description", r.Subject())
	}
	p := &Property{
		Subject:     r.Subject(),
		Shortname:   shortname.Text(),
		Datatype:    value.LookupDatatype(dt.Text()),
		Description: desc.Text(),
	}
	if ct, ok := r.Get(ids.ClassType); ok {
		p.ClassType = ct.Text()
	}
	return p, nil
}

// Class is a Resource with shortname, description, requires, and
// recommends fields.
type Class struct {
	Subject     string
	Shortname   string
	Description string
	Requires    []string
	Recommends  []string
}

// ClassFromResource extracts a Class from a Resource. Only shortname
// is strictly required; requires/recommends/description default to
// empty when absent (the populator's Agent and Collection classes,
// for instance, have no requires or recommends).
func ClassFromResource(r *resource.Resource) (*Class, error) {
	shortname, ok := r.Get(ids.Shortname)
	if !ok {
		return nil, atomicerr.SchemaError("class %s missing required field shortname", r.Subject())
	}
	c := &Class{Subject: r.Subject(), Shortname: shortname.Text()}
	if desc, ok := r.Get(ids.Description); ok {
		c.Description = desc.Text()
	}
	if req, ok := r.Get(ids.Requires); ok {
		c.Requires = req.URLs()
	}
	if rec, ok := r.Get(ids.Recommends); ok {
		c.Recommends = rec.URLs()
	}
	return c, nil
}
