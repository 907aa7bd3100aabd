// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package store

import (
	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/schema"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Lookup is the minimal read surface ValidateResource needs. It is
// split out from the full Store interface so a backend can satisfy
// it with an already-locked internal view, without recursively
// acquiring whatever lock AddResource is already holding.
type Lookup interface {
	GetResource(subject string) (*resource.Resource, error)
	GetProperty(url string) (*schema.Property, error)
}

// ValidateResource checks every property/value pair on r against the
// Datatype and class_type (if any) of its Property, as described in
// spec section 4.2's "Validation on write." Each value on r is replaced
// in place by its form parsed against the Property's Datatype, so the
// stored value carries that Datatype. Backends call this from
// AddResource so the check and the write happen under the same lock.
func ValidateResource(s Lookup, r *resource.Resource) error {
	for _, propertyURL := range r.Properties() {
		v, _ := r.Get(propertyURL)
		prop, err := s.GetProperty(propertyURL)
		if err != nil {
			return atomicerr.SchemaError("unknown property %s on %s", propertyURL, r.Subject())
		}
		reparsed, err := value.Parse(v.String(), prop.Datatype)
		if err != nil {
			return err
		}
		r.Set(propertyURL, reparsed)
		if prop.ClassType == "" {
			continue
		}
		switch reparsed.Datatype().Kind() {
		case value.KindAtomicURL:
			if err := checkClassType(s, reparsed.Text(), prop.ClassType); err != nil {
				return err
			}
		case value.KindResourceArray:
			for _, member := range reparsed.URLs() {
				if err := checkClassType(s, member, prop.ClassType); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkClassType(s Lookup, subject, classURL string) error {
	target, err := s.GetResource(subject)
	if err != nil {
		return atomicerr.SchemaError("class_type target %s does not exist", subject)
	}
	if !target.IsA(classURL) {
		return atomicerr.SchemaError("%s is not a %s as required by class_type", subject, classURL)
	}
	return nil
}

// ValidateStoreScan implements ValidateStore generically in terms of
// TPF and GetResource, so each backend gets it for free by embedding
// this function's result.
func ValidateStoreScan(s Store) (Report, error) {
	report := Report{}
	atoms, err := s.TPF(Pattern{})
	if err != nil {
		return report, err
	}

	bySubject := make(map[string][]Atom)
	for _, a := range atoms {
		bySubject[a.Subject] = append(bySubject[a.Subject], a)
	}

	for subject, subjectAtoms := range bySubject {
		for _, a := range subjectAtoms {
			prop, err := s.GetProperty(a.Property)
			if err != nil {
				report.Violations = append(report.Violations, Violation{
					Kind: ViolationUnknownProperty, Subject: subject, Property: a.Property,
					Detail: "no Property resource found for this URL",
				})
				continue
			}
			if _, err := value.Parse(a.Value.String(), prop.Datatype); err != nil {
				report.Violations = append(report.Violations, Violation{
					Kind: ViolationInvalidValue, Subject: subject, Property: a.Property,
					Detail: err.Error(),
				})
				continue
			}
			if prop.ClassType != "" {
				checkMember := func(member string) {
					target, err := s.GetResource(member)
					if err != nil || !target.IsA(prop.ClassType) {
						report.Violations = append(report.Violations, Violation{
							Kind: ViolationClassTypeMismatch, Subject: subject, Property: a.Property,
							Detail: member + " does not satisfy class_type " + prop.ClassType,
						})
					}
				}
				if a.Value.Datatype().Kind() == value.KindAtomicURL {
					checkMember(a.Value.Text())
				} else if a.Value.Datatype().Kind() == value.KindResourceArray {
					for _, m := range a.Value.URLs() {
						checkMember(m)
					}
				}
			}
		}

		res, err := s.GetResource(subject)
		if err != nil {
			continue
		}
		isA, hasIsA := res.Get(ids.IsA)
		if !hasIsA {
			continue
		}
		for _, classURL := range isA.URLs() {
			classResource, err := s.GetResource(classURL)
			if err != nil {
				continue
			}
			class, err := schema.ClassFromResource(classResource)
			if err != nil {
				continue
			}
			for _, required := range class.Requires {
				if _, ok := res.Get(required); !ok {
					report.Violations = append(report.Violations, Violation{
						Kind: ViolationMissingRequired, Subject: subject, Property: required,
						Detail: "required by class " + classURL,
					})
				}
			}
		}
	}

	return report, nil
}
