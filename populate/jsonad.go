// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package populate

import (
	"github.com/mitchellh/mapstructure"

	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// jsonADSeed is the loosely-typed shape of one JSON-AD object: "@id"
// plus an arbitrary, unknown-at-compile-time set of property URLs.
// mapstructure's ",remain" tag captures everything besides "@id" into
// Properties without the caller having to enumerate every property
// URL a seed payload might use.
type jsonADSeed struct {
	Subject    string                 `mapstructure:"@id"`
	Properties map[string]interface{} `mapstructure:",remain"`
}

// PopulateFromJSONAD bulk-inserts a set of JSON-AD objects (as already
// JSON-decoded into map[string]interface{}, e.g. from an HTTP request
// body) the way PopulateDefault bulk-inserts an AD3 payload. Each
// object's properties are looked up against the store's own schema to
// determine the Datatype to parse their string form against, falling
// back to String for properties the schema does not yet know.
func PopulateFromJSONAD(s store.Store, objects []map[string]interface{}) error {
	var atoms []store.Atom
	for _, obj := range objects {
		var seed jsonADSeed
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &seed})
		if err != nil {
			return err
		}
		if err := dec.Decode(obj); err != nil {
			return err
		}

		for propertyURL, raw := range seed.Properties {
			text, ok := raw.(string)
			if !ok {
				continue
			}
			dt := value.String
			if prop, err := s.GetProperty(propertyURL); err == nil {
				dt = prop.Datatype
			}
			v, err := value.Parse(text, dt)
			if err != nil {
				return err
			}
			atoms = append(atoms, store.Atom{Subject: seed.Subject, Property: propertyURL, Value: v})
		}
	}
	return s.AddAtoms(atoms)
}
