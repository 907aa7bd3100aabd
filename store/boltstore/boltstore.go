// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package boltstore implements store.Store on top of go.etcd.io/bbolt,
// the embedded ordered key-value store spec section 5 and section 6
// describe. A commit's mutation is a single bbolt.Update transaction,
// giving the atomicity and reader/writer isolation the spec requires
// for free: bbolt readers observe one fully committed state or
// another, and never block the single writer.
//
// The three keyspaces of spec section 6 are realized as three bbolt
// buckets rather than three key prefixes in one flat space, since
// bbolt buckets are themselves ordered key-value namespaces:
//
//	resources  maps subject -> encoded Resource             (R/)
//	byProperty maps property\x00subject -> encoded Value     (P/)
//	byValue    maps property\x00valueHash\x00subject -> nil  (V/)
package boltstore

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/schema"
	"github.com/diffeo-labs/atomic-data-go/serialize"
	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/value"
)

var (
	bucketResources  = []byte("resources")
	bucketByProperty = []byte("byProperty")
	bucketByValue    = []byte("byValue")
)

const sep = "\x00"

// Store is a bbolt-backed store.Store implementation.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) a bbolt database at path and
// returns a Store backed by it. Callers own the returned Store's
// lifetime and should call Close when done.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, atomicerr.InternalError("opening bolt store at %s: %v", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketResources, bucketByProperty, bucketByValue} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, atomicerr.InternalError("initializing bolt store at %s: %v", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt database handle.
func (s *Store) Close() error { return s.db.Close() }

func valueHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func propertyKey(property, subject string) []byte {
	return []byte(property + sep + subject)
}

func valueKey(property, raw, subject string) []byte {
	return []byte(property + sep + valueHash(raw) + sep + subject)
}

func (s *Store) GetResource(subject string) (*resource.Resource, error) {
	var r *resource.Resource
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketResources).Get([]byte(subject))
		if data == nil {
			return atomicerr.NotFound("no resource at %s", subject)
		}
		decoded, err := serialize.DecodeResourceBytes(data)
		if err != nil {
			return atomicerr.InternalError("decoding resource %s: %v", subject, err)
		}
		r = decoded
		return nil
	})
	return r, err
}

func (s *Store) GetProperty(url string) (*schema.Property, error) {
	r, err := s.GetResource(url)
	if err != nil {
		return nil, err
	}
	return schema.PropertyFromResource(r)
}

func (s *Store) AddResource(r *resource.Resource) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		lookup := &txLookup{tx: tx}
		if err := store.ValidateResource(lookup, r); err != nil {
			return err
		}
		return putResource(tx, r)
	})
}

func (s *Store) AddResourceUnsafe(r *resource.Resource) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putResource(tx, r)
	})
}

func (s *Store) AddAtoms(atoms []store.Atom) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		grouped := make(map[string]*resource.Resource)
		for _, a := range atoms {
			r := grouped[a.Subject]
			if r == nil {
				data := tx.Bucket(bucketResources).Get([]byte(a.Subject))
				if data != nil {
					decoded, err := serialize.DecodeResourceBytes(data)
					if err != nil {
						return atomicerr.InternalError("decoding resource %s: %v", a.Subject, err)
					}
					r = decoded
				} else {
					r = resource.New(a.Subject)
				}
				grouped[a.Subject] = r
			}
			r.Set(a.Property, a.Value)
		}
		for _, r := range grouped {
			if err := putResource(tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DestroyResource(subject string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteResource(tx, subject)
	})
}

// putResource overwrites subject's stored Resource and rebuilds its
// index entries. Any stale index entries from a previous value under
// the same property are removed first.
func putResource(tx *bbolt.Tx, r *resource.Resource) error {
	if err := deleteResource(tx, r.Subject()); err != nil {
		return err
	}
	data, err := serialize.EncodeResourceBytes(r)
	if err != nil {
		return atomicerr.InternalError("encoding resource %s: %v", r.Subject(), err)
	}
	if err := tx.Bucket(bucketResources).Put([]byte(r.Subject()), data); err != nil {
		return err
	}
	byProperty := tx.Bucket(bucketByProperty)
	byValue := tx.Bucket(bucketByValue)
	for _, p := range r.Properties() {
		v, _ := r.Get(p)
		if err := byProperty.Put(propertyKey(p, r.Subject()), []byte(v.String())); err != nil {
			return err
		}
		if err := byValue.Put(valueKey(p, v.String(), r.Subject()), nil); err != nil {
			return err
		}
	}
	return nil
}

// deleteResource removes subject's stored Resource and every index
// entry it owns.
func deleteResource(tx *bbolt.Tx, subject string) error {
	resources := tx.Bucket(bucketResources)
	data := resources.Get([]byte(subject))
	if data == nil {
		return resources.Delete([]byte(subject))
	}
	r, err := serialize.DecodeResourceBytes(data)
	if err != nil {
		return atomicerr.InternalError("decoding resource %s: %v", subject, err)
	}
	byProperty := tx.Bucket(bucketByProperty)
	byValue := tx.Bucket(bucketByValue)
	for _, p := range r.Properties() {
		v, _ := r.Get(p)
		if err := byProperty.Delete(propertyKey(p, subject)); err != nil {
			return err
		}
		if err := byValue.Delete(valueKey(p, v.String(), subject)); err != nil {
			return err
		}
	}
	return resources.Delete([]byte(subject))
}

func (s *Store) TPF(pattern store.Pattern) ([]store.Atom, error) {
	var out []store.Atom
	err := s.db.View(func(tx *bbolt.Tx) error {
		switch {
		case pattern.Subject != "":
			data := tx.Bucket(bucketResources).Get([]byte(pattern.Subject))
			if data == nil {
				return nil
			}
			r, err := serialize.DecodeResourceBytes(data)
			if err != nil {
				return atomicerr.InternalError("decoding resource %s: %v", pattern.Subject, err)
			}
			for _, p := range r.Properties() {
				if pattern.Property != "" && pattern.Property != p {
					continue
				}
				v, _ := r.Get(p)
				if pattern.Value != "" && pattern.Value != v.String() {
					continue
				}
				out = append(out, store.Atom{Subject: pattern.Subject, Property: p, Value: v})
			}
			return nil

		case pattern.Property != "" && pattern.Value != "":
			c := tx.Bucket(bucketByValue).Cursor()
			prefix := []byte(pattern.Property + sep + valueHash(pattern.Value) + sep)
			for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
				subject := string(k[len(prefix):])
				v, err := value.Parse(pattern.Value, guessDatatype(tx, pattern.Property))
				if err != nil {
					v = value.NewString(pattern.Value)
				}
				out = append(out, store.Atom{Subject: subject, Property: pattern.Property, Value: v})
			}
			return nil

		case pattern.Property != "":
			c := tx.Bucket(bucketByProperty).Cursor()
			prefix := []byte(pattern.Property + sep)
			for k, raw := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, raw = c.Next() {
				subject := string(k[len(prefix):])
				v, err := value.Parse(string(raw), guessDatatype(tx, pattern.Property))
				if err != nil {
					v = value.NewString(string(raw))
				}
				out = append(out, store.Atom{Subject: subject, Property: pattern.Property, Value: v})
			}
			return nil

		default:
			c := tx.Bucket(bucketResources).Cursor()
			for subject, data := c.First(); subject != nil; subject, data = c.Next() {
				r, err := serialize.DecodeResourceBytes(data)
				if err != nil {
					return atomicerr.InternalError("decoding resource %s: %v", subject, err)
				}
				for _, p := range r.Properties() {
					v, _ := r.Get(p)
					if pattern.Value != "" && pattern.Value != v.String() {
						continue
					}
					out = append(out, store.Atom{Subject: string(subject), Property: p, Value: v})
				}
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Property < out[j].Property
	})
	return out, nil
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}

// guessDatatype looks up the stored Property for url, falling back to
// String if it cannot be resolved (e.g. the property URL is itself
// unknown, as may happen transiently during populator bootstrap).
func guessDatatype(tx *bbolt.Tx, propertyURL string) value.Datatype {
	data := tx.Bucket(bucketResources).Get([]byte(propertyURL))
	if data == nil {
		return value.String
	}
	r, err := serialize.DecodeResourceBytes(data)
	if err != nil {
		return value.String
	}
	prop, err := schema.PropertyFromResource(r)
	if err != nil {
		return value.String
	}
	return prop.Datatype
}

func (s *Store) PropertyURLToShortname(url string) (string, error) {
	prop, err := s.GetProperty(url)
	if err != nil {
		return "", err
	}
	return prop.Shortname, nil
}

func (s *Store) PropertyShortnameToURL(shortname string) (string, error) {
	atoms, err := s.TPF(store.Pattern{Property: ids.Shortname, Value: shortname})
	if err != nil {
		return "", err
	}
	if len(atoms) == 0 {
		return "", atomicerr.NotFound("no property with shortname %s", shortname)
	}
	return atoms[0].Subject, nil
}

func (s *Store) ValidateStore() (store.Report, error) {
	return store.ValidateStoreScan(s)
}

// txLookup adapts an in-flight bbolt transaction to store.Lookup, the
// way memstore's lockedView adapts a held mutex: AddResource's
// validation path must not open a second transaction against the one
// it is already inside.
type txLookup struct {
	tx *bbolt.Tx
}

func (t *txLookup) GetResource(subject string) (*resource.Resource, error) {
	data := t.tx.Bucket(bucketResources).Get([]byte(subject))
	if data == nil {
		return nil, atomicerr.NotFound("no resource at %s", subject)
	}
	return serialize.DecodeResourceBytes(data)
}

func (t *txLookup) GetProperty(url string) (*schema.Property, error) {
	r, err := t.GetResource(url)
	if err != nil {
		return nil, err
	}
	return schema.PropertyFromResource(r)
}
