// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package commit implements the signed mutation protocol of spec
// section 4.3: deterministic canonical serialization, Ed25519
// signing and verification, and atomic application of a Commit
// against a single target Resource in a store.Store.
//
// Ed25519 comes from the standard library's crypto/ed25519 rather
// than a pack dependency; see DESIGN.md for why no third-party
// signing library was a better fit than the primitive the language
// already ships.
package commit

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Commit is the mutation unit of spec section 3: a signed, atomic
// change to exactly one target Resource.
type Commit struct {
	Subject   string
	CreatedAt int64
	Signer    string
	Set       map[string]string // property URL -> canonical string form
	Remove    []string          // property URLs
	Destroy   bool
	Signature string // base64 Ed25519 signature; empty until Sign
}

// CanonicalSerialize renders c's deterministic JSON form per spec
// section 4.3: property URLs as keys in lexicographic order, "set"
// and "remove" included only when non-empty, "destroy" only when
// true, "signature" never included, no whitespace.
func (c *Commit) CanonicalSerialize() ([]byte, error) {
	type field struct {
		key   string
		value string
	}
	var fields []field

	fields = append(fields, field{ids.CreatedAt, strconv.FormatInt(c.CreatedAt, 10)})
	fields = append(fields, field{ids.Signer, jsonString(c.Signer)})
	fields = append(fields, field{ids.Subject, jsonString(c.Subject)})

	if c.Destroy {
		fields = append(fields, field{ids.Destroy, "true"})
	}
	if len(c.Remove) > 0 {
		removed := append([]string(nil), c.Remove...)
		sort.Strings(removed)
		b, err := json.Marshal(removed)
		if err != nil {
			return nil, atomicerr.InternalError("serializing remove: %v", err)
		}
		fields = append(fields, field{ids.Remove, string(b)})
	}
	if len(c.Set) > 0 {
		keys := make([]string, 0, len(c.Set))
		for k := range c.Set {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(jsonString(k))
			sb.WriteByte(':')
			sb.WriteString(jsonString(c.Set[k]))
		}
		sb.WriteByte('}')
		fields = append(fields, field{ids.Set, sb.String()})
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].key < fields[j].key })

	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(jsonString(f.key))
		sb.WriteByte(':')
		sb.WriteString(f.value)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Sign computes c's canonical serialization and signs it with
// privateKey, populating c.Signature. It does not set c.Subject;
// callers derive the commit's own content-addressed subject from the
// signature separately, since the signature must be stable before the
// subject can be computed (spec section 9).
func (c *Commit) Sign(privateKey ed25519.PrivateKey) error {
	msg, err := c.CanonicalSerialize()
	if err != nil {
		return err
	}
	sig := ed25519.Sign(privateKey, msg)
	c.Signature = base64.StdEncoding.EncodeToString(sig)
	return nil
}

// KeyFromSeed decodes a base64-encoded 32-byte Ed25519 seed (the form
// an Agent's off-store private_key is distributed in) into a usable
// ed25519.PrivateKey.
func KeyFromSeed(seedBase64 string) (ed25519.PrivateKey, error) {
	seed, err := base64.StdEncoding.DecodeString(seedBase64)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, atomicerr.InvalidValue("ed25519-seed", seedBase64, "must be a base64-encoded 32-byte seed")
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// AgentSubject derives an Agent's subject URL from its public key, per
// spec section 3: "{base_url}/agents/{base64(public_key)}".
func AgentSubject(baseURL string, publicKey ed25519.PublicKey) string {
	return baseURL + "/agents/" + base64.StdEncoding.EncodeToString(publicKey)
}

// CommitSubject derives a commit's own content-addressed subject URL
// from its signature, per spec section 3.
func CommitSubject(baseURL, signature string) string {
	return baseURL + "/commits/" + signature
}

// publicKeyFromAgentSubject extracts the embedded public key from an
// Agent subject URL of the form "{base}/agents/{base64(pubkey)}".
func publicKeyFromAgentSubject(agentSubject string) (ed25519.PublicKey, error) {
	idx := strings.LastIndex(agentSubject, "/agents/")
	if idx < 0 {
		return nil, atomicerr.UnauthorizedSigner("signer %s is not an agent URL", agentSubject)
	}
	encoded := agentSubject[idx+len("/agents/"):]
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, atomicerr.UnauthorizedSigner("signer %s does not embed a valid Ed25519 public key", agentSubject)
	}
	return ed25519.PublicKey(raw), nil
}

// Verify recomputes c's canonical serialization (ignoring any stored
// Signature) and checks it against the Ed25519 public key embedded in
// c.Signer's subject URL.
func (c *Commit) Verify() error {
	if c.Signature == "" {
		return atomicerr.InvalidSignature("commit has no signature")
	}
	sig, err := base64.StdEncoding.DecodeString(c.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return atomicerr.InvalidSignature("signature is not valid base64 Ed25519")
	}
	pub, err := publicKeyFromAgentSubject(c.Signer)
	if err != nil {
		return err
	}
	msg, err := c.CanonicalSerialize()
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, msg, sig) {
		return atomicerr.InvalidSignature("signature does not verify against signer %s", c.Signer)
	}
	return nil
}

// Apply verifies c and, if valid, applies its mutation atomically to
// s, per spec section 4.3:
//  1. destroy (if set) removes the Resource and skips the remaining phases.
//  2. remove deletes each named property.
//  3. set parses each value against its property's Datatype and overwrites it.
//
// If destroy is combined with set or remove, the commit is rejected
// with ConflictingCommit before anything is touched. Duplicate keys in
// the set data are not detected: Set is a map, so by the time Apply
// runs a later duplicate has already replaced the earlier one. On
// success, the
// commit itself is stored as a Resource under its content-addressed
// subject (CommitSubject(baseURL, c.Signature)) so it is queryable
// via TPF.
func (c *Commit) Apply(s store.Store, baseURL string) (*resource.Resource, error) {
	if c.Destroy && (len(c.Set) > 0 || len(c.Remove) > 0) {
		return nil, atomicerr.ConflictingCommit("destroy cannot be combined with set or remove")
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}

	if c.Destroy {
		if err := s.DestroyResource(c.Subject); err != nil {
			return nil, atomicerr.InternalError("destroying %s: %v", c.Subject, err)
		}
	} else {
		target, err := s.GetResource(c.Subject)
		if err != nil {
			target = resource.New(c.Subject)
		}
		for _, p := range c.Remove {
			target.Remove(p)
		}
		for p, raw := range c.Set {
			prop, err := s.GetProperty(p)
			if err != nil {
				return nil, atomicerr.SchemaError("unknown property %s in commit set", p)
			}
			v, err := value.Parse(raw, prop.Datatype)
			if err != nil {
				return nil, err
			}
			target.Set(p, v)
		}
		if err := s.AddResource(target); err != nil {
			return nil, err
		}
	}

	stored, err := c.asResource(baseURL)
	if err != nil {
		return nil, err
	}
	if err := s.AddResourceUnsafe(stored); err != nil {
		return nil, atomicerr.InternalError("storing commit %s: %v", stored.Subject(), err)
	}
	return stored, nil
}

// asResource renders c itself as a Resource, the way it is stored and
// returned from GetResource after application (spec section 3's
// "Commit identity" invariant).
func (c *Commit) asResource(baseURL string) (*resource.Resource, error) {
	subject := CommitSubject(baseURL, c.Signature)
	r := resource.New(subject)
	r.Set(ids.Subject, value.NewAtomicURL(c.Subject))
	r.Set(ids.CreatedAt, value.NewTimestamp(c.CreatedAt))
	r.Set(ids.Signer, value.NewAtomicURL(c.Signer))
	r.Set(ids.Signature, value.NewString(c.Signature))
	isA, err := value.NewResourceArray([]string{ids.ClassCommit})
	if err != nil {
		return nil, err
	}
	r.Set(ids.IsA, isA)
	if c.Destroy {
		r.Set(ids.Destroy, value.NewBoolean(true))
	}
	if len(c.Remove) > 0 {
		removeArr, err := value.NewResourceArray(c.Remove)
		if err != nil {
			return nil, err
		}
		r.Set(ids.Remove, removeArr)
	}
	if len(c.Set) > 0 {
		// encoding/json sorts map keys on marshal, so this is already
		// deterministic without an intermediate ordered copy.
		encoded, err := json.Marshal(c.Set)
		if err != nil {
			return nil, atomicerr.InternalError("encoding commit set field: %v", err)
		}
		r.Set(ids.Set, value.NewString(string(encoded)))
	}
	return r, nil
}

// Builder incrementally constructs a Commit, mirroring the teacher's
// flag.Value-style incremental configuration (backend.Backend.Set)
// before a single terminal action (here, Sign).
type Builder struct {
	c Commit
}

// NewBuilder starts a Builder targeting subject, signed by signer, at
// createdAt (Unix milliseconds).
func NewBuilder(subject, signer string, createdAt int64) *Builder {
	return &Builder{c: Commit{Subject: subject, Signer: signer, CreatedAt: createdAt, Set: map[string]string{}}}
}

// WithSet stages a property to be set to a canonical string value.
func (b *Builder) WithSet(propertyURL, canonicalValue string) *Builder {
	b.c.Set[propertyURL] = canonicalValue
	return b
}

// WithRemove stages a property to be cleared.
func (b *Builder) WithRemove(propertyURL string) *Builder {
	b.c.Remove = append(b.c.Remove, propertyURL)
	return b
}

// WithDestroy marks the commit as destroying its whole target Resource.
func (b *Builder) WithDestroy() *Builder {
	b.c.Destroy = true
	return b
}

// Sign finalizes and signs the built Commit.
func (b *Builder) Sign(privateKey ed25519.PrivateKey) (*Commit, error) {
	if err := b.c.Sign(privateKey); err != nil {
		return nil, err
	}
	return &b.c, nil
}
