// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package serialize implements the two wire encodings of spec
// section 4.6: AD3 (line-delimited JSON triples) and JSON-AD (one
// JSON object per Resource, keyed by fully qualified property URL).
// It follows the content-type-driven (de)serialization shape of the
// teacher's restdata package, minus the CBOR-RPC compatibility layer
// that package carries for its Python peer (this spec has no such
// peer — see DESIGN.md).
package serialize

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Content type identifiers for the two wire formats.
const (
	AD3MediaType    = "application/ad3-ndjson"
	JSONADMediaType = "application/ad+json"
)

// WriteAD3 writes one JSON array line per atom, in the order given.
// Atoms with no natural datatype information (e.g. read back from
// TPF) are written using Value.String()'s canonical form.
func WriteAD3(w io.Writer, atoms []store.Atom) error {
	bw := bufio.NewWriter(w)
	for _, a := range atoms {
		line, err := json.Marshal([3]string{a.Subject, a.Property, a.Value.String()})
		if err != nil {
			return err
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadAD3 parses line-delimited JSON triples. Blank lines and lines
// starting with '#' are ignored. Each value is returned as a raw
// string; the caller is responsible for looking up the property's
// Datatype and parsing it, since AD3 carries no type information of
// its own.
func ReadAD3(r io.Reader) ([]RawAtom, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var out []RawAtom
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var triple [3]string
		if err := json.Unmarshal([]byte(text), &triple); err != nil {
			return nil, fmt.Errorf("ad3 line %d: %w", line, err)
		}
		out = append(out, RawAtom{Subject: triple[0], Property: triple[1], RawValue: triple[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RawAtom is an atom whose value has not yet been typed against a
// Property's Datatype; AD3 parsing produces these.
type RawAtom struct {
	Subject  string
	Property string
	RawValue string
}

// WriteJSONAD encodes a Resource as a JSON object keyed by fully
// qualified property URL, with "@id" reserved for the subject, per
// spec section 4.6.
func WriteJSONAD(w io.Writer, r *resource.Resource) error {
	obj := make(map[string]interface{}, r.Len()+1)
	obj["@id"] = r.Subject()
	for _, p := range r.Properties() {
		v, _ := r.Get(p)
		obj[p] = v.String()
	}
	enc := json.NewEncoder(w)
	return enc.Encode(obj)
}

// ReadJSONAD decodes a JSON-AD object into its subject (from "@id")
// and a property URL -> value map whose values are still untyped
// strings.
// Like ReadAD3, typing against the schema is the caller's job.
func ReadJSONAD(r io.Reader) (subject string, properties map[string]string, err error) {
	var obj map[string]interface{}
	if err = json.NewDecoder(r).Decode(&obj); err != nil {
		return
	}
	properties = make(map[string]string, len(obj))
	for k, v := range obj {
		if k == "@id" {
			subject, _ = v.(string)
			continue
		}
		switch t := v.(type) {
		case string:
			properties[k] = t
		default:
			b, merr := json.Marshal(t)
			if merr != nil {
				return "", nil, merr
			}
			properties[k] = string(b)
		}
	}
	return
}

// EncodeResourceBytes serializes a Resource to a compact, order
// preserving byte form suitable for storage (used by
// store/boltstore's "R/" keyspace). It round-trips through
// DecodeResourceBytes exactly.
func EncodeResourceBytes(r *resource.Resource) ([]byte, error) {
	type kv struct {
		Property string `json:"p"`
		Datatype string `json:"d"`
		Value    string `json:"v"`
	}
	entries := make([]kv, 0, r.Len())
	for _, p := range r.Properties() {
		v, _ := r.Get(p)
		entries = append(entries, kv{Property: p, Datatype: v.Datatype().URL(), Value: v.String()})
	}
	return json.Marshal(struct {
		Subject string `json:"subject"`
		Entries []kv   `json:"entries"`
	}{Subject: r.Subject(), Entries: entries})
}

// DecodeResourceBytes is the inverse of EncodeResourceBytes.
func DecodeResourceBytes(data []byte) (*resource.Resource, error) {
	type kv struct {
		Property string `json:"p"`
		Datatype string `json:"d"`
		Value    string `json:"v"`
	}
	var decoded struct {
		Subject string `json:"subject"`
		Entries []kv   `json:"entries"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	r := resource.New(decoded.Subject)
	for _, e := range decoded.Entries {
		dt := value.LookupDatatype(e.Datatype)
		v, err := value.Parse(e.Value, dt)
		if err != nil {
			return nil, err
		}
		r.Set(e.Property, v)
	}
	return r, nil
}
