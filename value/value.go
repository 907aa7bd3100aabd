// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package value implements Atomic Data's typed Value and Datatype:
// a closed set of datatypes, each with a canonical string form and a
// parser, plus one open case (Unsupported) for datatype URLs the
// registry does not recognize.
//
// In general, objects here carry a small amount of immutable data; a
// Value, once constructed, never changes. Constructing a Value from a
// string that does not satisfy its Datatype's parser fails with
// atomicerr.InvalidValue, per the round-trip law in spec section 4.1:
// parse(to_string(v), type(v)) == v.
package value

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
)

// Kind enumerates the closed set of datatypes, plus the Unsupported
// escape hatch for an unrecognized datatype URL.
type Kind int

const (
	// KindUnsupported is the zero value so a zero Datatype is never
	// mistaken for a recognized one.
	KindUnsupported Kind = iota
	KindAtomicURL
	KindBoolean
	KindDate
	KindInteger
	KindMarkdown
	KindResourceArray
	KindSlug
	KindString
	KindTimestamp
)

// Datatype names a single member of the closed datatype set. Its
// zero value is the Unsupported case for an empty URL; use
// LookupDatatype to build one from a URL string.
type Datatype struct {
	kind Kind
	url  string
}

var registry = map[string]Kind{
	ids.DatatypeAtomicURL:     KindAtomicURL,
	ids.DatatypeBoolean:       KindBoolean,
	ids.DatatypeDate:          KindDate,
	ids.DatatypeInteger:       KindInteger,
	ids.DatatypeMarkdown:      KindMarkdown,
	ids.DatatypeResourceArray: KindResourceArray,
	ids.DatatypeSlug:          KindSlug,
	ids.DatatypeString:        KindString,
	ids.DatatypeTimestamp:     KindTimestamp,
}

var kindToURL = func() map[Kind]string {
	out := make(map[Kind]string, len(registry))
	for u, k := range registry {
		out[k] = u
	}
	return out
}()

// LookupDatatype resolves a datatype URL to a Datatype. Unrecognized
// URLs become the Unsupported case rather than an error: spec section
// 3 requires Datatype to be "a closed set with one open case."
func LookupDatatype(rawURL string) Datatype {
	if kind, ok := registry[rawURL]; ok {
		return Datatype{kind: kind, url: rawURL}
	}
	return Datatype{kind: KindUnsupported, url: rawURL}
}

// URL returns the canonical URL of this Datatype.
func (d Datatype) URL() string {
	if d.kind == KindUnsupported {
		return d.url
	}
	return kindToURL[d.kind]
}

// Kind returns the closed-set tag of this Datatype.
func (d Datatype) Kind() Kind { return d.kind }

// IsSupported reports whether this Datatype is a recognized member of
// the closed set.
func (d Datatype) IsSupported() bool { return d.kind != KindUnsupported }

func (d Datatype) String() string { return d.URL() }

// Well-known Datatype values, for callers that know the type statically.
var (
	AtomicURL     = Datatype{kind: KindAtomicURL}
	Boolean       = Datatype{kind: KindBoolean}
	Date          = Datatype{kind: KindDate}
	Integer       = Datatype{kind: KindInteger}
	Markdown      = Datatype{kind: KindMarkdown}
	ResourceArray = Datatype{kind: KindResourceArray}
	Slug          = Datatype{kind: KindSlug}
	String        = Datatype{kind: KindString}
	Timestamp     = Datatype{kind: KindTimestamp}
)

// Value is a typed payload tagged by Datatype. Construct one with
// Parse; the zero Value is never valid on its own.
type Value struct {
	datatype Datatype
	raw      string        // canonical string form, always populated
	payload  interface{}   // bool, int64, []string, or string depending on Kind
}

// Datatype returns the Datatype this Value was parsed against.
func (v Value) Datatype() Datatype { return v.datatype }

// Raw returns the typed Go payload: bool for Boolean, int64 for
// Integer/Timestamp, []string for ResourceArray, string otherwise.
func (v Value) Raw() interface{} { return v.payload }

// String returns the canonical string form of this Value. This is
// the form stored on disk and the form commit.CanonicalSerialize
// embeds in a commit's "set" map.
func (v Value) String() string { return v.raw }

// Equal reports whether two Values have the same datatype and
// canonical string form.
func (v Value) Equal(other Value) bool {
	return v.datatype.URL() == other.datatype.URL() && v.raw == other.raw
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Parse builds a Value of the given Datatype from its string form.
// It is the only constructor that enforces spec section 4.1's
// per-datatype parser table; the New* helpers below build a Value
// from an already-typed Go value. Unsupported datatypes are stored
// verbatim as opaque strings with no validation, matching the "open
// case" semantics of section 3.
func Parse(raw string, dt Datatype) (Value, error) {
	switch dt.kind {
	case KindString, KindMarkdown:
		return Value{datatype: dt, raw: raw, payload: raw}, nil

	case KindSlug:
		if raw == "" || !slugPattern.MatchString(raw) {
			return Value{}, atomicerr.InvalidValue(dt.URL(), raw, "slug must match [a-z0-9-]+")
		}
		return Value{datatype: dt, raw: raw, payload: raw}, nil

	case KindBoolean:
		switch raw {
		case "true":
			return Value{datatype: dt, raw: raw, payload: true}, nil
		case "false":
			return Value{datatype: dt, raw: raw, payload: false}, nil
		default:
			return Value{}, atomicerr.InvalidValue(dt.URL(), raw, "boolean must be exactly 'true' or 'false'")
		}

	case KindInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, atomicerr.InvalidValue(dt.URL(), raw, "not a decimal integer")
		}
		canon := strconv.FormatInt(n, 10)
		return Value{datatype: dt, raw: canon, payload: n}, nil

	case KindTimestamp:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return Value{}, atomicerr.InvalidValue(dt.URL(), raw, "timestamp must be a non-negative integer")
		}
		canon := strconv.FormatInt(n, 10)
		return Value{datatype: dt, raw: canon, payload: n}, nil

	case KindDate:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Value{}, atomicerr.InvalidValue(dt.URL(), raw, "date must match YYYY-MM-DD")
		}
		canon := t.Format("2006-01-02")
		return Value{datatype: dt, raw: canon, payload: canon}, nil

	case KindAtomicURL:
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return Value{}, atomicerr.InvalidValue(dt.URL(), raw, "atomicUrl must be an absolute URL")
		}
		return Value{datatype: dt, raw: raw, payload: raw}, nil

	case KindResourceArray:
		var urls []string
		if err := json.Unmarshal([]byte(raw), &urls); err != nil {
			return Value{}, atomicerr.InvalidValue(dt.URL(), raw, "resourceArray must be a JSON array of strings")
		}
		for _, u := range urls {
			parsed, err := url.Parse(u)
			if err != nil || !parsed.IsAbs() {
				return Value{}, atomicerr.InvalidValue(dt.URL(), raw, fmt.Sprintf("resourceArray member %q is not an absolute URL", u))
			}
		}
		canon, err := canonicalJSONArray(urls)
		if err != nil {
			return Value{}, atomicerr.InvalidValue(dt.URL(), raw, err.Error())
		}
		return Value{datatype: dt, raw: canon, payload: urls}, nil

	default:
		// Unsupported: accept whatever bytes arrived, unchecked.
		return Value{datatype: dt, raw: raw, payload: raw}, nil
	}
}

func canonicalJSONArray(items []string) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NewString, NewBoolean, NewInteger, NewTimestamp, and NewResourceArray
// are convenience constructors for code (the populator, tests) that
// already has a typed Go value rather than a string to parse.

// NewString builds a String Value directly.
func NewString(s string) Value {
	return Value{datatype: String, raw: s, payload: s}
}

// NewSlug builds a Slug Value directly, panicking if s is not a
// legal slug; callers that cannot guarantee this should use Parse.
func NewSlug(s string) Value {
	v, err := Parse(s, Slug)
	if err != nil {
		panic(err)
	}
	return v
}

// NewBoolean builds a Boolean Value directly.
func NewBoolean(b bool) Value {
	raw := "false"
	if b {
		raw = "true"
	}
	return Value{datatype: Boolean, raw: raw, payload: b}
}

// NewInteger builds an Integer Value directly.
func NewInteger(n int64) Value {
	return Value{datatype: Integer, raw: strconv.FormatInt(n, 10), payload: n}
}

// NewTimestamp builds a Timestamp Value directly from Unix epoch
// milliseconds.
func NewTimestamp(millis int64) Value {
	return Value{datatype: Timestamp, raw: strconv.FormatInt(millis, 10), payload: millis}
}

// NewResourceArray builds a ResourceArray Value directly from a slice
// of absolute URLs, sorting is not applied: order is significant.
func NewResourceArray(urls []string) (Value, error) {
	canon, err := canonicalJSONArray(urls)
	if err != nil {
		return Value{}, err
	}
	cp := append([]string(nil), urls...)
	return Value{datatype: ResourceArray, raw: canon, payload: cp}, nil
}

// NewAtomicURL builds an AtomicUrl Value directly.
func NewAtomicURL(u string) Value {
	return Value{datatype: AtomicURL, raw: u, payload: u}
}

// Bool returns the boolean payload, or false if this Value is not a
// Boolean.
func (v Value) Bool() bool {
	b, _ := v.payload.(bool)
	return b
}

// Int returns the integer payload, or zero if this Value is not an
// Integer or Timestamp.
func (v Value) Int() int64 {
	n, _ := v.payload.(int64)
	return n
}

// URLs returns the ResourceArray payload, or nil if this Value is not
// a ResourceArray.
func (v Value) URLs() []string {
	u, _ := v.payload.([]string)
	return u
}

// SortedURLs returns a sorted copy of URLs(), used when emitting a
// ResourceArray into an unordered context such as a remove set.
func (v Value) SortedURLs() []string {
	u := append([]string(nil), v.URLs()...)
	sort.Strings(u)
	return u
}

// Text returns the string payload for String, Markdown, Slug, Date or
// AtomicUrl values.
func (v Value) Text() string {
	s, ok := v.payload.(string)
	if !ok {
		return v.raw
	}
	return s
}
