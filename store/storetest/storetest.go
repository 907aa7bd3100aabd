// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package storetest is a black-box conformance suite for store.Store
// implementations, in the style of the teacher's
// coordinate/coordinatetest package: each backend's own test file
// calls storetest.Run(t, factory) and gets the same battery of
// assertions run against it.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/value"
)

// Factory constructs a fresh, empty store.Store for one test case.
type Factory func(t *testing.T) store.Store

// Run executes the full conformance suite against the store produced
// by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("UnsafeWriteThenRead", func(t *testing.T) { testUnsafeWriteThenRead(t, factory) })
	t.Run("ValidatedWriteRejectsUnknownProperty", func(t *testing.T) { testRejectsUnknownProperty(t, factory) })
	t.Run("ValidatedWriteRejectsBadValue", func(t *testing.T) { testRejectsBadValue(t, factory) })
	t.Run("ValidatedWriteAcceptsGoodValue", func(t *testing.T) { testAcceptsGoodValue(t, factory) })
	t.Run("ClassTypeEnforced", func(t *testing.T) { testClassTypeEnforced(t, factory) })
	t.Run("TPFSoundAndComplete", func(t *testing.T) { testTPFSoundAndComplete(t, factory) })
	t.Run("DestroyRemovesAllAtoms", func(t *testing.T) { testDestroyRemovesAllAtoms(t, factory) })
	t.Run("ShortnameRoundTrip", func(t *testing.T) { testShortnameRoundTrip(t, factory) })
}

func seedIntegerProperty(t *testing.T, s store.Store, propertyURL string) {
	prop := resource.New(propertyURL)
	prop.Set(ids.Shortname, value.NewSlug("count"))
	prop.Set(ids.Datatype, value.NewAtomicURL(ids.DatatypeInteger))
	prop.Set(ids.Description, value.NewString("a count"))
	require.NoError(t, s.AddResourceUnsafe(prop))
}

func testUnsafeWriteThenRead(t *testing.T, factory Factory) {
	s := factory(t)
	r := resource.New("https://example.test/thing")
	r.Set(ids.Shortname, value.NewSlug("thing"))
	require.NoError(t, s.AddResourceUnsafe(r))

	got, err := s.GetResource("https://example.test/thing")
	require.NoError(t, err)
	v, ok := got.Get(ids.Shortname)
	require.True(t, ok)
	assert.Equal(t, "thing", v.String())
}

func testRejectsUnknownProperty(t *testing.T, factory Factory) {
	s := factory(t)
	r := resource.New("https://example.test/thing")
	r.Set("https://example.test/properties/nope", value.NewString("x"))
	err := s.AddResource(r)
	require.Error(t, err)
	assert.True(t, atomicerr.Is(err, atomicerr.KindSchemaError))

	_, err = s.GetResource("https://example.test/thing")
	assert.True(t, atomicerr.Is(err, atomicerr.KindNotFound), "rejected write must leave the store unchanged")
}

func testRejectsBadValue(t *testing.T, factory Factory) {
	s := factory(t)
	seedIntegerProperty(t, s, "https://example.test/properties/count")

	r := resource.New("https://example.test/thing")
	r.Set("https://example.test/properties/count", value.NewString("abc"))
	err := s.AddResource(r)
	require.Error(t, err)
	assert.True(t, atomicerr.Is(err, atomicerr.KindInvalidValue))
}

func testAcceptsGoodValue(t *testing.T, factory Factory) {
	s := factory(t)
	seedIntegerProperty(t, s, "https://example.test/properties/count")

	r := resource.New("https://example.test/thing")
	r.Set("https://example.test/properties/count", value.NewString("42"))
	require.NoError(t, s.AddResource(r))

	got, err := s.GetResource("https://example.test/thing")
	require.NoError(t, err)
	v, _ := got.Get("https://example.test/properties/count")
	assert.Equal(t, int64(42), v.Int())
}

func testClassTypeEnforced(t *testing.T, factory Factory) {
	s := factory(t)

	widget := resource.New("https://example.test/classes/Widget")
	widget.Set(ids.Shortname, value.NewSlug("widget"))
	require.NoError(t, s.AddResourceUnsafe(widget))

	owner := resource.New("https://example.test/properties/owner")
	owner.Set(ids.Shortname, value.NewSlug("owner"))
	owner.Set(ids.Datatype, value.NewAtomicURL(ids.DatatypeAtomicURL))
	owner.Set(ids.Description, value.NewString("owning widget"))
	owner.Set(ids.ClassType, value.NewAtomicURL("https://example.test/classes/Widget"))
	require.NoError(t, s.AddResourceUnsafe(owner))

	notAWidget := resource.New("https://example.test/things/notawidget")
	require.NoError(t, s.AddResourceUnsafe(notAWidget))

	bad := resource.New("https://example.test/things/bad")
	bad.Set("https://example.test/properties/owner", value.NewAtomicURL("https://example.test/things/notawidget"))
	err := s.AddResource(bad)
	require.Error(t, err)
	assert.True(t, atomicerr.Is(err, atomicerr.KindSchemaError))

	isA, err := value.NewResourceArray([]string{"https://example.test/classes/Widget"})
	require.NoError(t, err)
	goodTarget := resource.New("https://example.test/things/goodtarget")
	goodTarget.Set(ids.IsA, isA)
	require.NoError(t, s.AddResourceUnsafe(goodTarget))

	good := resource.New("https://example.test/things/good")
	good.Set("https://example.test/properties/owner", value.NewAtomicURL("https://example.test/things/goodtarget"))
	require.NoError(t, s.AddResource(good))
}

func testTPFSoundAndComplete(t *testing.T, factory Factory) {
	s := factory(t)
	atoms := []store.Atom{
		{Subject: "https://example.test/a", Property: ids.Shortname, Value: value.NewSlug("a")},
		{Subject: "https://example.test/a", Property: ids.Description, Value: value.NewString("A")},
		{Subject: "https://example.test/b", Property: ids.Shortname, Value: value.NewSlug("b")},
	}
	require.NoError(t, s.AddAtoms(atoms))

	for _, a := range atoms {
		results, err := s.TPF(store.Pattern{Subject: a.Subject, Property: a.Property, Value: a.Value.String()})
		require.NoError(t, err)
		found := false
		for _, r := range results {
			if r.Subject == a.Subject && r.Property == a.Property && r.Value.String() == a.Value.String() {
				found = true
			}
		}
		assert.True(t, found, "tpf must be sound: %+v not found via exact pattern", a)
	}

	results, err := s.TPF(store.Pattern{Property: ids.Shortname})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, ids.Shortname, r.Property, "tpf must be complete: every result matches the filter")
	}
}

func testDestroyRemovesAllAtoms(t *testing.T, factory Factory) {
	s := factory(t)
	r := resource.New("https://example.test/gone")
	r.Set(ids.Shortname, value.NewSlug("gone"))
	require.NoError(t, s.AddResourceUnsafe(r))

	require.NoError(t, s.DestroyResource("https://example.test/gone"))

	_, err := s.GetResource("https://example.test/gone")
	assert.True(t, atomicerr.Is(err, atomicerr.KindNotFound))

	results, err := s.TPF(store.Pattern{Subject: "https://example.test/gone"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testShortnameRoundTrip(t *testing.T, factory Factory) {
	s := factory(t)
	prop := resource.New("https://example.test/properties/widget")
	prop.Set(ids.Shortname, value.NewSlug("widget"))
	prop.Set(ids.Datatype, value.NewAtomicURL(ids.DatatypeString))
	prop.Set(ids.Description, value.NewString("a widget"))
	require.NoError(t, s.AddResourceUnsafe(prop))

	url, err := s.PropertyShortnameToURL("widget")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/properties/widget", url)

	shortname, err := s.PropertyURLToShortname(url)
	require.NoError(t, err)
	assert.Equal(t, "widget", shortname)
}
