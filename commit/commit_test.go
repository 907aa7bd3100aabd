// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package commit_test

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo-labs/atomic-data-go/commit"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/populate"
	"github.com/diffeo-labs/atomic-data-go/store/memstore"
)

func TestCanonicalSerializeMatchesSpecExample(t *testing.T) {
	c := &commit.Commit{
		Subject:   "https://localhost/test",
		CreatedAt: 1603638837,
		Signer:    "https://localhost/author",
		Set: map[string]string{
			ids.Shortname:   "shortname",
			ids.Description: "Some description",
		},
		Remove: []string{ids.IsA},
	}
	got, err := c.CanonicalSerialize()
	require.NoError(t, err)

	want := `{"https://atomicdata.dev/properties/createdAt":1603638837,` +
		`"https://atomicdata.dev/properties/remove":["https://atomicdata.dev/properties/isA"],` +
		`"https://atomicdata.dev/properties/set":{"https://atomicdata.dev/properties/description":"Some description","https://atomicdata.dev/properties/shortname":"shortname"},` +
		`"https://atomicdata.dev/properties/signer":"https://localhost/author",` +
		`"https://atomicdata.dev/properties/subject":"https://localhost/test"}`
	assert.Equal(t, want, string(got))
}

func TestCanonicalSerializeIsOrderIndependent(t *testing.T) {
	a := &commit.Commit{
		Subject: "https://localhost/test", CreatedAt: 1, Signer: "https://localhost/a",
		Set:    map[string]string{ids.Shortname: "x", ids.Description: "y"},
		Remove: []string{ids.IsA, ids.ClassType},
	}
	b := &commit.Commit{
		Subject: "https://localhost/test", CreatedAt: 1, Signer: "https://localhost/a",
		Set:    map[string]string{ids.Description: "y", ids.Shortname: "x"},
		Remove: []string{ids.ClassType, ids.IsA},
	}
	sa, err := a.CanonicalSerialize()
	require.NoError(t, err)
	sb, err := b.CanonicalSerialize()
	require.NoError(t, err)
	assert.Equal(t, string(sa), string(sb))
}

func TestSignMatchesSpecExample(t *testing.T) {
	priv, err := commit.KeyFromSeed("CapMWIhFUT+w7ANv9oCPqrHrwZpkP2JhzF9JnyT6WcI=")
	require.NoError(t, err)

	sig := ed25519.Sign(priv, []byte("val"))
	got := base64.StdEncoding.EncodeToString(sig)
	want := "YtDR/xo0272LHNBQtDer4LekzdkfUANFTI0eHxZhITXnbC3j0LCqDWhr6itNvo4tFnep6DCbev5OKAHH89+TDA=="
	assert.Equal(t, want, got)
}

func TestAgentSubjectMatchesSpecExample(t *testing.T) {
	priv, err := commit.KeyFromSeed("CapMWIhFUT+w7ANv9oCPqrHrwZpkP2JhzF9JnyT6WcI=")
	require.NoError(t, err)
	pub := priv.Public().(ed25519.PublicKey)

	got := commit.AgentSubject("http://localhost", pub)
	want := "http://localhost/agents/7LsjMW5gOfDdJzK/atgjQ1t20J/rw8MjVg6xwqm+h8U="
	assert.Equal(t, want, got)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := commit.AgentSubject("https://localhost", pub)

	c := commit.NewBuilder("https://localhost/thing", signer, 1).
		WithSet(ids.Shortname, "thing").
		WithSet(ids.Description, "a thing")
	signed, err := c.Sign(priv)
	require.NoError(t, err)

	require.NoError(t, signed.Verify())

	// Tampering invalidates the signature.
	signed.CreatedAt++
	assert.Error(t, signed.Verify())
}

func TestApplyThenRead(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))
	require.NoError(t, populate.PopulateDefault(s))

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := commit.AgentSubject("https://localhost", pub)

	builder := commit.NewBuilder("https://localhost/new_thing", signer, 1).
		WithSet(ids.Description, "Some value").
		WithSet(ids.Shortname, "someval")
	signed, err := builder.Sign(priv)
	require.NoError(t, err)

	_, err = signed.Apply(s, "https://localhost")
	require.NoError(t, err)

	got, err := s.GetResource("https://localhost/new_thing")
	require.NoError(t, err)
	desc, ok := got.Get(ids.Description)
	require.True(t, ok)
	assert.Equal(t, "Some value", desc.String())
}

func TestApplyRejectsConflictingDestroyAndSet(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := commit.AgentSubject("https://localhost", pub)

	builder := commit.NewBuilder("https://localhost/thing", signer, 1).
		WithSet(ids.Shortname, "thing").
		WithDestroy()
	signed, err := builder.Sign(priv)
	require.NoError(t, err)

	_, err = signed.Apply(s, "https://localhost")
	require.Error(t, err)
}
