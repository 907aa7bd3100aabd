// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package ids holds the canonical URLs of Atomic Data's built-in
// properties, classes, and datatypes.  Every well-known identifier in
// the system is declared here, once, so that the rest of the module
// never spells one out as a bare string literal.
package ids

// Property URLs used by the schema system itself and by the commit
// protocol.
const (
	Shortname   = "https://atomicdata.dev/properties/shortname"
	Description = "https://atomicdata.dev/properties/description"
	IsA         = "https://atomicdata.dev/properties/isA"
	Datatype    = "https://atomicdata.dev/properties/datatype"
	ClassType   = "https://atomicdata.dev/properties/classtype"
	Requires    = "https://atomicdata.dev/properties/requires"
	Recommends  = "https://atomicdata.dev/properties/recommends"
	Parent      = "https://atomicdata.dev/properties/parent"
	Name        = "https://atomicdata.dev/properties/name"

	CreatedAt = "https://atomicdata.dev/properties/createdAt"
	Signer    = "https://atomicdata.dev/properties/signer"
	Set       = "https://atomicdata.dev/properties/set"
	Remove    = "https://atomicdata.dev/properties/remove"
	Destroy   = "https://atomicdata.dev/properties/destroy"
	Signature = "https://atomicdata.dev/properties/signature"
	Subject   = "https://atomicdata.dev/properties/subject"

	PublicKey  = "https://atomicdata.dev/properties/publicKey"
	PrivateKey = "https://atomicdata.dev/properties/privateKey"

	// CollectionMembers and friends describe the synthetic
	// collection resources produced by the populator.
	CollectionMembers  = "https://atomicdata.dev/properties/collection/members"
	CollectionProperty = "https://atomicdata.dev/properties/collection/property"
	CollectionValue    = "https://atomicdata.dev/properties/collection/value"
)

// Class URLs.
const (
	ClassProperty   = "https://atomicdata.dev/classes/Property"
	ClassClass      = "https://atomicdata.dev/classes/Class"
	ClassDatatype   = "https://atomicdata.dev/classes/Datatype"
	ClassAgent      = "https://atomicdata.dev/classes/Agent"
	ClassCommit     = "https://atomicdata.dev/classes/Commit"
	ClassCollection = "https://atomicdata.dev/classes/Collection"
)

// Datatype URLs.  These are the only legal values of the Datatype
// property on a Property resource; anything else decodes to the
// Unsupported case.
const (
	DatatypeString        = "https://atomicdata.dev/datatypes/string"
	DatatypeMarkdown      = "https://atomicdata.dev/datatypes/markdown"
	DatatypeSlug          = "https://atomicdata.dev/datatypes/slug"
	DatatypeAtomicURL     = "https://atomicdata.dev/datatypes/atomicUrl"
	DatatypeResourceArray = "https://atomicdata.dev/datatypes/resourceArray"
	DatatypeInteger       = "https://atomicdata.dev/datatypes/integer"
	DatatypeBoolean       = "https://atomicdata.dev/datatypes/boolean"
	DatatypeDate          = "https://atomicdata.dev/datatypes/date"
	DatatypeTimestamp     = "https://atomicdata.dev/datatypes/timestamp"
)

// Well-known collection subject suffixes, relative to a store's base URL.
const (
	CollectionClasses     = "/classes"
	CollectionProperties  = "/properties"
	CollectionCommits     = "/commits"
	CollectionAgents      = "/agents"
	CollectionCollections = "/collections"
)
