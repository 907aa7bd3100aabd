package populate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/populate"
	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/store/memstore"
	"github.com/diffeo-labs/atomic-data-go/value"
)

func TestPopulateBaseModelsInsertsProperties(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	prop, err := s.GetProperty(ids.Shortname)
	require.NoError(t, err)
	assert.Equal(t, "shortname", prop.Shortname)
	assert.Equal(t, ids.DatatypeSlug, prop.Datatype.URL())

	prop, err = s.GetProperty(ids.IsA)
	require.NoError(t, err)
	assert.Equal(t, ids.ClassClass, prop.ClassType)
}

func TestPopulateBaseModelsInsertsClasses(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	r, err := s.GetResource(ids.ClassClass)
	require.NoError(t, err)
	assert.True(t, r.IsA(ids.ClassClass))
	requires, ok := r.Get(ids.Requires)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{ids.Shortname, ids.Description}, requires.URLs())
}

func TestPopulateBaseModelsIsIdempotent(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))
	require.NoError(t, populate.PopulateBaseModels(s))

	prop, err := s.GetProperty(ids.Shortname)
	require.NoError(t, err)
	assert.Equal(t, "shortname", prop.Shortname)
}

func TestPopulateDefaultAfterBaseModelsInsertsExample(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))
	require.NoError(t, populate.PopulateDefault(s))

	r, err := s.GetResource("https://atomicdata.dev/example")
	require.NoError(t, err)
	shortname, ok := r.Get(ids.Shortname)
	require.True(t, ok)
	assert.Equal(t, "example", shortname.String())
}

func TestPopulateCollectionsCreatesFiveCollections(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))
	require.NoError(t, populate.PopulateCollections(s, "https://localhost"))

	for _, suffix := range []string{
		ids.CollectionClasses,
		ids.CollectionProperties,
		ids.CollectionCommits,
		ids.CollectionAgents,
		ids.CollectionCollections,
	} {
		r, err := s.GetResource("https://localhost" + suffix)
		require.NoError(t, err)
		assert.True(t, r.IsA(ids.ClassCollection))
	}
}

func TestPopulateFromJSONADParsesAgainstSchema(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	objects := []map[string]interface{}{
		{
			"@id":           "https://localhost/imported",
			ids.Shortname:   "imported",
			ids.Description: "Imported via JSON-AD.",
		},
	}
	require.NoError(t, populate.PopulateFromJSONAD(s, objects))

	r, err := s.GetResource("https://localhost/imported")
	require.NoError(t, err)
	shortname, ok := r.Get(ids.Shortname)
	require.True(t, ok)
	assert.Equal(t, "imported", shortname.String())
}

func TestCollectionMembersReflectsLiveStoreState(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))
	col := populate.NewCollection(s, ids.IsA, ids.ClassClass)

	before, err := col.Members()
	require.NoError(t, err)
	assert.Contains(t, before, ids.ClassClass)
	assert.Contains(t, before, ids.ClassProperty)

	isA, err := value.NewResourceArray([]string{ids.ClassClass})
	require.NoError(t, err)
	widget := resource.New("https://localhost/classes/Widget")
	widget.Set(ids.IsA, isA)
	require.NoError(t, s.AddResourceUnsafe(widget))

	after, err := col.Members()
	require.NoError(t, err)
	assert.NotContains(t, before, "https://localhost/classes/Widget")
	assert.Contains(t, after, "https://localhost/classes/Widget")
}
