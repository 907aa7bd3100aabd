package path_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/path"
	"github.com/diffeo-labs/atomic-data-go/populate"
	"github.com/diffeo-labs/atomic-data-go/store/memstore"
	"github.com/diffeo-labs/atomic-data-go/value"
)

func TestClassDescriptionResolvesToStringValue(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	rv := path.New(s, nil)
	res, val, err := rv.Resolve("class description")
	require.NoError(t, err)
	require.Nil(t, res)
	require.NotNil(t, val)
	assert.Equal(t, value.String.URL(), val.Datatype().URL())
	assert.NotEmpty(t, val.Text())
}

func TestHeadResolvesDirectlyFromAbsoluteURL(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	rv := path.New(s, nil)
	res, val, err := rv.Resolve(ids.ClassProperty)
	require.NoError(t, err)
	require.Nil(t, val)
	require.NotNil(t, res)
	assert.Equal(t, ids.ClassProperty, res.Subject())
}

func TestBookmarkResolvesHead(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	rv := path.New(s, map[string]string{"myclass": ids.ClassClass})
	res, _, err := rv.Resolve("myclass")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, ids.ClassClass, res.Subject())
}

func TestResourceArrayIndexTraversesToReferencedResource(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	res, _, err := path.New(s, nil).Resolve("property requires 0")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, ids.Shortname, res.Subject())
}

func TestPathTooLongPastLeafValue(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	_, _, err := path.New(s, nil).Resolve("class description extra")
	require.Error(t, err)
	var ae *atomicerr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, atomicerr.KindSchemaError, ae.Kind)
}

func TestTypeMismatchIndexingNonArray(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	_, _, err := path.New(s, nil).Resolve("class 0")
	require.Error(t, err)
	var ae *atomicerr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, atomicerr.KindSchemaError, ae.Kind)
}

func TestUnknownShortnameIsNotFound(t *testing.T) {
	s := memstore.New()
	require.NoError(t, populate.PopulateBaseModels(s))

	_, _, err := path.New(s, nil).Resolve("nonexistent")
	require.Error(t, err)
	var ae *atomicerr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, atomicerr.KindNotFound, ae.Kind)
}
