package memstore_test

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo-labs/atomic-data-go/resource"
	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/store/memstore"
	"github.com/diffeo-labs/atomic-data-go/store/storetest"
)

func TestMemstoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memstore.New()
	})
}

func TestLastWriteTracksMockClock(t *testing.T) {
	mock := clock.NewMock()
	s := memstore.NewWithClock(mock)

	_, ok := s.LastWrite("https://localhost/thing")
	assert.False(t, ok)

	r := resource.New("https://localhost/thing")
	require.NoError(t, s.AddResourceUnsafe(r))

	written, ok := s.LastWrite("https://localhost/thing")
	require.True(t, ok)
	assert.Equal(t, mock.Now(), written)

	mock.Add(time.Hour)
	require.NoError(t, s.AddAtoms([]store.Atom{}))
	require.NoError(t, s.DestroyResource("https://localhost/thing"))

	_, ok = s.LastWrite("https://localhost/thing")
	assert.False(t, ok)
}
