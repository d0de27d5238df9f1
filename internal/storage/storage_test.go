package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/models"
)

func newSQLite(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := NewSQLite(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStores_GetSetDelete(t *testing.T) {
	sqlite, _ := newSQLite(t)
	stores := map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemory(),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set("k", []byte("v1")))
			require.NoError(t, s.Set("k", []byte("v2")))
			v, ok, err := s.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("v2"), v)

			require.NoError(t, s.Delete("k"))
			_, ok, err = s.Get("k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Delete("never-set"))
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	s, path := newSQLite(t)
	require.NoError(t, NewPreferences(s, zap.NewNop()).SetUnit(models.Imperial))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, models.Imperial, NewPreferences(reopened, zap.NewNop()).Unit())
}

func TestPreferences_UnitDefaultsToMetric(t *testing.T) {
	p := NewPreferences(NewMemory(), zap.NewNop())
	assert.Equal(t, models.Metric, p.Unit())

	require.NoError(t, p.SetUnit(models.Imperial))
	assert.Equal(t, models.Imperial, p.Unit())
}

func TestPreferences_UnknownStoredUnitIsMetric(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Set(unitKey, []byte("kelvin")))
	assert.Equal(t, models.Metric, NewPreferences(store, zap.NewNop()).Unit())
}

func TestPreferences_RecentsRoundTrip(t *testing.T) {
	s, _ := newSQLite(t)
	p := NewPreferences(s, zap.NewNop())
	assert.Empty(t, p.Recents())

	cities := []models.City{
		models.NewCity("Lisbon", "PT", 38.72, -9.14),
		models.NewCity("Porto", "PT", 41.15, -8.61),
	}
	require.NoError(t, p.SaveRecents(cities))

	got := p.Recents()
	require.Len(t, got, 2)
	assert.Equal(t, "Lisbon", got[0].CityName)
	assert.Equal(t, cities[1].ID, got[1].ID)
}

func TestPreferences_CorruptRecentsAreEmpty(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Set(recentsKey, []byte("{not json")))
	assert.Empty(t, NewPreferences(store, zap.NewNop()).Recents())
}
