package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "snapshots.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.LoadSnapshot(TableState)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, s.SaveSnapshot(TableState, []byte(`{"positions":[]}`)))
	got, err := s.LoadSnapshot(TableState)
	require.NoError(t, err)
	assert.Equal(t, `{"positions":[]}`, string(got))

	// Second save replaces, never appends.
	require.NoError(t, s.SaveSnapshot(TableState, []byte(`v2`)))
	got, err = s.LoadSnapshot(TableState)
	require.NoError(t, err)
	assert.Equal(t, `v2`, string(got))
}

func TestSQLite_TablesAreIndependent(t *testing.T) {
	t.Parallel()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "snapshots.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.SaveSnapshot(TableState, []byte("state")))
	require.NoError(t, s.SaveSnapshot(TableLockouts, []byte("locks")))

	got, err := s.LoadSnapshot(TableLockouts)
	require.NoError(t, err)
	assert.Equal(t, "locks", string(got))
}

func TestMemory_RoundTrip(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_, err := m.LoadSnapshot(TableCounters)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, m.SaveSnapshot(TableCounters, []byte("x")))
	got, err := m.LoadSnapshot(TableCounters)
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}
