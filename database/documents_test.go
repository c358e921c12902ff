package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsDBHandler(t *testing.T) {
	db := initDB(t)
	defer db.Instance.Close()

	handler, err := NewDocumentsDBHandler(db, true)
	require.NoError(t, err, "failed to create documents handler")
	require.NoError(t, handler.Clear())

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("original content"), 0644))

	t.Run("Unknown file counts as changed", func(t *testing.T) {
		changed, err := handler.IsChanged(path)
		require.NoError(t, err)
		assert.True(t, changed, "expected unrecorded file to be changed")
	})

	t.Run("Recorded file with same content is unchanged", func(t *testing.T) {
		err := handler.Record(path, 2, []string{"11111111-1111-1111-1111-111111111111", "22222222-2222-2222-2222-222222222222"})
		require.NoError(t, err)

		changed, err := handler.IsChanged(path)
		require.NoError(t, err)
		assert.False(t, changed, "expected recorded file to be unchanged")

		count, err := handler.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Modified file counts as changed", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("modified content"), 0644))

		changed, err := handler.IsChanged(path)
		require.NoError(t, err)
		assert.True(t, changed, "expected modified file to be changed")
	})

	t.Run("Clear forces reprocessing", func(t *testing.T) {
		require.NoError(t, handler.Clear())

		count, err := handler.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		changed, err := handler.IsChanged(path)
		require.NoError(t, err)
		assert.True(t, changed)
	})
}
