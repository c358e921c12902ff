package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadChunksSql(t *testing.T) {
	db := initDB(t)
	defer db.Instance.Close()

	t.Run("Load chunk functions", func(t *testing.T) {
		err := LoadChunksSql(db.Instance, true)
		require.NoError(t, err, "expected chunk functions to load")

		for _, fn := range ChunksFunctions {
			exists, err := functionExists(db.Instance, fn)
			require.NoError(t, err)
			assert.True(t, exists, "expected function %v to exist", fn)
		}
	})

	t.Run("Skip reload when functions exist", func(t *testing.T) {
		err := LoadChunksSql(db.Instance, false)
		assert.NoError(t, err, "expected reload check to succeed")
	})
}

func TestLoadDocumentsSql(t *testing.T) {
	db := initDB(t)
	defer db.Instance.Close()

	t.Run("Load document record functions", func(t *testing.T) {
		err := LoadDocumentsSql(db.Instance, true)
		require.NoError(t, err, "expected document functions to load")

		for _, fn := range DocumentsFunctions {
			exists, err := functionExists(db.Instance, fn)
			require.NoError(t, err)
			assert.True(t, exists, "expected function %v to exist", fn)
		}
	})
}
