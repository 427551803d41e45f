package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/zecdev/lib/store/memory"
	"github.com/tarancss/zecdev/lib/store/sqlite"
)

func TestNew(t *testing.T) {
	dh, err := New("", "")
	require.NoError(t, err)
	assert.IsType(t, &memory.Memory{}, dh)
	assert.NoError(t, Close(dh))

	dh, err = New(SQLITE, "")
	require.NoError(t, err)
	assert.IsType(t, &memory.Memory{}, dh)

	dh, err = New(SQLITE, filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	assert.IsType(t, &sqlite.SQLite{}, dh)
	assert.NoError(t, Close(dh))

	_, err = New("oracle", "somewhere")
	assert.ErrorIs(t, err, ErrUnknownDB)
}
