package store

import (
	"io"
	"path/filepath"
	"testing"

	"tabletalk/backend/internal/models"
	"tabletalk/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.db")
	s, err := Open(path, 8, logger.New(logger.Config{Level: "error", Output: io.Discard}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot(id, name string) models.TableSnapshot {
	return models.TableSnapshot{
		SaveVersion:        models.SaveVersion,
		ID:                 id,
		Name:               name,
		Theme:              "fantasy",
		DefaultLanguage:    "Common",
		AvailableLanguages: []string{"Common", "Elvish"},
		Characters: []models.PersistentCharacter{
			{CharacterID: "ch1", CharacterName: "Alice", Languages: []string{"Common"}},
		},
		ChatHistory: []models.Message{},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	snap := sampleSnapshot("t1", "First Table")
	require.NoError(t, s.Save(snap))

	got, found, err := s.Load("t1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "First Table", got.Name)
	assert.Equal(t, models.SaveVersion, got.SaveVersion)
	require.Len(t, got.Characters, 1)
	assert.Equal(t, "Alice", got.Characters[0].CharacterName)
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)

	_, found, err := s.Load("nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(sampleSnapshot("t1", "Before")))
	require.NoError(t, s.Save(sampleSnapshot("t1", "After")))

	got, found, err := s.Load("t1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "After", got.Name)
}

func TestLoadAll(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(sampleSnapshot("t1", "One")))
	require.NoError(t, s.Save(sampleSnapshot("t2", "Two")))

	snaps, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(sampleSnapshot("t1", "One")))
	require.NoError(t, s.Delete("t1"))

	_, found, err := s.Load("t1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveAsyncFlushedOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.db")
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	s, err := Open(path, 8, log)
	require.NoError(t, err)

	s.SaveAsync(sampleSnapshot("t1", "v1"))
	s.SaveAsync(sampleSnapshot("t1", "v2"))
	s.SaveAsync(sampleSnapshot("t1", "v3"))
	require.NoError(t, s.Close())

	// Reopen and check the last write won.
	s2, err := Open(path, 8, log)
	require.NoError(t, err)
	defer s2.Close()

	got, found, err := s2.Load("t1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v3", got.Name)
}

func TestSaveAsyncAfterDeleteIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.db")
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	s, err := Open(path, 8, log)
	require.NoError(t, err)

	s.SaveAsync(sampleSnapshot("t1", "One"))
	require.NoError(t, s.Delete("t1"))
	s.SaveAsync(sampleSnapshot("t1", "Resurrected"))
	require.NoError(t, s.Close())

	s2, err := Open(path, 8, log)
	require.NoError(t, err)
	defer s2.Close()

	_, found, err := s2.Load("t1")
	require.NoError(t, err)
	assert.False(t, found, "deleted table must stay deleted")
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping())
}

func TestCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.db")
	s, err := Open(path, 8, logger.New(logger.Config{Level: "error", Output: io.Discard}))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
