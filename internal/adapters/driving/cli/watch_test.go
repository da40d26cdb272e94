package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestWatchCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	existing := filepath.Join(dir, "handbook.md")
	require.NoError(t, os.WriteFile(existing, []byte("# Handbook"), 0o644))

	testMocks.rag.added = 2
	testMocks.rag.removed = 5
	testMocks.watcher.changes = []domain.DocumentChange{
		{Type: domain.ChangeCreated, Path: filepath.Join(dir, "new.txt")},
		{Type: domain.ChangeUpdated, Path: existing},
		{Type: domain.ChangeDeleted, Path: filepath.Join(dir, "old.pdf")},
	}

	out, err := execute(t, "watch", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, testMocks.watcher.root)
	assert.True(t, testMocks.watcher.closed)

	// Initial sync plus one add per created or updated file.
	require.Len(t, testMocks.rag.addedBatch, 3)
	assert.Equal(t, existing, testMocks.rag.addedBatch[0][0].Path)
	assert.Equal(t, filepath.Join(dir, "new.txt"), testMocks.rag.addedBatch[1][0].Path)
	assert.Equal(t, []string{filepath.Join(dir, "old.pdf")}, testMocks.rag.removedIDs)

	assert.Contains(t, out, "Initial sync: 2 chunks added")
	assert.Contains(t, out, "+ new.txt (2 chunks)")
	assert.Contains(t, out, "- old.pdf (5 chunks)")
	assert.Contains(t, out, "Stopped watching.")
}

func TestWatchCmd_NoWatcher(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	documentWatcher = nil

	_, err := execute(t, "watch", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document watcher not configured")
}

func TestWatchCmd_MissingDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "watch", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
