package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/blogapi"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "blogapi dev\n", out)
}

func TestIngestCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "First Post.txt"), []byte(" hello world \n"), 0o644))
	db := filepath.Join(t.TempDir(), "blogs.db")

	out, err := run(t, "ingest", dir, "--db", db, "--env", "test")
	require.NoError(t, err)
	assert.Contains(t, out, "Read 1 files, saved 1 blogs")
	assert.Contains(t, out, `1. "First Post" (11 characters)`)

	store, err := blogapi.NewSQLiteStore(db)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetByTitle(context.Background(), "First Post")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Content)
}

func TestIngestRequiresDir(t *testing.T) {
	_, err := run(t, "ingest")
	assert.Error(t, err)
}
