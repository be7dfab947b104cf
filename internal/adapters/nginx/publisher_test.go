package nginx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_CreatesDirectoriesAndFile(t *testing.T) {
	p, err := NewPublisher(Options{})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "conf.d", "lighthouse.conf")

	require.NoError(t, p.Write(context.Background(), path, "server {\n}\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "server {\n}\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWrite_ReplacesExistingFileWithoutLeftovers(t *testing.T) {
	p, err := NewPublisher(Options{})
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "lighthouse.conf")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, p.Write(context.Background(), path, "new"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWrite_EmptyPath(t *testing.T) {
	p, err := NewPublisher(Options{})
	require.NoError(t, err)
	assert.Error(t, p.Write(context.Background(), "", "x"))
}

func TestReload_NoCommandIsNoop(t *testing.T) {
	p, err := NewPublisher(Options{ReloadCommand: "  "})
	require.NoError(t, err)
	assert.NoError(t, p.Reload(context.Background()))
}

func TestReload_Success(t *testing.T) {
	p, err := NewPublisher(Options{ReloadCommand: "sh -c 'exit 0'"})
	require.NoError(t, err)
	assert.NoError(t, p.Reload(context.Background()))
}

func TestReload_FailureIncludesOutput(t *testing.T) {
	p, err := NewPublisher(Options{ReloadCommand: `sh -c "echo config test failed >&2; exit 1"`})
	require.NoError(t, err)

	err = p.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config test failed")
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestReload_Timeout(t *testing.T) {
	p, err := NewPublisher(Options{ReloadCommand: "sleep 5", ReloadTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	err = p.Reload(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewPublisher_InvalidCommand(t *testing.T) {
	_, err := NewPublisher(Options{ReloadCommand: `nginx -s "reload`})
	assert.Error(t, err)
}
