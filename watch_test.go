package framecomp

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsShaderChange(t *testing.T) {
	assert.True(t, IsShaderChange(fsnotify.Event{Name: "shaders/scene.vert.spv", Op: fsnotify.Write}))
	assert.True(t, IsShaderChange(fsnotify.Event{Name: "shaders/scene.frag.spv", Op: fsnotify.Create}))
	assert.True(t, IsShaderChange(fsnotify.Event{Name: "shaders/scene.frag.spv", Op: fsnotify.Rename}))
	assert.False(t, IsShaderChange(fsnotify.Event{Name: "shaders/scene.frag.spv", Op: fsnotify.Chmod}))
	assert.False(t, IsShaderChange(fsnotify.Event{Name: "shaders/scene.frag", Op: fsnotify.Write}))
}

func TestWatchShadersRequestsRebuild(t *testing.T) {
	dir := t.TempDir()
	var rebuild RebuildState
	w, err := WatchShaders(dir, &rebuild, slog.Default())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.vert.spv"), fakeSPIRV(), 0o644))
	assert.Eventually(t, rebuild.NeedsRebuild, 5*time.Second, 10*time.Millisecond)
}

func TestWatchShadersMissingDir(t *testing.T) {
	var rebuild RebuildState
	_, err := WatchShaders(filepath.Join(t.TempDir(), "absent"), &rebuild, slog.Default())
	assert.Error(t, err)
}
