package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ry1337/openvis/pkg/config"
	"github.com/4ry1337/openvis/pkg/engine"
	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/source/file"
	"github.com/4ry1337/openvis/pkg/source/floodlight"
	"github.com/4ry1337/openvis/pkg/store"
)

// isolate points every XDG directory at a fresh temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, log.InfoLevel).RootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"serve", "watch", "render", "probe", "prefs", "config", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reconcile.DisconnectPolicy = "fade"
	cfg.Reconcile.FadeWindow = config.Duration(time.Second)
	cfg.Layout.DropBehavior = "pin"
	cfg.Layout.FrameRate = 30
	cfg.Connection.RetryPeriod = config.Duration(time.Minute)

	src := file.New(t.TempDir())
	ecfg, err := engineConfig(cfg, src, store.NewNull(), log.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, engine.FadeOut, ecfg.Disconnect)
	assert.Equal(t, time.Second, ecfg.FadeWindow)
	assert.Equal(t, layout.PinOnDrop, ecfg.Layout.Drop)
	assert.Equal(t, 30, ecfg.FrameRate)
	assert.Equal(t, time.Minute, ecfg.Connection.RetryPeriod)
	assert.Equal(t, cfg.Layout.Params, ecfg.Layout.Params)
	assert.Same(t, src, ecfg.Source)
}

func TestEngineConfigRejectsUnknownPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Reconcile.DisconnectPolicy = "eventually"
	_, err := engineConfig(cfg, file.New(t.TempDir()), store.NewNull(), log.Default())
	assert.Error(t, err)
}

func TestNewSourceFollowsKind(t *testing.T) {
	cfg := config.Default()
	_, ok := newSource(cfg, log.Default()).(*floodlight.Source)
	assert.True(t, ok, "default source should be floodlight")

	cfg.Source.Kind = config.SourceFile
	cfg.Source.ReplayDir = t.TempDir()
	_, ok = newSource(cfg, log.Default()).(*file.Source)
	assert.True(t, ok, "file kind should replay from disk")
}

func TestConfigShowAndPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \"0.0.0.0:9999\"\n"), 0o644))

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `addr = "0.0.0.0:9999"`)

	out, err = execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	out, err = execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPath(), strings.TrimSpace(out))
}

func TestConfigShowRejectsUnknownKeys(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 1\n"), 0o644))

	_, err := execute(t, "--config", path, "config", "show")
	assert.Error(t, err)
}

func TestPrefsShowAndReset(t *testing.T) {
	isolate(t)
	ctx := context.Background()
	st, err := store.Open(ctx, config.Default().Persistence)
	require.NoError(t, err)
	params := layout.Params{CenterForce: 0.25, RepelForce: 123, LinkForce: 0.5, LinkDistance: 80}
	require.NoError(t, store.SaveParams(ctx, st, params))
	require.NoError(t, store.SaveControllers(ctx, st, []store.SavedController{{URL: "http://10.0.0.1:8080", Interval: 2000}}))
	require.NoError(t, st.Close())

	out, err := execute(t, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "http://10.0.0.1:8080")
	assert.Contains(t, out, "123")

	_, err = execute(t, "prefs", "reset")
	require.NoError(t, err)

	st, err = store.Open(ctx, config.Default().Persistence)
	require.NoError(t, err)
	defer st.Close()
	_, saved, err := store.LoadParams(ctx, st)
	require.NoError(t, err)
	assert.False(t, saved)
	ctrls, err := store.LoadControllers(ctx, st)
	require.NoError(t, err)
	assert.Len(t, ctrls, 1, "controllers survive a plain reset")

	_, err = execute(t, "prefs", "reset", "--all")
	require.NoError(t, err)
	ctrls, err = store.LoadControllers(ctx, st)
	require.NoError(t, err)
	assert.Empty(t, ctrls)
}

func TestCompletion(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "openvis")

	for _, shell := range []string{"zsh", "fish", "powershell"} {
		out, err := execute(t, "completion", shell, "--no-descriptions")
		require.NoError(t, err, shell)
		assert.NotEmpty(t, out, shell)
	}

	_, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}
