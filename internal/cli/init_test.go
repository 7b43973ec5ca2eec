package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsprateek/wordpressprojects/internal/config"
	"github.com/jsprateek/wordpressprojects/pkg/wpcli/wpclitest"
)

func TestInitCommand(t *testing.T) {
	t.Run("writes config and state database", func(t *testing.T) {
		isolateEnv(t)
		dir := t.TempDir()

		out, err := execute(t, wpclitest.NewFake(""), filepath.Join(dir, "unused.db"),
			"init", "--dir", dir, "--url", "https://example.test", "--container", "web_shadow1", "--wp-path", "/srv/wp")
		require.NoError(t, err)
		assert.Contains(t, out, "Initialized wptest")

		cfg, err := config.LoadConfig(filepath.Join(dir, DefaultConfigFile))
		require.NoError(t, err)
		assert.Equal(t, "https://example.test", cfg.SiteURL)
		assert.Equal(t, "web_shadow1", cfg.Container)
		assert.Equal(t, "/srv/wp", cfg.CLI.Path)
		assert.Equal(t, DefaultStatePath, cfg.State.Path)

		_, err = os.Stat(filepath.Join(dir, DefaultStatePath))
		assert.NoError(t, err)
	})

	t.Run("config file drives later commands", func(t *testing.T) {
		isolateEnv(t)
		dir := t.TempDir()
		fake := wpclitest.NewFake("")

		_, err := execute(t, fake, filepath.Join(dir, "unused.db"), "init", "--dir", dir, "--url", "https://example.test/blog")
		require.NoError(t, err)

		cmd := newRootCommand("1.0.0", "abc123", "2025-01-01", fake)
		cmd.SetArgs([]string{"--config", filepath.Join(dir, DefaultConfigFile), "user", "create"})
		cmd.SetOut(io.Discard)
		require.NoError(t, cmd.Execute())

		// the user landed in the database next to the config file
		out, err := execute(t, fake, filepath.Join(dir, DefaultStatePath), "user", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "https://example.test/blog/")
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		isolateEnv(t)
		dir := t.TempDir()
		state := filepath.Join(dir, "unused.db")

		_, err := execute(t, wpclitest.NewFake(""), state, "init", "--dir", dir)
		require.NoError(t, err)

		_, err = execute(t, wpclitest.NewFake(""), state, "init", "--dir", dir)
		assert.Error(t, err)

		_, err = execute(t, wpclitest.NewFake(""), state, "init", "--dir", dir, "--force")
		assert.NoError(t, err)
	})

	t.Run("rejects malformed url", func(t *testing.T) {
		isolateEnv(t)
		dir := t.TempDir()

		_, err := execute(t, wpclitest.NewFake(""), filepath.Join(dir, "unused.db"), "init", "--dir", dir, "--url", "example.test")
		assert.Error(t, err)

		_, statErr := os.Stat(filepath.Join(dir, DefaultConfigFile))
		assert.True(t, os.IsNotExist(statErr))
	})
}
