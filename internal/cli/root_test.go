package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsprateek/wordpressprojects/pkg/wpcli"
	"github.com/jsprateek/wordpressprojects/pkg/wpcli/wpclitest"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WP_TEST_URL", "CONTAINER", "HTTPS_DOMAIN_ALIAS",
		"WP_TEST_USER", "WP_TEST_USER_PASS", "WP_TEST_USER_FIRSTNAME", "WP_TEST_USER_LASTNAME",
		"WP_TEST_MAIL_GUARD", "WP_CLI_BIN", "WP_CLI_PATH", "WP_CLI_TIMEOUT", "WP_TEST_STATE_DB",
	} {
		t.Setenv(k, "")
	}
}

// execute runs the CLI against fake with a private state database
func execute(t *testing.T, fake wpcli.AdminTool, state string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("1.0.0", "abc123", "2025-01-01", fake)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--state", state}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	t.Run("creates root command", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0", "abc123", "2025-01-01")

		require.NotNil(t, cmd)
		assert.Equal(t, "wptest", cmd.Use)
		assert.Contains(t, cmd.Version, "1.0.0")
	})

	t.Run("has global flags", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0", "abc123", "2025-01-01")

		for _, name := range []string{"config", "env-file", "state", "verbose"} {
			assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0", "abc123", "2025-01-01")

		for _, path := range [][]string{
			{"init"}, {"diagnose"},
			{"site"}, {"site", "url"}, {"site", "wait"},
			{"user", "create"}, {"user", "show"}, {"user", "lower"}, {"user", "list"},
		} {
			found, _, err := cmd.Find(path)
			require.NoError(t, err, strings.Join(path, " "))
			assert.Equal(t, path[len(path)-1], strings.Fields(found.Use)[0])
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("layers file, dotenv and environment", func(t *testing.T) {
		isolateEnv(t)
		dir := t.TempDir()

		cfgPath := filepath.Join(dir, "wptest.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("site_url: https://file.example.test\ncontainer: web_shadow7\n"), 0600))

		envPath := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("WP_TEST_URL=https://dotenv.example.test\n"), 0600))
		// dotenv never overrides variables that are already set
		os.Unsetenv("WP_TEST_URL")

		out, err := execute(t, wpclitest.NewFake(""), filepath.Join(dir, "state.db"),
			"--config", cfgPath, "--env-file", envPath, "site", "--format", "yaml")
		require.NoError(t, err)

		assert.Contains(t, out, "home: https://dotenv.example.test/")
		assert.Contains(t, out, "shadow_id: shadow7")
		assert.Contains(t, out, "source: override")
	})

	t.Run("invalid environment fails", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("WP_CLI_TIMEOUT", "later")

		_, err := execute(t, wpclitest.NewFake(""), filepath.Join(t.TempDir(), "state.db"), "site")
		assert.Error(t, err)
	})

	t.Run("missing config file fails", func(t *testing.T) {
		isolateEnv(t)

		_, err := execute(t, wpclitest.NewFake(""), filepath.Join(t.TempDir(), "state.db"),
			"--config", filepath.Join(t.TempDir(), "absent.yaml"), "site")
		assert.Error(t, err)
	})
}
