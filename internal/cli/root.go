package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jsprateek/wordpressprojects/internal/config"
	"github.com/jsprateek/wordpressprojects/pkg/wpcli"
	"github.com/jsprateek/wordpressprojects/pkg/wptest"
)

// DefaultStatePath is where the CLI remembers the test user when
// WP_TEST_STATE_DB is not set
const DefaultStatePath = ".wptest.db"

// app carries global flags and the loaded configuration to subcommands
type app struct {
	cfgFile   string
	envFiles  []string
	statePath string
	verbose   bool

	cfg *config.Config
	// tool replaces wp-cli in tests
	tool wpcli.AdminTool
}

// NewRootCommand creates the root cobra command
func NewRootCommand(version, commit, date string) *cobra.Command {
	return newRootCommand(version, commit, date, nil)
}

func newRootCommand(version, commit, date string, tool wpcli.AdminTool) *cobra.Command {
	a := &app{tool: tool}

	rootCmd := &cobra.Command{
		Use:   "wptest",
		Short: "WordPress test site helper",
		Long: `wptest finds the WordPress site under test and manages its test user.

The site URL is taken from WP_TEST_URL, then from wp-cli's home option,
and falls back to http://localhost. The test user is created with wp-cli
as an administrator and can be demoted to subscriber after the run:

  eval "$(wptest user create --format env)"
  ./run-browser-tests
  wptest user lower`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "dotenv file(s) to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&a.statePath, "state", "", "state database path (default $WP_TEST_STATE_DB or "+DefaultStatePath+")")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newInitCommand(a))
	rootCmd.AddCommand(newDiagnoseCommand(a))
	rootCmd.AddCommand(newSiteCommand(a))
	rootCmd.AddCommand(newUserCommand(a))

	return rootCmd
}

// loadConfig applies defaults, the config file, dotenv files and the
// environment, in that order
func (a *app) loadConfig() error {
	cfg := config.DefaultConfig()
	if a.cfgFile != "" {
		loaded, err := config.LoadConfig(a.cfgFile)
		if err != nil {
			return err
		}
		// a relative state path in a config file is relative to that file
		if loaded.State.Path != "" && !filepath.IsAbs(loaded.State.Path) {
			loaded.State.Path = filepath.Join(filepath.Dir(a.cfgFile), loaded.State.Path)
		}
		cfg = loaded
	}

	if err := config.LoadDotenv(a.envFiles...); err != nil {
		return err
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if a.statePath != "" {
		cfg.State.Path = a.statePath
	}
	if cfg.State.Path == "" {
		cfg.State.Path = DefaultStatePath
	}

	a.cfg = cfg
	return nil
}

// env builds the site environment for one command. Only user commands need
// the state database.
func (a *app) env(ctx context.Context, withState bool) (*wptest.Env, error) {
	return wptest.New(ctx, a.cfg, wptest.Options{Tool: a.tool, Stateless: !withState})
}
