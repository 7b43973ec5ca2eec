package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jsprateek/wordpressprojects/internal/config"
	"github.com/jsprateek/wordpressprojects/pkg/database"
	"github.com/jsprateek/wordpressprojects/pkg/site"
)

// DefaultConfigFile is the file written by init
const DefaultConfigFile = "wptest.yaml"

type initOptions struct {
	dir       string
	url       string
	container string
	wpPath    string
	binary    string
	statePath string
	force     bool
}

// newInitCommand creates the init command
func newInitCommand(a *app) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file and state database for a site",
		Long: `Initialize a directory for testing a WordPress site.

This command creates:
  - A configuration file (wptest.yaml)
  - An SQLite state database that remembers the test user

Example:
  wptest init --url https://example.test --wp-path /data/wordpress/htdocs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", ".", "directory to initialize")
	cmd.Flags().StringVar(&opts.url, "url", "", "site URL; leave empty to ask wp-cli")
	cmd.Flags().StringVar(&opts.container, "container", "", "container name, used to detect shadows")
	cmd.Flags().StringVar(&opts.wpPath, "wp-path", "", "WordPress install path passed to wp-cli")
	cmd.Flags().StringVar(&opts.binary, "wp-bin", config.DefaultBinary, "wp-cli executable")
	cmd.Flags().StringVar(&opts.statePath, "db", DefaultStatePath, "state database file, relative to --dir")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, a *app, opts *initOptions) error {
	if opts.url != "" {
		if _, err := site.Parse(opts.url); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(opts.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	configPath := filepath.Join(opts.dir, DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	cfg := config.DefaultConfig()
	cfg.SiteURL = opts.url
	cfg.Container = opts.container
	cfg.CLI.Binary = opts.binary
	cfg.CLI.Path = opts.wpPath
	cfg.State.Path = opts.statePath
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if a.verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), "Initializing state database...")
	}
	dbPath := opts.statePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(opts.dir, dbPath)
	}
	db, err := database.OpenDatabase(database.DatabaseOptions{
		Path:      dbPath,
		EnableWAL: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize state database: %w", err)
	}
	database.CloseDatabase(db)

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Initialized wptest")
	fmt.Fprintf(out, "\nConfiguration:\n")
	if cfg.SiteURL != "" {
		fmt.Fprintf(out, "  Site:     %s\n", cfg.SiteURL)
	} else {
		fmt.Fprintf(out, "  Site:     (from wp-cli)\n")
	}
	fmt.Fprintf(out, "  Database: %s\n", dbPath)
	fmt.Fprintf(out, "  Config:   %s\n", configPath)
	fmt.Fprintf(out, "\nTo create the test user, run:\n")
	fmt.Fprintf(out, "  wptest --config %s user create\n", configPath)

	return nil
}
