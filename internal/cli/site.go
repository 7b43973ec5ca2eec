package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jsprateek/wordpressprojects/pkg/site"
)

// siteInfo is the printable form of a resolved site
type siteInfo struct {
	Home        string `yaml:"home"`
	Hostname    string `yaml:"hostname"`
	Scheme      string `yaml:"scheme"`
	Port        int    `yaml:"port,omitempty"`
	Path        string `yaml:"path"`
	Source      string `yaml:"source"`
	Shadow      bool   `yaml:"shadow"`
	ShadowID    string `yaml:"shadow_id,omitempty"`
	DomainAlias string `yaml:"domain_alias,omitempty"`
}

func newSiteInfo(c *site.Context) siteInfo {
	return siteInfo{
		Home:        c.Home(),
		Hostname:    c.Hostname(),
		Scheme:      c.Scheme(),
		Port:        c.Port(),
		Path:        c.Path(),
		Source:      string(c.Source()),
		Shadow:      c.IsShadow(),
		ShadowID:    c.ShadowIdentifier(),
		DomainAlias: c.DomainAlias(),
	}
}

type siteOptions struct {
	format string
}

// newSiteCommand creates the site command
func newSiteCommand(a *app) *cobra.Command {
	opts := &siteOptions{}

	cmd := &cobra.Command{
		Use:   "site",
		Short: "Show the resolved site",
		Long: `Show the site the tests will run against.

Example:
  wptest site
  wptest site --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.env(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer env.Close()
			return writeSiteInfo(cmd.OutOrStdout(), newSiteInfo(env.Site), opts.format)
		},
	}

	addFormatFlag(cmd.Flags(), &opts.format, "text", "yaml")

	cmd.AddCommand(newSiteURLCommand(a))
	cmd.AddCommand(newSiteWaitCommand(a))

	return cmd
}

// addFormatFlag registers --format; the first format is the default
func addFormatFlag(fs *pflag.FlagSet, target *string, formats ...string) {
	fs.StringVarP(target, "format", "f", formats[0], "output format: "+strings.Join(formats, ", "))
}

func writeSiteInfo(w io.Writer, info siteInfo, format string) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal site: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "text", "":
		fmt.Fprintf(w, "Home:     %s\n", info.Home)
		fmt.Fprintf(w, "Hostname: %s\n", info.Hostname)
		fmt.Fprintf(w, "Source:   %s\n", info.Source)
		if info.Shadow {
			fmt.Fprintf(w, "Shadow:   %s\n", info.ShadowID)
		}
		if info.DomainAlias != "" {
			fmt.Fprintf(w, "Alias:    %s\n", info.DomainAlias)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

// newSiteURLCommand creates the site url command
func newSiteURLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url [path]",
		Short: "Print a URL on the site",
		Long: `Print the site URL followed by path (default "/").

Example:
  wptest site url /wp-admin/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.env(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer env.Close()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			fmt.Fprintln(cmd.OutOrStdout(), env.Site.URL(path))
			return nil
		},
	}
}

type siteWaitOptions struct {
	timeout time.Duration
}

// newSiteWaitCommand creates the site wait command
func newSiteWaitCommand(a *app) *cobra.Command {
	opts := &siteWaitOptions{}

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the site answers HTTP requests",
		Long: `Poll the site's home page until it answers without a server error.

Example:
  wptest site wait --timeout 2m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.env(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer env.Close()

			if a.verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for %s...\n", env.Site.Home())
			}
			if err := site.WaitReady(cmd.Context(), env.Site, site.ReadyOptions{Timeout: opts.timeout}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is up\n", env.Site.Home())
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "how long to wait")

	return cmd
}
