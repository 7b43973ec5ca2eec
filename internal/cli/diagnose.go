package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsprateek/wordpressprojects/pkg/site"
	"github.com/jsprateek/wordpressprojects/pkg/wpcli"
	"github.com/jsprateek/wordpressprojects/pkg/wptest"
)

type diagnoseOptions struct {
	output  string
	probe   bool
	timeout time.Duration
}

// newDiagnoseCommand creates the diagnose command
func newDiagnoseCommand(a *app) *cobra.Command {
	opts := &diagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Report how the site and test user were resolved",
		Long: `Produces a markdown summary of the test environment.

The report includes:
  - The effective configuration
  - What wp-cli answered for core is-installed and the home option
  - The resolved site and where its URL came from
  - Test users recorded in the state database

With --probe the site's home page is also requested.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.probe, "probe", false, "request the home page")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "probe timeout")

	return cmd
}

func runDiagnose(cmd *cobra.Command, a *app, opts *diagnoseOptions) error {
	ctx := cmd.Context()

	// Only read an existing state database
	_, statErr := os.Stat(a.cfg.State.Path)
	env, err := a.env(ctx, statErr == nil)
	if err != nil {
		return err
	}
	defer env.Close()

	report := generateReport(ctx, env, opts)

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(report), 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Diagnostic report written to: %s\n", opts.output)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), report)
	return nil
}

// generateReport creates the markdown report
func generateReport(ctx context.Context, env *wptest.Env, opts *diagnoseOptions) string {
	var buf bytes.Buffer
	cfg := env.Config

	buf.WriteString("# wptest Diagnostic Report\n\n")
	buf.WriteString(fmt.Sprintf("**Generated:** %s\n\n", time.Now().UTC().Format(time.RFC3339)))
	buf.WriteString("---\n\n")

	buf.WriteString("## Configuration\n\n")
	buf.WriteString(fmt.Sprintf("- **wp-cli:** `%s`\n", cfg.CLI.Binary))
	if cfg.CLI.Path != "" {
		buf.WriteString(fmt.Sprintf("- **WordPress path:** `%s`\n", cfg.CLI.Path))
	}
	buf.WriteString(fmt.Sprintf("- **wp-cli timeout:** %s\n", cfg.CLI.Timeout))
	buf.WriteString(fmt.Sprintf("- **State database:** `%s`\n", cfg.State.Path))
	if cfg.User.HasExternalUser() {
		buf.WriteString(fmt.Sprintf("- **Test user:** `%s` (external)\n", cfg.User.Username))
	} else {
		buf.WriteString("- **Test user:** generated\n")
	}
	buf.WriteString("\n")

	buf.WriteString("## wp-cli\n\n")
	if !env.Tool.Available(ctx) {
		buf.WriteString("**Available:** no\n\n")
	} else {
		buf.WriteString("**Available:** yes\n\n")
		writeResult(&buf, "core is-installed", env.Tool.IsInstalled(ctx))
		writeResult(&buf, "option get home", env.Tool.HomeURL(ctx))
	}

	buf.WriteString("## Site\n\n")
	info := newSiteInfo(env.Site)
	buf.WriteString("| Field | Value |\n")
	buf.WriteString("|-------|-------|\n")
	buf.WriteString(fmt.Sprintf("| Home | %s |\n", info.Home))
	buf.WriteString(fmt.Sprintf("| Hostname | %s |\n", info.Hostname))
	buf.WriteString(fmt.Sprintf("| Source | %s |\n", info.Source))
	buf.WriteString(fmt.Sprintf("| Shadow | %s |\n", yesNo(info.Shadow, info.ShadowID)))
	if info.DomainAlias != "" {
		buf.WriteString(fmt.Sprintf("| Domain alias | %s |\n", info.DomainAlias))
	}
	buf.WriteString("\n")

	if opts.probe {
		buf.WriteString("## Readiness\n\n")
		err := site.WaitReady(ctx, env.Site, site.ReadyOptions{Timeout: opts.timeout})
		if err != nil {
			buf.WriteString(fmt.Sprintf("**Ready:** no\n\n```\n%v\n```\n\n", err))
		} else {
			buf.WriteString("**Ready:** yes\n\n")
		}
	}

	buf.WriteString("## State Database\n\n")
	rows, err := env.StoredUsers(ctx)
	switch {
	case err != nil:
		buf.WriteString(fmt.Sprintf("```\n%v\n```\n\n", err))
	case len(rows) == 0:
		buf.WriteString("No test users recorded.\n\n")
	default:
		buf.WriteString("| Site | Username | Created | Lowered |\n")
		buf.WriteString("|------|----------|---------|---------|\n")
		for _, row := range rows {
			lowered := "-"
			if row.LoweredAt.Valid {
				lowered = row.LoweredAt.String
			}
			buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", row.Site, row.Username, row.CreatedAt, lowered))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// writeResult formats one wp-cli invocation
func writeResult(buf *bytes.Buffer, name string, res *wpcli.Result) {
	buf.WriteString(fmt.Sprintf("### %s\n\n", name))
	buf.WriteString(fmt.Sprintf("- **Exit code:** %d\n", res.ExitCode))
	buf.WriteString(fmt.Sprintf("- **Duration:** %s\n", res.Duration.Round(time.Millisecond)))
	if out := res.Output(); out != "" {
		buf.WriteString(fmt.Sprintf("- **Output:** `%s`\n", out))
	}
	if res.Failed() {
		buf.WriteString(fmt.Sprintf("\n```\n%s\n```\n", res.Diagnostic()))
	}
	buf.WriteString("\n")
}

func yesNo(ok bool, detail string) string {
	if !ok {
		return "no"
	}
	if detail != "" {
		return "yes (" + detail + ")"
	}
	return "yes"
}
