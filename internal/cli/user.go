package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jsprateek/wordpressprojects/pkg/testuser"
)

// newUserCommand creates the user command
func newUserCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the test user",
		Long: `Create, show and demote the WordPress user the tests log in as.

The generated user is remembered in the state database so that a later
"wptest user lower" in another process demotes the same account.`,
	}

	cmd.AddCommand(newUserCreateCommand(a))
	cmd.AddCommand(newUserShowCommand(a))
	cmd.AddCommand(newUserLowerCommand(a))
	cmd.AddCommand(newUserListCommand(a))

	return cmd
}

type userOptions struct {
	format string
}

// newUserCreateCommand creates the user create command
func newUserCreateCommand(a *app) *cobra.Command {
	opts := &userOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the test user",
		Long: `Create the test user as an administrator, or reuse the one from
WP_TEST_USER and WP_TEST_USER_PASS when both are set.

Example:
  wptest user create
  eval "$(wptest user create --format env)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.env(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer env.Close()

			u, err := env.Users.Create(cmd.Context())
			if err != nil {
				return err
			}
			return writeUser(cmd.OutOrStdout(), u, opts.format)
		},
	}

	addFormatFlag(cmd.Flags(), &opts.format, "text", "yaml", "env")

	return cmd
}

// newUserShowCommand creates the user show command
func newUserShowCommand(a *app) *cobra.Command {
	opts := &userOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the remembered test user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.env(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer env.Close()

			found, err := env.Users.Restore(cmd.Context())
			if err != nil {
				return err
			}
			if !found {
				return testuser.ErrNoUser
			}
			u, _ := env.Users.Get()
			return writeUser(cmd.OutOrStdout(), u, opts.format)
		},
	}

	addFormatFlag(cmd.Flags(), &opts.format, "text", "yaml", "env")

	return cmd
}

// newUserLowerCommand creates the user lower command
func newUserLowerCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lower",
		Short: "Demote the test user to subscriber",
		Long: `Demote the remembered test user to subscriber. Externally supplied
users are left alone. Nothing happens when no user was created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.env(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.Users.Restore(cmd.Context()); err != nil {
				return err
			}

			out := env.Users.LowerPrivileges(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), out)
			if out.Status == testuser.Failed {
				return fmt.Errorf("failed to lower privileges: %w", out.Err)
			}
			return nil
		},
	}
}

// newUserListCommand creates the user list command
func newUserListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List test users in the state database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.env(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer env.Close()

			rows, err := env.StoredUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No test users recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SITE\tUSERNAME\tCREATED\tLOWERED")
			for _, row := range rows {
				lowered := "-"
				if row.LoweredAt.Valid {
					lowered = row.LoweredAt.String
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Site, row.Username, row.CreatedAt, lowered)
			}
			return w.Flush()
		},
	}
}

func writeUser(w io.Writer, u *testuser.User, format string) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(u)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "env":
		fmt.Fprintf(w, "export WP_TEST_USER=%s\n", shellQuote(u.Username))
		fmt.Fprintf(w, "export WP_TEST_USER_PASS=%s\n", shellQuote(u.Password))
		return nil
	case "text", "":
		fmt.Fprintf(w, "Username: %s\n", u.Username)
		fmt.Fprintf(w, "Password: %s\n", u.Password)
		fmt.Fprintf(w, "Name:     %s %s\n", u.FirstName, u.LastName)
		if u.External {
			fmt.Fprintln(w, "External: yes")
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

// shellQuote wraps s in single quotes for POSIX shells
func shellQuote(s string) string {
	out := []byte{'\''}
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, `'\''`...)
			continue
		}
		out = append(out, s[i])
	}
	return string(append(out, '\''))
}
