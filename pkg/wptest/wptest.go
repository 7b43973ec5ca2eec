// Package wptest is the entry point for Go test suites that run against a
// WordPress site.
//
// Build one Env at the start of the run and share it:
//
//	var env *wptest.Env
//
//	func TestMain(m *testing.M) {
//		os.Exit(wptest.Main(m, func(e *wptest.Env) { env = e }))
//	}
//
// or call Setup from a single test.
package wptest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/jsprateek/wordpressprojects/internal/config"
	"github.com/jsprateek/wordpressprojects/pkg/database"
	"github.com/jsprateek/wordpressprojects/pkg/site"
	"github.com/jsprateek/wordpressprojects/pkg/testuser"
	"github.com/jsprateek/wordpressprojects/pkg/wpcli"
)

// Env is everything a test needs to reach the site
type Env struct {
	Config *config.Config
	Site   *site.Context
	Users  *testuser.Manager
	Tool   wpcli.AdminTool

	db *sql.DB
}

// Options overrides parts of the Env, mostly for tests
type Options struct {
	// Tool replaces the wp-cli subprocess runner
	Tool   wpcli.AdminTool
	Logger *log.Logger
	// StatePath overrides cfg.State.Path
	StatePath string
	// Stateless skips the state database even when a path is configured
	Stateless bool
}

// New resolves the site and prepares the user manager. It only fails on a
// malformed site URL or an unusable state database.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Env, error) {
	tool := opts.Tool
	if tool == nil {
		tool = wpcli.New(wpcli.Options{
			Binary:  cfg.CLI.Binary,
			Path:    cfg.CLI.Path,
			Timeout: cfg.CLI.Timeout,
		})
	}

	resolver := &site.Resolver{Tool: tool, Logger: opts.Logger}
	sc, err := resolver.Resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}

	env := &Env{Config: cfg, Site: sc, Tool: tool}

	userOpts := []testuser.Option{}
	if opts.Logger != nil {
		userOpts = append(userOpts, testuser.WithLogger(opts.Logger))
	}

	statePath := opts.StatePath
	if statePath == "" {
		statePath = cfg.State.Path
	}
	if statePath != "" && !opts.Stateless {
		db, err := database.OpenDatabase(database.DatabaseOptions{
			Path:        statePath,
			EnableWAL:   true,
			BusyTimeout: 5000,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open state database: %w", err)
		}
		env.db = db
		userOpts = append(userOpts, testuser.WithStore(database.NewUserStore(db, sc.Home())))
	}

	env.Users = testuser.New(cfg.User, tool, userOpts...)
	return env, nil
}

// Close releases the state database
func (e *Env) Close() error {
	if e.db == nil {
		return nil
	}
	return database.CloseDatabase(e.db)
}

// StoredUsers lists the users recorded in the state database, if one is open
func (e *Env) StoredUsers(ctx context.Context) ([]database.TestUserRow, error) {
	if e.db == nil {
		return nil, nil
	}
	return database.ListTestUsers(ctx, e.db)
}

// RequireUser returns the test user or skips the test when none can be made
func (e *Env) RequireUser(t testing.TB) *testuser.User {
	t.Helper()
	u, err := e.Users.Create(context.Background())
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	return u
}

// Teardown lowers the test user's privileges and closes the Env
func (e *Env) Teardown(ctx context.Context) testuser.Outcome {
	out := e.Users.LowerPrivileges(ctx)
	if out.Status == testuser.Failed {
		log.Printf("wptest: %s", out)
	}
	if err := e.Close(); err != nil {
		log.Printf("wptest: failed to close state database: %v", err)
	}
	return out
}

// Setup builds an Env from the environment for a single test and lowers the
// test user's privileges when the test finishes
func Setup(t testing.TB) *Env {
	t.Helper()

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("failed to load configuration: %v", err)
	}

	env, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("failed to set up site: %v", err)
	}

	t.Cleanup(func() {
		env.Teardown(context.Background())
	})

	return env
}

// Main is for TestMain: it builds the Env, hands it to setup, runs the tests,
// lowers the test user's privileges and returns the exit code
func Main(m *testing.M, setup func(*Env)) int {
	return run(m.Run, setup)
}

func run(tests func() int, setup func(*Env)) int {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "wptest: failed to load configuration: %v\n", err)
		return 1
	}

	env, err := New(ctx, cfg, Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "wptest: failed to set up site: %v\n", err)
		return 1
	}

	if setup != nil {
		setup(env)
	}

	code := tests()
	env.Teardown(ctx)
	return code
}
