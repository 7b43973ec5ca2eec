// Package testuser manages the disposable WordPress account used by tests.
//
// The Manager creates at most one administrator account per instance,
// or adopts credentials supplied through WP_TEST_USER and WP_TEST_USER_PASS.
// After the run LowerPrivileges demotes a generated account to subscriber so
// that production sites do not collect administrator test accounts.
package testuser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/jsprateek/wordpressprojects/internal/config"
	"github.com/jsprateek/wordpressprojects/pkg/wpcli"
)

// Fixed identity of the generated account
const (
	Username = "seravo-test"
	Email    = "no-reply@seravo.fi"
)

// ErrNoUser means no test user could be provided. It is not fatal; tests
// that need a login should skip.
var ErrNoUser = errors.New("no test user available")

// User is the test account record
type User struct {
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	// External is set when the credentials came from the environment and
	// are managed outside this toolkit
	External bool `json:"external" yaml:"external"`
}

// Store persists the record so a later process can find it. Load returns
// nil, nil when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*User, error)
	Save(ctx context.Context, u *User) error
	Delete(ctx context.Context) error
}

// Manager owns the test user for one site
type Manager struct {
	cfg    config.UserConfig
	tool   wpcli.AdminTool
	store  Store
	logger *log.Logger
	random io.Reader

	mu   sync.Mutex
	user *User
}

// Option configures a Manager
type Option func(*Manager)

// WithStore persists created users
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithLogger sends diagnostics to l instead of the standard logger
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRandom replaces crypto/rand as the password source
func WithRandom(r io.Reader) Option {
	return func(m *Manager) { m.random = r }
}

// New creates a Manager. tool may be nil when wp-cli is not in use.
func New(cfg config.UserConfig, tool wpcli.AdminTool, opts ...Option) *Manager {
	if cfg.FirstName == "" {
		cfg.FirstName = config.DefaultFirstName
	}
	if cfg.LastName == "" {
		cfg.LastName = config.DefaultLastName
	}
	m := &Manager{cfg: cfg, tool: tool}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached user
func (m *Manager) Get() (*User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, false
	}
	u := *m.user
	return &u, true
}

// Has reports whether a user has been created or adopted
func (m *Manager) Has() bool {
	_, ok := m.Get()
	return ok
}

// Restore seeds the cache from external credentials or the store, in the same
// order Create uses. It reports whether a record was found.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil {
		return true, nil
	}
	if m.cfg.HasExternalUser() {
		m.user = m.externalUser()
		return true, nil
	}
	if m.store == nil {
		return false, nil
	}
	u, err := m.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load test user: %w", err)
	}
	if u == nil {
		return false, nil
	}
	m.user = u
	return true, nil
}

// Create returns the test user, creating it on first use. Later calls return
// the same record without touching wp-cli. When no user can be provided the
// error wraps ErrNoUser.
func (m *Manager) Create(ctx context.Context) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user != nil {
		u := *m.user
		return &u, nil
	}

	if m.cfg.HasExternalUser() {
		m.user = m.externalUser()
		u := *m.user
		return &u, nil
	}

	if m.store != nil {
		stored, err := m.store.Load(ctx)
		if err != nil {
			m.logf("failed to load stored test user: %v", err)
		} else if stored != nil && !stored.External {
			m.user = stored
			u := *m.user
			return &u, nil
		}
	}

	u, err := m.provision(ctx)
	if err != nil {
		return nil, err
	}
	m.user = u

	if m.store != nil {
		if err := m.store.Save(ctx, u); err != nil {
			m.logf("failed to store test user: %v", err)
		}
	}

	out := *u
	return &out, nil
}

func (m *Manager) externalUser() *User {
	return &User{
		Username:  m.cfg.Username,
		Password:  m.cfg.Password,
		FirstName: m.cfg.FirstName,
		LastName:  m.cfg.LastName,
		External:  true,
	}
}

// provision creates the account through wp-cli, resetting it if it already exists
func (m *Manager) provision(ctx context.Context) (*User, error) {
	if m.tool == nil || !m.tool.Available(ctx) {
		return nil, fmt.Errorf("%w: wp-cli is not available", ErrNoUser)
	}

	// Stale account from an earlier run; failure just means there was none
	m.tool.DeleteUser(ctx, Username)

	password, err := GeneratePassword(m.random)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoUser, err)
	}

	res := m.tool.CreateUser(ctx, wpcli.CreateUserRequest{
		Username:  Username,
		Email:     Email,
		Password:  password,
		Role:      wpcli.RoleAdministrator,
		FirstName: m.cfg.FirstName,
		LastName:  m.cfg.LastName,
	})
	if res.Failed() {
		m.logf("could not create test user, resetting existing account: %s", res.Diagnostic())

		guard := m.cfg.MailGuard
		if guard == "" {
			path, cleanup, err := writeMailGuard()
			if err != nil {
				m.logf("resetting without mail guard: %v", err)
			} else {
				defer cleanup()
				guard = path
			}
		}

		res = m.tool.UpdateUser(ctx, wpcli.UpdateUserRequest{
			Username: Username,
			Password: password,
			Role:     wpcli.RoleAdministrator,
			Require:  guard,
		})
		if res.Failed() {
			return nil, fmt.Errorf("%w: %s", ErrNoUser, res.Diagnostic())
		}
	}

	return &User{
		Username:  Username,
		Password:  password,
		FirstName: m.cfg.FirstName,
		LastName:  m.cfg.LastName,
	}, nil
}

// LowerPrivileges demotes a generated test user to subscriber
func (m *Manager) LowerPrivileges(ctx context.Context) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return Outcome{Status: NotApplicable}
	}

	// Externally supplied accounts are reused as they are
	if m.user.External {
		return Outcome{Status: AlreadyMinimal}
	}

	if m.tool == nil {
		return Outcome{Status: Failed, Err: wpcli.ErrNotFound}
	}

	res := m.tool.UpdateUser(ctx, wpcli.UpdateUserRequest{
		Username: m.user.Username,
		Role:     wpcli.RoleSubscriber,
	})
	if res.Failed() {
		m.logf("failed to lower privileges of %s: %s", m.user.Username, res.Diagnostic())
		return Outcome{Status: Failed, Err: res.AsError()}
	}

	// A subscriber is no use to the next run
	if m.store != nil {
		if err := m.store.Delete(ctx); err != nil {
			m.logf("failed to forget test user: %v", err)
		}
	}

	return Outcome{Status: Lowered}
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
