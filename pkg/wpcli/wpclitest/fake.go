// Package wpclitest provides an in-memory wpcli.AdminTool for tests.
package wpclitest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jsprateek/wordpressprojects/pkg/wpcli"
)

// User is an account held by the fake site
type User struct {
	Username  string
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
}

// Fake is an in-memory WordPress install. The zero value is a missing tool,
// even after AddUser; use NewFake for an installed site.
type Fake struct {
	mu sync.Mutex

	// Missing makes every call behave as if wp-cli were not on PATH
	Missing bool
	// NotInstalled makes `core is-installed` fail
	NotInstalled bool
	Home         string

	// Fail forces the named operation ("create", "update", "delete", "home")
	// to exit with code 1
	Fail map[string]bool

	installed bool
	users     map[string]*User
	calls     []string
	required  []string
}

// NewFake returns an installed site whose home option is home
func NewFake(home string) *Fake {
	return &Fake{
		installed: true,
		Home:      home,
		Fail:      map[string]bool{},
		users:     map[string]*User{},
	}
}

// Calls returns the operations seen so far, e.g. "user create seravo-test"
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Required returns the --require files passed to user update, in order
func (f *Fake) Required() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.required...)
}

// CallCount returns how many recorded calls start with prefix
func (f *Fake) CallCount(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// User returns a copy of the stored account
func (f *Fake) User(username string) (User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// AddUser stores an account directly
func (f *Fake) AddUser(u User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = map[string]*User{}
	}
	f.users[u.Username] = &u
}

// Available implements wpcli.AdminTool
func (f *Fake) Available(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Missing && f.installed
}

// IsInstalled implements wpcli.AdminTool
func (f *Fake) IsInstalled(ctx context.Context) *wpcli.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.begin("core is-installed"); r != nil {
		return r
	}
	if f.NotInstalled {
		return f.exit(1, "", "")
	}
	return f.exit(0, "", "")
}

// HomeURL implements wpcli.AdminTool
func (f *Fake) HomeURL(ctx context.Context) *wpcli.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.begin("option get home"); r != nil {
		return r
	}
	if f.Fail["home"] {
		return f.exit(1, "", "Error: Could not get 'home' option.")
	}
	return f.exit(0, f.Home+"\n", "")
}

// CreateUser implements wpcli.AdminTool
func (f *Fake) CreateUser(ctx context.Context, req wpcli.CreateUserRequest) *wpcli.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.begin("user create " + req.Username); r != nil {
		return r
	}
	if f.Fail["create"] {
		return f.exit(1, "", "Error: forced failure")
	}
	if _, ok := f.users[req.Username]; ok {
		return f.exit(1, "", "Error: Sorry, that username already exists!")
	}
	f.users[req.Username] = &User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	return f.exit(0, "Success: Created user.\n", "")
}

// DeleteUser implements wpcli.AdminTool
func (f *Fake) DeleteUser(ctx context.Context, username string) *wpcli.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.begin("user delete " + username); r != nil {
		return r
	}
	if f.Fail["delete"] {
		return f.exit(1, "", "Error: forced failure")
	}
	if _, ok := f.users[username]; !ok {
		return f.exit(1, "", fmt.Sprintf("Warning: Invalid user ID, email or login: '%s'", username))
	}
	delete(f.users, username)
	return f.exit(0, "Success: Removed user.\n", "")
}

// UpdateUser implements wpcli.AdminTool
func (f *Fake) UpdateUser(ctx context.Context, req wpcli.UpdateUserRequest) *wpcli.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.begin("user update " + req.Username); r != nil {
		return r
	}
	if f.Fail["update"] {
		return f.exit(1, "", "Error: forced failure")
	}
	if req.Require != "" {
		f.required = append(f.required, req.Require)
	}
	u, ok := f.users[req.Username]
	if !ok {
		return f.exit(1, "", fmt.Sprintf("Error: Invalid user ID, email or login: '%s'", req.Username))
	}
	if req.Password != "" {
		u.Password = req.Password
	}
	if req.Role != "" {
		u.Role = req.Role
	}
	return f.exit(0, "Success: Updated user.\n", "")
}

// begin records the call; it returns a result when the tool is missing
func (f *Fake) begin(call string) *wpcli.Result {
	if f.Missing || !f.installed {
		return &wpcli.Result{
			Command:  append([]string{"wp"}, strings.Fields(call)...),
			ExitCode: -1,
			Err:      wpcli.ErrNotFound,
		}
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *Fake) exit(code int, stdout, stderr string) *wpcli.Result {
	r := &wpcli.Result{
		Command:  append([]string{"wp"}, strings.Fields(f.calls[len(f.calls)-1])...),
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: code,
	}
	if code != 0 {
		r.Err = fmt.Errorf("exit status %d", code)
	}
	return r
}

var _ wpcli.AdminTool = (*Fake)(nil)
