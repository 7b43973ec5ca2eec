// Package wpcli drives the WordPress command-line tool.
//
// AdminTool is the set of operations the test toolkit needs from wp-cli.
// CLI implements it by running the wp binary; wpclitest provides an
// in-memory fake.
package wpcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// AdminTool is the capability set used to discover the site and manage users
type AdminTool interface {
	// Available reports whether the tool can be run at all
	Available(ctx context.Context) bool
	IsInstalled(ctx context.Context) *Result
	HomeURL(ctx context.Context) *Result
	CreateUser(ctx context.Context, req CreateUserRequest) *Result
	DeleteUser(ctx context.Context, username string) *Result
	UpdateUser(ctx context.Context, req UpdateUserRequest) *Result
}

// CreateUserRequest describes a `wp user create` call
type CreateUserRequest struct {
	Username  string
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
}

// UpdateUserRequest describes a `wp user update` call. Empty fields are not sent.
type UpdateUserRequest struct {
	Username string
	Password string
	Role     string
	// Require is a PHP file loaded before the command runs
	Require string
}

// WordPress roles used by the toolkit
const (
	RoleAdministrator = "administrator"
	RoleSubscriber    = "subscriber"
)

// DefaultTimeout bounds each invocation when Options.Timeout is zero
const DefaultTimeout = 60 * time.Second

// Options configures a CLI
type Options struct {
	// Binary is the wp-cli executable name or path (default "wp")
	Binary string
	// Path is the WordPress install directory, passed as --path
	Path string
	// ExtraArgs are appended to every invocation (e.g. --allow-root)
	ExtraArgs []string
	Timeout   time.Duration
	// Env holds extra KEY=VALUE pairs for the child process
	Env map[string]string
}

// CLI runs wp-cli as a subprocess
type CLI struct {
	binary    string
	path      string
	extraArgs []string
	timeout   time.Duration
	env       map[string]string
	lookPath  func(string) (string, error)
}

// New creates a CLI
func New(opts Options) *CLI {
	binary := opts.Binary
	if binary == "" {
		binary = "wp"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CLI{
		binary:    binary,
		path:      opts.Path,
		extraArgs: opts.ExtraArgs,
		timeout:   timeout,
		env:       opts.Env,
		lookPath:  exec.LookPath,
	}
}

// Binary returns the configured executable
func (c *CLI) Binary() string {
	return c.binary
}

// Available reports whether the wp binary can be found
func (c *CLI) Available(ctx context.Context) bool {
	_, err := c.lookPath(c.binary)
	return err == nil
}

// IsInstalled runs `wp core is-installed`
func (c *CLI) IsInstalled(ctx context.Context) *Result {
	return c.Run(ctx, "core", "is-installed")
}

// HomeURL runs `wp option get home`; the URL is in Result.Output()
func (c *CLI) HomeURL(ctx context.Context) *Result {
	return c.Run(ctx, "option", "get", "home")
}

// CreateUser runs `wp user create`
func (c *CLI) CreateUser(ctx context.Context, req CreateUserRequest) *Result {
	args := []string{"user", "create", req.Username, req.Email}
	if req.Password != "" {
		args = append(args, "--user_pass="+req.Password)
	}
	if req.Role != "" {
		args = append(args, "--role="+req.Role)
	}
	if req.FirstName != "" {
		args = append(args, "--first_name="+req.FirstName)
	}
	if req.LastName != "" {
		args = append(args, "--last_name="+req.LastName)
	}
	return c.Run(ctx, args...)
}

// DeleteUser runs `wp user delete <username> --yes`
func (c *CLI) DeleteUser(ctx context.Context, username string) *Result {
	return c.Run(ctx, "user", "delete", username, "--yes")
}

// UpdateUser runs `wp user update`
func (c *CLI) UpdateUser(ctx context.Context, req UpdateUserRequest) *Result {
	args := []string{"user", "update", req.Username}
	if req.Password != "" {
		args = append(args, "--user_pass="+req.Password)
	}
	if req.Role != "" {
		args = append(args, "--role="+req.Role)
	}
	if req.Require != "" {
		args = append(args, "--require="+req.Require)
	}
	return c.Run(ctx, args...)
}

// Run executes wp-cli with the given arguments plus the configured global flags
func (c *CLI) Run(ctx context.Context, args ...string) *Result {
	fullArgs := make([]string, 0, len(args)+len(c.extraArgs)+1)
	fullArgs = append(fullArgs, args...)
	if c.path != "" {
		fullArgs = append(fullArgs, "--path="+c.path)
	}
	fullArgs = append(fullArgs, c.extraArgs...)

	command := append([]string{c.binary}, fullArgs...)

	binaryPath, err := c.lookPath(c.binary)
	if err != nil {
		return &Result{
			Command:  command,
			ExitCode: -1,
			Err:      fmt.Errorf("%w: %v", ErrNotFound, err),
		}
	}

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, fullArgs...)
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), envMapToSlice(c.env)...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// e.g. timeout or permission denied
			exitCode = -1
		}
	}

	return &Result{
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: time.Since(startTime),
		Err:      err,
	}
}

// envMapToSlice converts a map of environment variables to a slice of "KEY=VALUE" strings
func envMapToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}
