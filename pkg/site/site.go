// Package site resolves the address of the WordPress site under test.
//
// A Context is resolved once at test-run startup and then only read. The URL
// comes from WP_TEST_URL when set, otherwise from wp-cli's home option, and
// finally falls back to http://localhost with a warning.
package site

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/jsprateek/wordpressprojects/internal/config"
	"github.com/jsprateek/wordpressprojects/pkg/wpcli"
)

// FallbackURL is used when no configured site can be found
const FallbackURL = "http://localhost"

// Source records where the site URL came from
type Source string

const (
	SourceOverride Source = "override"
	SourceWPCLI    Source = "wp-cli"
	SourceFallback Source = "fallback"
)

// Context is the resolved site address plus environment facts about it
type Context struct {
	scheme string
	host   string
	port   int
	path   string

	source      Source
	shadowID    string
	domainAlias string
}

// Resolver builds a Context. Logger receives the fallback warning; nil means
// the standard logger.
type Resolver struct {
	Tool   wpcli.AdminTool
	Logger *log.Logger
}

// Resolve is shorthand for a Resolver with the standard logger
func Resolve(ctx context.Context, cfg *config.Config, tool wpcli.AdminTool) (*Context, error) {
	r := &Resolver{Tool: tool}
	return r.Resolve(ctx, cfg)
}

// Resolve determines the site URL and parses it. The only error is a
// malformed URL; a missing or broken wp-cli just routes to the fallback.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.Config) (*Context, error) {
	raw, source := r.findURL(ctx, cfg)

	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	c.source = source
	c.shadowID = ShadowFromContainer(cfg.Container)
	c.domainAlias = cfg.DomainAlias
	return c, nil
}

func (r *Resolver) findURL(ctx context.Context, cfg *config.Config) (string, Source) {
	if cfg.SiteURL != "" {
		return cfg.SiteURL, SourceOverride
	}

	if r.Tool != nil && r.Tool.Available(ctx) && r.Tool.IsInstalled(ctx).Success() {
		res := r.Tool.HomeURL(ctx)
		if home := res.Output(); res.Success() && home != "" {
			return home, SourceWPCLI
		}
	}

	r.logf("WARNING: Can't find configured site. Using '%s' instead.", FallbackURL)
	return FallbackURL, SourceFallback
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Parse splits a site URL into its parts
func Parse(raw string) (*Context, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse site url: %q is not an absolute URL", raw)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse site url: invalid port %q", p)
		}
	}

	return &Context{
		scheme: strings.ToLower(u.Scheme),
		host:   u.Hostname(),
		port:   port,
		path:   strings.TrimRight(u.EscapedPath(), "/"),
		source: SourceOverride,
	}, nil
}

// ShadowFromContainer returns the text after the first "_" of a container
// name, or "" when there is none
func ShadowFromContainer(container string) string {
	_, after, found := strings.Cut(container, "_")
	if !found {
		return ""
	}
	return after
}

// BaseURL returns scheme://host[:port]path followed by additionalPath.
// The port is left out when it is the scheme's default.
func (c *Context) BaseURL(additionalPath string) string {
	var b strings.Builder
	b.WriteString(c.scheme)
	b.WriteString("://")
	b.WriteString(c.hostPort())
	b.WriteString(c.path)
	b.WriteString(additionalPath)
	return b.String()
}

// URL is BaseURL with "/" as the default path
func (c *Context) URL(path string) string {
	if path == "" {
		path = "/"
	}
	return c.BaseURL(path)
}

// Home returns the site root with a trailing slash
func (c *Context) Home() string {
	return c.BaseURL("/")
}

// Hostname returns the lowercased host
func (c *Context) Hostname() string {
	return strings.ToLower(c.host)
}

// Host is an alias for Hostname
func (c *Context) Host() string {
	return c.Hostname()
}

// Scheme returns the URL scheme, usually "http" or "https"
func (c *Context) Scheme() string { return c.scheme }

// Port returns the explicit port, or 0 when the URL had none
func (c *Context) Port() int { return c.port }

// Path returns the install path without a trailing slash ("" for the root)
func (c *Context) Path() string { return c.path }

// Source reports where the site URL came from
func (c *Context) Source() Source { return c.source }

// IsShadow reports whether the tests run against a shadow container
func (c *Context) IsShadow() bool {
	return c.shadowID != ""
}

func (c *Context) ShadowIdentifier() string {
	return c.shadowID
}

// DomainAlias returns HTTPS_DOMAIN_ALIAS as given, possibly ""
func (c *Context) DomainAlias() string {
	return c.domainAlias
}

func (c *Context) hostPort() string {
	host := c.host
	if strings.Contains(host, ":") {
		// IPv6 literal
		host = "[" + host + "]"
	}
	if c.port == 0 || c.port == defaultPort(c.scheme) {
		return host
	}
	return host + ":" + strconv.Itoa(c.port)
}

func defaultPort(scheme string) int {
	switch scheme {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}
