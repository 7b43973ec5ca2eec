package site_test

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsprateek/wordpressprojects/internal/config"
	"github.com/jsprateek/wordpressprojects/pkg/site"
	"github.com/jsprateek/wordpressprojects/pkg/wpcli/wpclitest"
)

func resolve(t *testing.T, cfg *config.Config, fake *wpclitest.Fake) (*site.Context, string) {
	t.Helper()
	var buf bytes.Buffer
	r := &site.Resolver{Logger: log.New(&buf, "", 0)}
	if fake != nil {
		r.Tool = fake
	}
	c, err := r.Resolve(context.Background(), cfg)
	require.NoError(t, err)
	return c, buf.String()
}

func withURL(raw string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.SiteURL = raw
	return cfg
}

// TestURLBuilding tests URL reconstruction from an override
func TestURLBuilding(t *testing.T) {
	t.Run("subdirectory install", func(t *testing.T) {
		c, _ := resolve(t, withURL("https://example.test/blog"), nil)

		assert.Equal(t, "https://example.test/blog/", c.Home())
		assert.Equal(t, "https://example.test/blog/wp-admin/", c.BaseURL("/wp-admin/"))
		assert.Equal(t, "https://example.test/blog/wp-login.php", c.URL("/wp-login.php"))
		assert.Equal(t, "https://example.test/blog/", c.URL(""))
		assert.Equal(t, site.SourceOverride, c.Source())
	})

	t.Run("trailing slash on install path", func(t *testing.T) {
		c, _ := resolve(t, withURL("https://example.test/blog/"), nil)

		assert.Equal(t, "https://example.test/blog/", c.Home())
		assert.Equal(t, "/blog", c.Path())
	})

	t.Run("default http port omitted", func(t *testing.T) {
		c, _ := resolve(t, withURL("http://example.test:80/"), nil)

		assert.Equal(t, "http://example.test/", c.Home())
		assert.Equal(t, "http://example.test/wp-admin/", c.BaseURL("/wp-admin/"))
		assert.NotContains(t, c.BaseURL("/x"), ":80")
	})

	t.Run("default https port omitted", func(t *testing.T) {
		c, _ := resolve(t, withURL("https://example.test:443"), nil)

		assert.Equal(t, "https://example.test/", c.Home())
	})

	t.Run("custom port kept", func(t *testing.T) {
		c, _ := resolve(t, withURL("https://example.test:8443/"), nil)

		assert.Equal(t, "https://example.test:8443/", c.Home())
		assert.Equal(t, "https://example.test:8443/x", c.BaseURL("/x"))
		assert.Equal(t, 8443, c.Port())
	})

	t.Run("port 443 on http is kept", func(t *testing.T) {
		c, _ := resolve(t, withURL("http://example.test:443/"), nil)

		assert.Equal(t, "http://example.test:443/", c.Home())
	})

	t.Run("ipv6 host", func(t *testing.T) {
		c, _ := resolve(t, withURL("http://[::1]:8080/"), nil)

		assert.Equal(t, "http://[::1]:8080/", c.Home())
		assert.Equal(t, "::1", c.Hostname())
	})
}

// TestHostname tests host normalisation
func TestHostname(t *testing.T) {
	c, _ := resolve(t, withURL("http://EXAMPLE.test/"), nil)

	assert.Equal(t, "example.test", c.Hostname())
	assert.Equal(t, "example.test", c.Host())
}

// TestResolutionOrder tests override, wp-cli and fallback routing
func TestResolutionOrder(t *testing.T) {
	t.Run("override wins over wp-cli", func(t *testing.T) {
		fake := wpclitest.NewFake("https://from-wp.example.test")
		c, _ := resolve(t, withURL("https://override.example.test"), fake)

		assert.Equal(t, "override.example.test", c.Hostname())
		assert.Empty(t, fake.Calls())
	})

	t.Run("wp-cli home option", func(t *testing.T) {
		fake := wpclitest.NewFake("https://from-wp.example.test/sub")
		c, logged := resolve(t, config.DefaultConfig(), fake)

		assert.Equal(t, "https://from-wp.example.test/sub/", c.Home())
		assert.Equal(t, site.SourceWPCLI, c.Source())
		assert.Equal(t, []string{"core is-installed", "option get home"}, fake.Calls())
		assert.Empty(t, logged)
	})

	t.Run("not installed falls back", func(t *testing.T) {
		fake := wpclitest.NewFake("https://from-wp.example.test")
		fake.NotInstalled = true
		c, logged := resolve(t, config.DefaultConfig(), fake)

		assert.Equal(t, "http://localhost/", c.Home())
		assert.Equal(t, site.SourceFallback, c.Source())
		assert.Contains(t, logged, "WARNING: Can't find configured site. Using 'http://localhost' instead.")
	})

	t.Run("failing home query falls back", func(t *testing.T) {
		fake := wpclitest.NewFake("https://from-wp.example.test")
		fake.Fail["home"] = true
		c, logged := resolve(t, config.DefaultConfig(), fake)

		assert.Equal(t, "http://localhost/", c.Home())
		assert.NotEmpty(t, logged)
	})

	t.Run("missing tool falls back", func(t *testing.T) {
		fake := &wpclitest.Fake{Missing: true}
		c, logged := resolve(t, config.DefaultConfig(), fake)

		assert.Equal(t, "localhost", c.Hostname())
		assert.NotEmpty(t, logged)
	})

	t.Run("nil tool falls back", func(t *testing.T) {
		c, _ := resolve(t, config.DefaultConfig(), nil)

		assert.Equal(t, site.SourceFallback, c.Source())
	})

	t.Run("package level resolve", func(t *testing.T) {
		c, err := site.Resolve(context.Background(), withURL("https://example.test"), nil)
		require.NoError(t, err)
		assert.Equal(t, "https://example.test/", c.Home())
	})
}

// TestParseErrors tests malformed URLs
func TestParseErrors(t *testing.T) {
	for _, raw := range []string{"://missing-scheme", "not a url", "http://example.test:port/"} {
		t.Run(raw, func(t *testing.T) {
			_, err := site.Parse(raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse site url")
		})
	}

	t.Run("resolve propagates parse error", func(t *testing.T) {
		r := &site.Resolver{}
		_, err := r.Resolve(context.Background(), withURL("::bad::"))
		assert.Error(t, err)
	})
}

// TestShadow tests shadow container detection
func TestShadow(t *testing.T) {
	t.Run("identifier after first underscore", func(t *testing.T) {
		cfg := withURL("http://example.test")
		cfg.Container = "foo_bar123"
		c, _ := resolve(t, cfg, nil)

		assert.Equal(t, "bar123", c.ShadowIdentifier())
		assert.True(t, c.IsShadow())
	})

	t.Run("unset container", func(t *testing.T) {
		c, _ := resolve(t, withURL("http://example.test"), nil)

		assert.Equal(t, "", c.ShadowIdentifier())
		assert.False(t, c.IsShadow())
	})

	t.Run("derivation", func(t *testing.T) {
		assert.Equal(t, "b_c", site.ShadowFromContainer("a_b_c"))
		assert.Equal(t, "", site.ShadowFromContainer("production"))
		assert.Equal(t, "", site.ShadowFromContainer("trailing_"))
		assert.Equal(t, "", site.ShadowFromContainer(""))
	})
}

// TestDomainAlias tests alias passthrough
func TestDomainAlias(t *testing.T) {
	cfg := withURL("http://example.test")
	cfg.DomainAlias = "Alias.Example.test"
	c, _ := resolve(t, cfg, nil)

	assert.Equal(t, "Alias.Example.test", c.DomainAlias())

	c, _ = resolve(t, withURL("http://example.test"), nil)
	assert.Empty(t, c.DomainAlias())
}
