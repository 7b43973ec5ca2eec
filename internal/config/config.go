// Package config holds the settings that tell the toolkit where the site under
// test lives and how to drive its wp-cli.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the toolkit configuration
type Config struct {
	// SiteURL overrides site discovery entirely when set
	SiteURL string `yaml:"site_url" env:"WP_TEST_URL"`

	// Container is the container name; the text after its first "_" identifies a shadow
	Container string `yaml:"container" env:"CONTAINER"`

	// DomainAlias is the alternate HTTPS hostname of the site
	DomainAlias string `yaml:"domain_alias" env:"HTTPS_DOMAIN_ALIAS"`

	// Test user configuration
	User UserConfig `yaml:"user"`

	// wp-cli configuration
	CLI CLIConfig `yaml:"cli"`

	// State database configuration
	State StateConfig `yaml:"state"`
}

// UserConfig represents test user configuration
type UserConfig struct {
	Username  string `yaml:"username" env:"WP_TEST_USER"`
	Password  string `yaml:"password" env:"WP_TEST_USER_PASS"`
	FirstName string `yaml:"first_name" env:"WP_TEST_USER_FIRSTNAME"`
	LastName  string `yaml:"last_name" env:"WP_TEST_USER_LASTNAME"`

	// MailGuard is a PHP file loaded with --require while resetting an existing
	// user so WordPress does not send password change mail
	MailGuard string `yaml:"mail_guard" env:"WP_TEST_MAIL_GUARD"`
}

// CLIConfig represents wp-cli invocation configuration
type CLIConfig struct {
	Binary  string        `yaml:"binary" env:"WP_CLI_BIN"`
	Path    string        `yaml:"path" env:"WP_CLI_PATH"` // WordPress install path, passed as --path
	Timeout time.Duration `yaml:"timeout" env:"WP_CLI_TIMEOUT"`
}

// StateConfig represents where the created test user is remembered between processes
type StateConfig struct {
	Path string `yaml:"path" env:"WP_TEST_STATE_DB"`
}

// Defaults for the generated test user
const (
	DefaultFirstName = "Seravo"
	DefaultLastName  = "Test User"
	DefaultBinary    = "wp"
	DefaultTimeout   = 60 * time.Second
)

// HasExternalUser reports whether credentials were supplied from outside
func (u UserConfig) HasExternalUser() bool {
	return u.Username != "" && u.Password != ""
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// FromEnv returns the default configuration overlaid with the process environment
func FromEnv() (*Config, error) {
	config := DefaultConfig()
	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overlays environment variables onto an existing configuration.
// Variables that are unset leave the current value alone.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	config.applyDefaults()
	return config.Validate()
}

// LoadDotenv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CLI.Binary == "" {
		return fmt.Errorf("wp-cli binary is required")
	}

	if c.CLI.Timeout < 0 {
		return fmt.Errorf("invalid wp-cli timeout: %s", c.CLI.Timeout)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.User.FirstName == "" {
		c.User.FirstName = DefaultFirstName
	}
	if c.User.LastName == "" {
		c.User.LastName = DefaultLastName
	}
	if c.CLI.Binary == "" {
		c.CLI.Binary = DefaultBinary
	}
	if c.CLI.Timeout == 0 {
		c.CLI.Timeout = DefaultTimeout
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		User: UserConfig{
			FirstName: DefaultFirstName,
			LastName:  DefaultLastName,
		},
		CLI: CLIConfig{
			Binary:  DefaultBinary,
			Timeout: DefaultTimeout,
		},
	}
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
