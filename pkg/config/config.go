// Package config loads and validates the project configuration file
// (sqlport.yaml): source tree location, target connection, import mode,
// filters, filegroup strategy, retry bounds, variables, and secrets.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/sqlport/sqlport/pkg/consts"
	"github.com/sqlport/sqlport/pkg/transform"
	"gopkg.in/yaml.v3"
)

// envSecretPrefix marks a secret value that is an environment variable
// reference rather than a literal, e.g. "env:APP_ROLE_PASSWORD".
const envSecretPrefix = "env:"

type (
	// Duration is a time.Duration that unmarshals from YAML strings like
	// "10s" or "2m".
	Duration time.Duration

	// Connection holds the target server settings.
	Connection struct {
		// URL is the go-mssqldb connection string. Supports the env:NAME
		// indirection so credentials stay out of the config file.
		URL string `yaml:"url"`

		// ConnectTimeout bounds the initial connection attempt.
		ConnectTimeout Duration `yaml:"connect_timeout,omitempty"`

		// CommandTimeout bounds each executed batch.
		CommandTimeout Duration `yaml:"command_timeout,omitempty"`
	}

	// Retry configures the transient retry policy. Values outside the
	// supported bounds are clamped, not rejected.
	Retry struct {
		MaxAttempts  int      `yaml:"max_attempts,omitempty"`
		InitialDelay Duration `yaml:"initial_delay,omitempty"`
	}

	// Filter narrows which units the catalog includes.
	Filter struct {
		IncludeTypes   []string `yaml:"include_types,omitempty"`
		ExcludeTypes   []string `yaml:"exclude_types,omitempty"`
		ExcludeSchemas []string `yaml:"exclude_schemas,omitempty"`
	}

	// FileGroups selects how filegroup references are adapted to the
	// target server.
	FileGroups struct {
		// Strategy is one of explicit, auto, or removeToPrimary.
		Strategy string `yaml:"strategy,omitempty"`

		// DataPath overrides the server-reported default data directory
		// for the auto strategy.
		DataPath string `yaml:"data_path,omitempty"`
	}

	// Strip toggles removal of storage features the target edition may
	// not support.
	Strip struct {
		Filestream      bool `yaml:"filestream,omitempty"`
		AlwaysEncrypted bool `yaml:"always_encrypted,omitempty"`
	}

	// Config represents the project configuration for a database import.
	Config struct {
		// Source is the root directory of the SQL unit tree.
		Source string `yaml:"source"`

		// Database is the target database name.
		Database string `yaml:"database"`

		// Mode selects dev or prod folder gating. Defaults to dev.
		Mode string `yaml:"mode,omitempty"`

		// IncludeData enables the Data stage.
		IncludeData bool `yaml:"include_data,omitempty"`

		// CreateDatabase creates the target database when it does not
		// exist, instead of failing the pre-flight check.
		CreateDatabase bool `yaml:"create_database,omitempty"`

		// ContinueOnError keeps later stages running after a Security or
		// Schema stage failure.
		ContinueOnError bool `yaml:"continue_on_error,omitempty"`

		// ContainedUsers converts FOR LOGIN principals to contained users.
		ContainedUsers bool `yaml:"contained_users,omitempty"`

		// ErrorLog is where terminal failures are written on a failed run.
		ErrorLog string `yaml:"error_log,omitempty"`

		Connection Connection `yaml:"connection"`
		Retry      Retry      `yaml:"retry,omitempty"`
		Filter     Filter     `yaml:"filter,omitempty"`
		FileGroups FileGroups `yaml:"filegroups,omitempty"`
		Strip      Strip      `yaml:"strip,omitempty"`

		// Variables maps $(NAME) tokens to values.
		Variables map[string]string `yaml:"variables,omitempty"`

		// Secrets maps secret keys to values; the env:NAME form reads the
		// value from the environment at load time.
		Secrets map[string]string `yaml:"secrets,omitempty"`
	}
)

// UnmarshalYAML parses the duration from its string form.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return errors.Wrap(err, "failed to decode duration")
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", raw)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LoadConfig parses an import configuration from the provided io.Reader.
//
// The input is YAML. Missing optional fields get defaults (dev mode,
// explicit filegroup strategy, default error log path); invalid enum
// values are rejected here so the run fails before any unit executes.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal import config")
	}

	if cfg.Mode == "" {
		cfg.Mode = string(catalog.ModeDev)
	}
	if cfg.FileGroups.Strategy == "" {
		cfg.FileGroups.Strategy = string(transform.FileGroupExplicit)
	}
	if cfg.ErrorLog == "" {
		cfg.ErrorLog = consts.DefaultErrorLog
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfigFile loads an import configuration from the specified file path.
// This is a convenience function that opens the file and calls LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

func (c *Config) validate() error {
	switch catalog.Mode(c.Mode) {
	case catalog.ModeDev, catalog.ModeProd:
	default:
		return errors.Errorf("invalid mode %q (expected dev or prod)", c.Mode)
	}

	switch s := c.FileGroups.Strategy; s {
	case string(transform.FileGroupExplicit), string(transform.FileGroupAutoRemap), string(transform.FileGroupRemoveToPrimary), "removeToPrimary":
	default:
		return errors.Errorf("invalid filegroup strategy %q (expected explicit, auto, or removeToPrimary)", s)
	}

	return nil
}

// CatalogMode returns the parsed import mode.
func (c *Config) CatalogMode() catalog.Mode {
	return catalog.Mode(c.Mode)
}

// FileGroupStrategy returns the parsed filegroup strategy. The long form
// "removeToPrimary" is accepted as an alias for remove.
func (c *Config) FileGroupStrategy() transform.FileGroupStrategy {
	if c.FileGroups.Strategy == "removeToPrimary" {
		return transform.FileGroupRemoveToPrimary
	}
	return transform.FileGroupStrategy(c.FileGroups.Strategy)
}

// CatalogFilter converts the configured filter into catalog types.
func (c *Config) CatalogFilter() catalog.Filter {
	return catalog.Filter{
		IncludeTypes:   toObjectTypes(c.Filter.IncludeTypes),
		ExcludeTypes:   toObjectTypes(c.Filter.ExcludeTypes),
		ExcludeSchemas: c.Filter.ExcludeSchemas,
	}
}

// ResolvedURL returns the connection string, following the env:NAME
// indirection when used.
func (c *Config) ResolvedURL() string {
	return resolveEnv(c.Connection.URL)
}

// ResolvedSecrets returns the secret table with env:NAME references
// resolved. Keys whose environment variable is unset are omitted, so the
// transformer reports them as missing rather than injecting blanks.
func (c *Config) ResolvedSecrets() map[string]string {
	if len(c.Secrets) == 0 {
		return nil
	}

	out := make(map[string]string, len(c.Secrets))
	for key, value := range c.Secrets {
		if name, ok := strings.CutPrefix(value, envSecretPrefix); ok {
			if v, set := os.LookupEnv(name); set {
				out[key] = v
			}
			continue
		}
		out[key] = value
	}
	return out
}

func resolveEnv(value string) string {
	if name, ok := strings.CutPrefix(value, envSecretPrefix); ok {
		return os.Getenv(name)
	}
	return value
}

func toObjectTypes(names []string) []catalog.ObjectType {
	if len(names) == 0 {
		return nil
	}
	types := make([]catalog.ObjectType, 0, len(names))
	for _, n := range names {
		types = append(types, catalog.ObjectType(n))
	}
	return types
}
