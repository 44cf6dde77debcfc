package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.catalogsync/catalogsync.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version      int                `yaml:"version"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Source       SourceConfig       `yaml:"source"`
	Keys         KeysConfig         `yaml:"keys,omitempty"`
	Stats        StatsConfig        `yaml:"stats,omitempty"`
	Descriptions DescriptionsConfig `yaml:"descriptions,omitempty"`
	Archive      ArchiveConfig      `yaml:"archive,omitempty"`
	Export       ExportConfig       `yaml:"export,omitempty"`
	Logging      LogConfig          `yaml:"logging,omitempty"`
}

// CatalogConfig defines the metadata catalog endpoint.
type CatalogConfig struct {
	Server         string `yaml:"server"`
	Token          string `yaml:"token,omitempty"`
	Env            string `yaml:"env,omitempty"`      // default DEV
	Platform       string `yaml:"platform,omitempty"` // defaults from source type
	PageSize       int    `yaml:"page_size,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// SourceConfig defines the relational database connection.
type SourceConfig struct {
	Type                   string `yaml:"type"` // mssql, postgresql or oracle
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	Database               string `yaml:"database"`
	Schema                 string `yaml:"schema,omitempty"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	SSL                    bool   `yaml:"ssl,omitempty"`
	TrustServerCertificate bool   `yaml:"trust_server_certificate,omitempty"`
	KeyScript              string `yaml:"key_script,omitempty"` // empty uses the built-in script
}

// KeysConfig drives primary/foreign key sync.
type KeysConfig struct {
	Domain     string `yaml:"domain"`
	Server     string `yaml:"server"`
	Database   string `yaml:"database"`
	Schema     string `yaml:"schema"`
	ForeignEnv string `yaml:"foreign_env,omitempty"` // default DEV
}

// StatsConfig drives column statistics sync.
type StatsConfig struct {
	Domain       string `yaml:"domain,omitempty"`
	MaxDistinct  int    `yaml:"max_distinct,omitempty"` // default 10000
	SampleValues bool   `yaml:"sample_values,omitempty"`
}

// DescriptionsConfig locates human-written descriptions.
type DescriptionsConfig struct {
	File        string `yaml:"file,omitempty"`
	Workbook    string `yaml:"workbook,omitempty"`
	Sheet       string `yaml:"sheet,omitempty"`        // default "Table attributes"
	StartMarker string `yaml:"start_marker,omitempty"` // default "Asset"
	Server      string `yaml:"server,omitempty"`
	Database    string `yaml:"database,omitempty"`
	Schema      string `yaml:"schema,omitempty"`
	TablePrefix string `yaml:"table_prefix,omitempty"`
}

// ArchiveConfig defines where prior schema aspects are archived. Empty
// connection string disables archiving.
type ArchiveConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty"`
	Database         string `yaml:"database,omitempty"`
	Collection       string `yaml:"collection,omitempty"`
}

// ExportConfig defines the S3 destination for metadata exports.
type ExportConfig struct {
	S3Bucket string `yaml:"s3_bucket,omitempty"`
	S3Prefix string `yaml:"s3_prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.catalogsync/logs/
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(context.Background()); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Catalog.Server == "" {
		return fmt.Errorf("catalog.server is required")
	}
	if !strings.HasPrefix(c.Catalog.Server, "http://") && !strings.HasPrefix(c.Catalog.Server, "https://") {
		return fmt.Errorf("catalog.server must be an http(s) URL, got %q", c.Catalog.Server)
	}
	switch c.Source.Type {
	case "", "mssql", "postgresql", "oracle":
	default:
		return fmt.Errorf("unsupported source.type %q", c.Source.Type)
	}
	if c.Stats.MaxDistinct < 0 {
		return fmt.Errorf("stats.max_distinct must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Catalog.Server = strings.TrimRight(c.Catalog.Server, "/")
	if c.Catalog.Env == "" {
		c.Catalog.Env = "DEV"
	}
	if c.Catalog.Platform == "" {
		c.Catalog.Platform = PlatformFor(c.Source.Type)
	}
	if c.Catalog.PageSize == 0 {
		c.Catalog.PageSize = 100
	}
	if c.Catalog.TimeoutSeconds == 0 {
		c.Catalog.TimeoutSeconds = 30
	}
	if c.Source.Port == 0 {
		c.Source.Port = defaultPort(c.Source.Type)
	}
	if c.Keys.ForeignEnv == "" {
		c.Keys.ForeignEnv = "DEV"
	}
	if c.Stats.MaxDistinct == 0 {
		c.Stats.MaxDistinct = 10000
	}
	if c.Stats.Domain == "" {
		c.Stats.Domain = c.Keys.Domain
	}
	if c.Descriptions.Sheet == "" {
		c.Descriptions.Sheet = "Table attributes"
	}
	if c.Descriptions.StartMarker == "" {
		c.Descriptions.StartMarker = "Asset"
	}
	if c.Archive.Database == "" {
		c.Archive.Database = "catalogsync"
	}
	if c.Archive.Collection == "" {
		c.Archive.Collection = "schema_snapshots"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.catalogsync/logs/")
	}
}

// PlatformFor maps a source type to the catalog's data platform name.
func PlatformFor(sourceType string) string {
	switch sourceType {
	case "postgresql":
		return "postgres"
	case "oracle":
		return "oracle"
	default:
		return "mssql"
	}
}

func defaultPort(sourceType string) int {
	switch sourceType {
	case "postgresql":
		return 5432
	case "oracle":
		return 1521
	default:
		return 1433
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets(ctx context.Context) error {
	var err error
	c.Catalog.Token, err = ResolveValue(ctx, c.Catalog.Token)
	if err != nil {
		return fmt.Errorf("catalog token: %w", err)
	}
	c.Source.Password, err = ResolveValue(ctx, c.Source.Password)
	if err != nil {
		return fmt.Errorf("source password: %w", err)
	}
	c.Archive.ConnectionString, err = ResolveValue(ctx, c.Archive.ConnectionString)
	if err != nil {
		return fmt.Errorf("archive connection string: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value.
func ResolveValue(ctx context.Context, val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ctx, ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
