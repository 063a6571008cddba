package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"sengketa/internal/domain"
)

const fileName = "sengketa.yml"

// Config models sengketa.yml.
type Config struct {
	Roles     RolesConfig     `yaml:"roles"`
	Documents DocumentsConfig `yaml:"documents"`
	Server    ServerConfig    `yaml:"server"`
	Webhooks  []WebhookConfig `yaml:"webhooks"`
}

// RolesConfig is the fixed identity-to-role assignment seeded at bootstrap.
type RolesConfig struct {
	Admin       []string `yaml:"admin"`
	Convener    []string `yaml:"convener"`
	Adjudicator []string `yaml:"adjudicator"`
}

type DocumentsConfig struct {
	Driver       string   `yaml:"driver"`
	Root         string   `yaml:"root"`
	AllowedTypes []string `yaml:"allowed_types"`
	S3           S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	Prefix    string `yaml:"prefix"`
	// Static credentials; when empty the default AWS chain is used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	BasePath       string `yaml:"base_path"`
	AllowCallerHdr bool   `yaml:"allow_caller_header"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type WebhookConfig struct {
	Name           string   `yaml:"name"`
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Assignments flattens the role lists in admin, convener, adjudicator order.
func (r RolesConfig) Assignments() []domain.RoleAssignment {
	var out []domain.RoleAssignment
	add := func(role domain.Role, ids []string) {
		for _, id := range ids {
			out = append(out, domain.RoleAssignment{Identity: strings.TrimSpace(id), Role: role})
		}
	}
	add(domain.RoleAdmin, r.Admin)
	add(domain.RoleConvener, r.Convener)
	add(domain.RoleAdjudicator, r.Adjudicator)
	return out
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sengketa init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	seen := make(map[string]domain.Role)
	for _, a := range c.Roles.Assignments() {
		if a.Identity == "" {
			return fmt.Errorf("config.roles.%s contains an empty identity", a.Role)
		}
		if prev, ok := seen[a.Identity]; ok {
			return fmt.Errorf("identity %s assigned to both %s and %s", a.Identity, prev, a.Role)
		}
		seen[a.Identity] = a.Role
	}
	switch c.Documents.Driver {
	case "", "memory", "fs":
	case "s3":
		if strings.TrimSpace(c.Documents.S3.Bucket) == "" {
			return fmt.Errorf("config.documents.s3.bucket is required for the s3 driver")
		}
		if (c.Documents.S3.AccessKeyID == "") != (c.Documents.S3.SecretAccessKey == "") {
			return fmt.Errorf("config.documents.s3 access_key_id and secret_access_key must be set together")
		}
		if ep := c.Documents.S3.Endpoint; ep != "" {
			if _, err := url.ParseRequestURI(ep); err != nil {
				return fmt.Errorf("config.documents.s3.endpoint: %w", err)
			}
		}
	default:
		return fmt.Errorf("config.documents.driver must be one of memory, fs, s3 (got %q)", c.Documents.Driver)
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("config.server.max_upload_bytes must not be negative")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if _, err := url.ParseRequestURI(hook.URL); err != nil {
			return fmt.Errorf("config.webhooks[%d].url: %w", i, err)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, fileName)
}

// GenerateDefault returns default config YAML seeding admin as the sole administrator.
func GenerateDefault(admin string) string {
	return fmt.Sprintf(defaultTemplate, strconv.Quote(admin))
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default(admin string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(admin))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `roles:
  admin: [%s]
  convener: []
  adjudicator: []

documents:
  driver: fs
  allowed_types: [application/pdf]
  # s3:
  #   bucket: sengketa-documents
  #   region: us-east-1
  #   endpoint: http://localhost:9000
  #   path_style: true

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  allow_caller_header: false
  max_upload_bytes: 10485760

webhooks: []
`
