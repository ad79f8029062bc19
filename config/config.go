// Package config holds the driver configuration registry: named server
// and database entries resolved into connect targets and prefilled
// parameter buffer builders.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gofirebird/fbclient"
)

// ServerConfig describes one named server entry.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	TrustedAuth bool   `yaml:"trusted_auth"`
}

// DatabaseConfig describes one named database entry. Server references
// a ServerConfig by name; empty means a local attach.
type DatabaseConfig struct {
	Server   string `yaml:"server"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Charset  string `yaml:"charset"`
	Dialect  uint   `yaml:"dialect"`

	SessionTimeZone string `yaml:"session_time_zone"`
	NoDBTriggers    bool   `yaml:"no_db_triggers"`
}

// DriverConfig holds driver-wide settings.
type DriverConfig struct {
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// Config is the registry root.
type Config struct {
	Driver    DriverConfig               `yaml:"driver"`
	Servers   map[string]*ServerConfig   `yaml:"servers"`
	Databases map[string]*DatabaseConfig `yaml:"databases"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Driver: DriverConfig{
			LogLevel:         "warn",
			LogFormat:        "text",
			MetricsNamespace: "fbclient",
		},
		Servers:   make(map[string]*ServerConfig),
		Databases: make(map[string]*DatabaseConfig),
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("FBCLIENT_USER"); v != "" {
		for _, db := range cfg.Databases {
			if db.User == "" {
				db.User = v
			}
		}
		for _, srv := range cfg.Servers {
			if srv.User == "" {
				srv.User = v
			}
		}
	}
	if v := os.Getenv("FBCLIENT_PASSWORD"); v != "" {
		for _, db := range cfg.Databases {
			if db.Password == "" {
				db.Password = v
			}
		}
		for _, srv := range cfg.Servers {
			if srv.Password == "" {
				srv.Password = v
			}
		}
	}
	if v := os.Getenv("FBCLIENT_LOG_LEVEL"); v != "" {
		cfg.Driver.LogLevel = v
	}
	if v := os.Getenv("FBCLIENT_LOG_FORMAT"); v != "" {
		cfg.Driver.LogFormat = v
	}
}

// Validate checks cross references and required fields.
func (c *Config) Validate() error {
	for name, srv := range c.Servers {
		if srv == nil || srv.Host == "" {
			return fmt.Errorf("server %q: host is required", name)
		}
	}
	for name, db := range c.Databases {
		if db == nil || db.Database == "" {
			return fmt.Errorf("database %q: database path is required", name)
		}
		if db.Server != "" {
			if _, ok := c.Servers[db.Server]; !ok {
				return fmt.Errorf("database %q references unknown server %q", name, db.Server)
			}
		}
	}
	return nil
}

func (c *Config) database(name string) (*DatabaseConfig, error) {
	db, ok := c.Databases[name]
	if !ok {
		return nil, fmt.Errorf("unknown database %q", name)
	}
	return db, nil
}

// Target resolves a database entry into an attach target string:
// host[/port]:path for remote servers, the bare path for local ones.
func (c *Config) Target(name string) (string, error) {
	db, err := c.database(name)
	if err != nil {
		return "", err
	}
	if db.Server == "" {
		return db.Database, nil
	}
	srv := c.Servers[db.Server]
	host := srv.Host
	if srv.Port > 0 {
		host += "/" + strconv.Itoa(srv.Port)
	}
	return host + ":" + db.Database, nil
}

// DPB returns an attach parameter builder prefilled from a database
// entry. Credentials fall back to the referenced server's.
func (c *Config) DPB(name string) (*fbclient.DPB, error) {
	db, err := c.database(name)
	if err != nil {
		return nil, err
	}
	user, password := db.User, db.Password
	if db.Server != "" {
		srv := c.Servers[db.Server]
		if user == "" {
			user = srv.User
		}
		if password == "" {
			password = srv.Password
		}
	}
	dpb := fbclient.NewDPB(user, password, db.Charset)
	dpb.Role = db.Role
	dpb.SessionTimeZone = db.SessionTimeZone
	dpb.NoDBTriggers = db.NoDBTriggers
	return dpb, nil
}

// Options returns connect options prefilled from a database entry.
func (c *Config) Options(name string) (*fbclient.Options, error) {
	db, err := c.database(name)
	if err != nil {
		return nil, err
	}
	dpb, err := c.DPB(name)
	if err != nil {
		return nil, err
	}
	return &fbclient.Options{DPB: dpb, Dialect: db.Dialect}, nil
}

// SPB returns a service attach builder prefilled from a server entry.
func (c *Config) SPB(name string) (*fbclient.SPB, error) {
	srv, ok := c.Servers[name]
	if !ok {
		return nil, fmt.Errorf("unknown server %q", name)
	}
	spb := fbclient.NewSPB(srv.User, srv.Password)
	spb.TrustedAuth = srv.TrustedAuth
	return spb, nil
}

// ServiceTarget resolves a server entry into a service manager attach
// target.
func (c *Config) ServiceTarget(name string) (string, error) {
	srv, ok := c.Servers[name]
	if !ok {
		return "", fmt.Errorf("unknown server %q", name)
	}
	host := srv.Host
	if srv.Port > 0 {
		host += "/" + strconv.Itoa(srv.Port)
	}
	return host + ":service_mgr", nil
}
