package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	RootDomain        string `mapstructure:"root_domain"`
	HasRootSsl        bool   `mapstructure:"has_root_ssl"`
	PlatformSubdomain string `mapstructure:"platform_subdomain"`
	RegistrySubdomain string `mapstructure:"registry_subdomain"`
	ApiPort           int    `mapstructure:"api_port"`
}

type ProxyConfig struct {
	Image               string `mapstructure:"image"`
	ServiceName         string `mapstructure:"service_name"`
	Network             string `mapstructure:"network"`
	SocketPath          string `mapstructure:"socket_path"`
	StatusURL           string `mapstructure:"status_url"`
	StatusPort          int    `mapstructure:"status_port"`
	SettleSeconds       int    `mapstructure:"settle_seconds"`
	MemoryReservationMB int    `mapstructure:"memory_reservation_mb"`
}

type PathsConfig struct {
	DataDir        string `mapstructure:"data_dir"`
	LetsEncryptDir string `mapstructure:"lets_encrypt_dir"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.has_root_ssl", false)
	viper.SetDefault("server.platform_subdomain", "captain")
	viper.SetDefault("server.registry_subdomain", "registry")
	viper.SetDefault("server.api_port", 3000)

	viper.SetDefault("proxy.image", "nginx:1")
	viper.SetDefault("proxy.service_name", "captain-nginx")
	viper.SetDefault("proxy.network", "captain-overlay-network")
	viper.SetDefault("proxy.socket_path", "/var/run/docker.sock")
	viper.SetDefault("proxy.status_url", "http://captain-nginx:8081/nginx_status")
	viper.SetDefault("proxy.status_port", 8081)
	viper.SetDefault("proxy.settle_seconds", 30)
	viper.SetDefault("proxy.memory_reservation_mb", 30)

	viper.SetDefault("paths.data_dir", "/var/lib/caprover")

	viper.SetDefault("logging.level", "info")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.Paths.LetsEncryptDir == "" {
		cfg.Paths.LetsEncryptDir = filepath.Join(cfg.Paths.DataDir, "letsencrypt")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.RootDomain == "" {
		return fmt.Errorf("server.root_domain is required")
	}
	if c.Proxy.ServiceName == "" {
		return fmt.Errorf("proxy.service_name is required")
	}
	if c.Proxy.SettleSeconds <= 0 {
		return fmt.Errorf("proxy.settle_seconds must be positive")
	}
	return nil
}

// PlatformDomain is the domain the platform's own dashboard/API answers on.
func (c *Config) PlatformDomain() string {
	return c.Server.PlatformSubdomain + "." + c.Server.RootDomain
}

// RegistryDomain is the domain of the built-in image registry.
func (c *Config) RegistryDomain() string {
	return c.Server.RegistrySubdomain + "." + c.Server.RootDomain
}

// ConfDir holds the generated per-namespace virtual-host config files.
func (c *Config) ConfDir() string {
	return filepath.Join(c.Paths.DataDir, "nginx", "conf.d")
}

// NamespaceConfPath is the active config file of one namespace.
func (c *Config) NamespaceConfPath(namespace string) string {
	return filepath.Join(c.ConfDir(), namespace+".conf")
}

// AuthFilePath is the basic-auth credential file for one domain of a
// namespace, on the host side.
func (c *Config) AuthFilePath(namespace, domain string) string {
	return filepath.Join(c.ConfDir(), namespace+"-"+domain+".auth")
}

// RootConfPath is the root proxy config (platform + registry virtual hosts).
func (c *Config) RootConfPath() string {
	return filepath.Join(c.ConfDir(), "root.conf")
}

// BaseConfPath is the top-level proxy config, overwritten directly.
func (c *Config) BaseConfPath() string {
	return filepath.Join(c.Paths.DataDir, "nginx", "nginx.conf")
}

// StaticDir holds default/error pages and the confirmation token.
func (c *Config) StaticDir() string {
	return filepath.Join(c.Paths.DataDir, "static")
}

// WebRootDir is the static web root served for a generated subdomain.
func (c *Config) WebRootDir(domain string) string {
	return filepath.Join(c.StaticDir(), "webroot", domain)
}

// ErrorPagesDir holds the shared error pages.
func (c *Config) ErrorPagesDir() string {
	return filepath.Join(c.StaticDir(), "errors")
}

// TokenPath is the well-known location of the reachability token.
func (c *Config) TokenPath() string {
	return filepath.Join(c.StaticDir(), "verification.txt")
}

// FakeCertDir holds the self-signed certificate bundle used before real
// certificates exist.
func (c *Config) FakeCertDir() string {
	return filepath.Join(c.Paths.DataDir, "certs", "fake")
}

// StateDir is shared scratch state mounted into the proxy container.
func (c *Config) StateDir() string {
	return filepath.Join(c.Paths.DataDir, "state")
}

// StoreDir is where the embedded app-definition store lives.
func (c *Config) StoreDir() string {
	return filepath.Join(c.Paths.DataDir, "store")
}
