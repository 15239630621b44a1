package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for hikgate.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	HikCentral HikCentralConfig `yaml:"hikcentral"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// ServiceConfig identifies this deployment.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HikCentralConfig contains the Artemis OpenAPI connection settings.
type HikCentralConfig struct {
	BaseURL   string `yaml:"base_url"`
	AppKey    string `yaml:"app_key"`
	AppSecret string `yaml:"app_secret"`
	UserID    string `yaml:"user_id"`

	// VerifySSL enables certificate verification. Appliances usually ship
	// with self-signed certificates, so it is off unless set.
	VerifySSL bool `yaml:"verify_ssl"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// VehicleGroup is the vehicle group index code used to list and create vehicles.
	VehicleGroup string `yaml:"vehicle_group"`

	// OrgIndexCode is the organisation assigned to new persons when the request has none.
	OrgIndexCode string `yaml:"org_index_code"`
}

// CacheConfig contains the vehicle cache settings.
type CacheConfig struct {
	VehicleTTL      int `yaml:"vehicle_ttl"`
	VehicleWorkers  int `yaml:"vehicle_workers"`
	VehiclePageSize int `yaml:"vehicle_page_size"`
	VehicleMaxPages int `yaml:"vehicle_max_pages"`
}

// SearchConfig contains person search settings.
type SearchConfig struct {
	Workers  int `yaml:"workers"`
	PageSize int `yaml:"page_size"`
	Limit    int `yaml:"limit"`
}

// WorkflowConfig contains person reconciliation settings.
type WorkflowConfig struct {
	// ResolveDelayMS is how long to wait before scanning for a new person's code.
	ResolveDelayMS  int `yaml:"resolve_delay_ms"`
	ResolvePageSize int `yaml:"resolve_page_size"`
	ResolveMaxPages int `yaml:"resolve_max_pages"`

	// DefaultValidityDays is the vehicle validity window applied when a
	// request gives no dates.
	DefaultValidityDays int `yaml:"default_validity_days"`

	// Timezone is used to format vehicle validity timestamps.
	Timezone string `yaml:"timezone"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT  JWTConfig  `yaml:"jwt"`
	Seed SeedConfig `yaml:"seed"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// SeedConfig controls the account created on first boot.
type SeedConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// Load layers defaults, the YAML file at path and HIKGATE_SECTION_KEY
// environment variables, in that order, then validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "hikgate",
			Name: "HikCentral gateway",
		},
		Database: DatabaseConfig{
			Path:        "./data/hikgate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		HikCentral: HikCentralConfig{
			Timeout:      20,
			VehicleGroup: "2",
			OrgIndexCode: "1",
		},
		Cache: CacheConfig{
			VehicleTTL:      60,
			VehicleWorkers:  10,
			VehiclePageSize: 200,
			VehicleMaxPages: 50,
		},
		Search: SearchConfig{
			Workers:  20,
			PageSize: 100,
			Limit:    30,
		},
		Workflow: WorkflowConfig{
			ResolveDelayMS:      1000,
			ResolvePageSize:     200,
			ResolveMaxPages:     50,
			DefaultValidityDays: 730,
			Timezone:            "America/Lima",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hikgate",
			},
			QoS:         1,
			TopicPrefix: "hikgate",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 480,
			},
			Seed: SeedConfig{
				AdminUsername: "admin",
			},
		},
	}
}

// applyEnvOverrides overlays HIKGATE_* variables. Unparseable booleans and
// numbers leave the file value in place.
func applyEnvOverrides(cfg *Config) {
	strs := map[string]*string{
		"HIKGATE_DATABASE_PATH":         &cfg.Database.Path,
		"HIKGATE_HIKCENTRAL_BASE_URL":   &cfg.HikCentral.BaseURL,
		"HIKGATE_HIKCENTRAL_APP_KEY":    &cfg.HikCentral.AppKey,
		"HIKGATE_HIKCENTRAL_APP_SECRET": &cfg.HikCentral.AppSecret,
		"HIKGATE_HIKCENTRAL_USER_ID":    &cfg.HikCentral.UserID,
		"HIKGATE_MQTT_HOST":             &cfg.MQTT.Broker.Host,
		"HIKGATE_MQTT_USERNAME":         &cfg.MQTT.Auth.Username,
		"HIKGATE_MQTT_PASSWORD":         &cfg.MQTT.Auth.Password,
		"HIKGATE_API_HOST":              &cfg.API.Host,
		"HIKGATE_INFLUXDB_TOKEN":        &cfg.InfluxDB.Token,
		"HIKGATE_JWT_SECRET":            &cfg.Security.JWT.Secret,
		"HIKGATE_ADMIN_PASSWORD":        &cfg.Security.Seed.AdminPassword,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if b, err := strconv.ParseBool(os.Getenv("HIKGATE_HIKCENTRAL_VERIFY_SSL")); err == nil {
		cfg.HikCentral.VerifySSL = b
	}
	if n, err := strconv.Atoi(os.Getenv("HIKGATE_API_PORT")); err == nil {
		cfg.API.Port = n
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.HikCentral.BaseURL == "" {
		errs = append(errs, "hikcentral.base_url is required")
	} else if !strings.HasPrefix(c.HikCentral.BaseURL, "http://") && !strings.HasPrefix(c.HikCentral.BaseURL, "https://") {
		errs = append(errs, "hikcentral.base_url must start with http:// or https://")
	}
	if c.HikCentral.AppKey == "" || c.HikCentral.AppSecret == "" {
		errs = append(errs, "hikcentral.app_key and hikcentral.app_secret are required")
	}
	if c.HikCentral.Timeout <= 0 {
		errs = append(errs, "hikcentral.timeout must be positive")
	}
	if c.HikCentral.VehicleGroup == "" {
		errs = append(errs, "hikcentral.vehicle_group is required")
	}

	if c.Cache.VehicleTTL <= 0 {
		errs = append(errs, "cache.vehicle_ttl must be positive")
	}
	if c.Cache.VehicleWorkers <= 0 || c.Search.Workers <= 0 {
		errs = append(errs, "cache.vehicle_workers and search.workers must be positive")
	}
	if c.Cache.VehiclePageSize <= 0 || c.Search.PageSize <= 0 || c.Workflow.ResolvePageSize <= 0 {
		errs = append(errs, "page sizes must be positive")
	}
	if c.Search.Limit <= 0 {
		errs = append(errs, "search.limit must be positive")
	}

	if c.Workflow.DefaultValidityDays <= 0 {
		errs = append(errs, "workflow.default_validity_days must be positive")
	}
	if _, err := time.LoadLocation(c.Workflow.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("workflow.timezone %q is not a known time zone", c.Workflow.Timezone))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Tokens carry roles that gate vendor-side mutations.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set HIKGATE_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetVendorTimeout returns the HikCentral per-request timeout.
func (c *Config) GetVendorTimeout() time.Duration {
	return time.Duration(c.HikCentral.Timeout) * time.Second
}

// GetVehicleTTL returns how long a vehicle cache build stays fresh.
func (c *Config) GetVehicleTTL() time.Duration {
	return time.Duration(c.Cache.VehicleTTL) * time.Second
}

// GetResolveDelay returns the pause before scanning for a new person's code.
func (c *Config) GetResolveDelay() time.Duration {
	return time.Duration(c.Workflow.ResolveDelayMS) * time.Millisecond
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Workflow.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
