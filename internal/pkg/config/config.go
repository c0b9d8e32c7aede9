package config

import (
	"fmt"

	"github.com/spf13/viper"
)

var GlobalConfig *Config

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Log      LogConfig      `mapstructure:"log"`
	Core     CoreConfig     `mapstructure:"core"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Health   HealthConfig   `mapstructure:"health"`
	DB       interface{}    // database handle, injected at startup
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

// DatabaseConfig configures the gorm connection.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // mysql, sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Path            string `mapstructure:"path"` // sqlite file path
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // seconds
	LogLevel        string `mapstructure:"log_level"`         // silent/error/warn/info
}

// AuthConfig configures authentication.
type AuthConfig struct {
	JWT                 JWTConfig `mapstructure:"jwt"`
	DisableRegistration bool      `mapstructure:"disable_registration"`
}

// JWTConfig configures session tokens.
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	AccessTokenExpire int    `mapstructure:"access_token_expire"` // seconds
}

// CryptoConfig holds the key used to encrypt SSH private keys at rest.
type CryptoConfig struct {
	AESKey string `mapstructure:"aes_key"` // 32 bytes
}

// LogConfig configures zap.
type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, console
	Output   string `mapstructure:"output"` // stdout, file
	FilePath string `mapstructure:"file_path"`
}

// CoreConfig configures the orchestration engine.
type CoreConfig struct {
	ScanInterval             string `mapstructure:"scan_interval"`              // evaluation/build scan tick
	MaxConcurrentEvaluations int    `mapstructure:"max_concurrent_evaluations"` // parallel evaluation workers
	MaxConcurrentBuilds      int    `mapstructure:"max_concurrent_builds"`      // parallel dispatch workers
	ServerCapacity           int    `mapstructure:"server_capacity"`            // concurrent builds per server
	DispatchRetries          int    `mapstructure:"dispatch_retries"`
	DispatchBackoff          string `mapstructure:"dispatch_backoff"` // base backoff, doubled per retry
	Executor                 string `mapstructure:"executor"`         // ssh, mock
	Evaluator                string `mapstructure:"evaluator"`        // nix binary, or "mock"
	WorkDir                  string `mapstructure:"work_dir"`         // repository checkout root
}

// CacheConfig configures the artifact store.
type CacheConfig struct {
	Path string `mapstructure:"path"` // blob root directory
}

// HealthConfig configures periodic server health checks.
type HealthConfig struct {
	Cron string `mapstructure:"cron"` // cron expression with seconds
}

// Load reads and parses the configuration file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	GlobalConfig = config

	return config, nil
}

// GetDSN builds the MySQL DSN.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}
