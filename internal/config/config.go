package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	HTTP HTTPConfig `yaml:"http"`

	DatabaseDSN string `yaml:"database_dsn" env:"DATABASE_DSN" env-required:"true"`

	// DefaultBrokerSlug is the tenant assigned to unqualified hosts
	// (localhost, bare IPs) by the tenant resolver.
	DefaultBrokerSlug string `yaml:"default_broker_slug" env:"DEFAULT_BROKER_SLUG" env-default:"primary"`

	// TokenSecret is read directly with the default "env" secrets source;
	// the vault and awssm sources fetch it at startup instead.
	TokenSecret       string        `yaml:"token_secret" env:"TOKEN_SECRET"`
	TokenTTL          time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
	TwoFactorTokenTTL time.Duration `yaml:"two_factor_token_ttl" env:"TWO_FACTOR_TOKEN_TTL" env-default:"5m"`
	PasswordResetTTL  time.Duration `yaml:"password_reset_ttl" env:"PASSWORD_RESET_TTL" env-default:"30m"`

	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Secrets SecretsConfig `yaml:"secrets"`

	// PolicyBundlePath enables the OPA authorizer for admin permissions when
	// set; the static role allow-list is used otherwise.
	PolicyBundlePath string `yaml:"policy_bundle_path" env:"POLICY_BUNDLE_PATH"`
}

type HTTPConfig struct {
	Port    int           `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"30s"`
}

type RateLimitConfig struct {
	Backend  string        `yaml:"backend" env:"RATE_LIMIT_BACKEND" env-default:"memory"`
	Requests int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"5"`
	Window   time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`

	RedisAddr     string `yaml:"redis_addr" env:"RATE_LIMIT_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"RATE_LIMIT_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"RATE_LIMIT_REDIS_DB" env-default:"0"`
}

type SecretsConfig struct {
	Source string `yaml:"source" env:"SECRETS_SOURCE" env-default:"env"`

	VaultAddr  string `yaml:"vault_addr" env:"VAULT_ADDR"`
	VaultToken string `yaml:"vault_token" env:"VAULT_TOKEN"`
	VaultPath  string `yaml:"vault_path" env:"VAULT_SECRET_PATH"`
	VaultField string `yaml:"vault_field" env:"VAULT_SECRET_FIELD" env-default:"token_secret"`

	AWSEndpoint        string `yaml:"aws_endpoint" env:"AWS_SECRETS_MANAGER_ENDPOINT"`
	AWSRegion          string `yaml:"aws_region" env:"AWS_REGION"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id" env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	AWSSessionToken    string `yaml:"aws_session_token" env:"AWS_SESSION_TOKEN"`
	AWSSecretID        string `yaml:"aws_secret_id" env:"AWS_TOKEN_SECRET_ID"`
}

// MustLoad reads the config file named by --config or CONFIG_PATH, falling
// back to environment variables alone when neither is set. Panics on any
// load error; the process cannot run without a valid config.
func MustLoad() *Config {
	var cfg Config

	path := fetchConfigPath()
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			panic("config file does not exist: " + path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			panic("read config: " + err.Error())
		}
		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("read config from env: " + err.Error())
	}
	return &cfg
}

// fetchConfigPath resolves the config path. Priority: flag > env > empty.
func fetchConfigPath() string {
	var res string

	if !flag.Parsed() {
		flag.StringVar(&res, "config", "", "path to config file")
		flag.Parse()
	}

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
