package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	Handoff    `yaml:"handoff"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// BaseURL is used for links sent out over the message broker. If empty,
	// HTTP handlers fall back to the scheme and host of the current request.
	BaseURL string `yaml:"base_url" env-default:""`
}

type Handoff struct {
	CodeLength int           `yaml:"code_length" env-default:"6"`
	CodeTTL    time.Duration `yaml:"code_ttl" env-default:"1h"`
	TokenTTL   time.Duration `yaml:"token_ttl" env-default:"10m"`
	// RevokeOnVerify burns the verification code as soon as a download
	// token is minted. When false a code stays verifiable until its first
	// successful download, so a user who loses the link can retry.
	RevokeOnVerify bool `yaml:"revoke_on_verify" env-default:"false"`
	// TokenStore selects the token table backend: "memory" or "redis".
	// Memory tokens do not survive a restart.
	TokenStore    string        `yaml:"token_store" env-default:"memory"`
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"10m"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL         string `yaml:"url" env-required:"true"`
	IntakeQueue string `yaml:"intake_queue" env-default:"file_stored"`
	NotifyQueue string `yaml:"notify_queue" env-default:"code_issued"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return &cfg
}
