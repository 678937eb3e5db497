package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// RedisAddrEnv overrides the configured Redis endpoint when set. Redis is
// both the ticket/pool store and the event bus, so a single variable covers
// both concerns.
const RedisAddrEnv = "MATCHENGINE_REDIS_ADDR"

// Config represents the entire application configuration
type Config struct {
	Env         string            `json:"env"`
	Port        int               `json:"port"`
	AppName     string            `json:"app_name"`
	Redis       RedisConfig       `json:"redis"`
	RabbitMQ    RabbitMQConfig    `json:"rabbitmq"`
	Matchmaking MatchmakingConfig `json:"matchmaking"`
	Logging     LoggingConfig     `json:"logging"`
	CORS        CORSConfig        `json:"cors"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// RabbitMQConfig describes the optional cross-process event mirror. When
// Enabled is false the engine runs on Redis pub/sub alone.
type RabbitMQConfig struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	VHost        string `json:"vhost"`
	ExchangeName string `json:"exchange_name"`
}

// MatchmakingConfig contains engine-level matchmaking settings. Per-mode
// rules live in the separate rules document at RulesPath.
type MatchmakingConfig struct {
	RulesPath       string   `json:"rules_path"`
	TickIntervalSec int      `json:"tick_interval_sec"`
	TicketTTLSec    int      `json:"ticket_ttl_sec"`
	KnownRegions    []string `json:"known_regions"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age,omitempty"`
}

// LoggingConfig contains logging-related configurations
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LoadConfig reads configuration from the specified file path
func LoadConfig(filePath string) (*Config, error) {
	configData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if addr := os.Getenv(RedisAddrEnv); addr != "" {
		config.Redis.Address = addr
	}

	if config.Matchmaking.TickIntervalSec <= 0 {
		config.Matchmaking.TickIntervalSec = 2
	}
	if config.Matchmaking.TicketTTLSec <= 0 {
		config.Matchmaking.TicketTTLSec = 600
	}
	if len(config.Matchmaking.KnownRegions) == 0 {
		config.Matchmaking.KnownRegions = []string{"ap-south", "eu-west", "us-east", "us-west"}
	}

	return &config, nil
}
