package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	CargoTrack CargoTrackConfig `yaml:"cargotrack"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                 string `yaml:"host"`
	Port                 int    `yaml:"port"`
	OrderSyncedTopicName string `yaml:"order_synced_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	BaseURL  string `yaml:"base_url"` // пусто = боевой api.telegram.org
	Contacts string `yaml:"contacts"`
}

type CargoTrackConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	APIKey   string `yaml:"api_key"`

	SwaggerPath string `yaml:"swagger_path"`

	KafkaConsumerGroup     string `yaml:"kafka_consumer_group"`
	CurrentOrderTTLSeconds int    `yaml:"current_order_ttl_seconds"`

	NotifierHTTPAddr string `yaml:"notifier_http_addr"`

	ScheduleIntervalSeconds int   `yaml:"schedule_interval_seconds"`
	DeliverIntervalSeconds  int   `yaml:"deliver_interval_seconds"`
	DeliverLookaheadSeconds int   `yaml:"deliver_lookahead_seconds"`
	TelegramRatePerMinute   int64 `yaml:"telegram_rate_per_minute"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
