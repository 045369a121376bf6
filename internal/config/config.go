package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN     string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL     string `env:"RABBITMQ_URL,required=true"`
	RedisURL        string `env:"REDIS_URL,required=true"`
	EmailGatewayURL string `env:"EMAIL_GATEWAY_URL,required=true"`
	SmsGatewayURL   string `env:"SMS_GATEWAY_URL,required=true"`
	ProfileAPIURL   string `env:"PROFILE_API_URL,required=true"`

	RateLimitPerSec        int `env:"RATE_LIMIT_PER_SEC,default=100"`
	ConsumerConcurrency    int `env:"CONSUMER_CONCURRENCY,default=8"`
	ConditionCheckTimeoutS int `env:"CONDITION_CHECK_TIMEOUT_SECONDS,default=10"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
