package config

import (
	"time"
)

type DatabaseConfig struct {
	URI            string        `toml:"uri"`
	Database       string        `toml:"database"`
	MaxPoolSize    int           `toml:"max_pool_size"`
	MinPoolSize    int           `toml:"min_pool_size"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
	SocketTimeout  time.Duration `toml:"socket_timeout"`
}

func defaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "bike_rental",
		MaxPoolSize:    100,
		MinPoolSize:    5,
		ConnectTimeout: 10 * time.Second,
		SocketTimeout:  30 * time.Second,
	}
}

func loadDatabaseConfig(c *DatabaseConfig) {
	c.URI = getEnv("MONGODB_URI", c.URI)
	c.Database = getEnv("MONGODB_DATABASE", c.Database)
	c.MaxPoolSize = getEnvAsInt("MONGODB_MAX_POOL_SIZE", c.MaxPoolSize)
	c.MinPoolSize = getEnvAsInt("MONGODB_MIN_POOL_SIZE", c.MinPoolSize)
	c.ConnectTimeout = getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", c.ConnectTimeout)
	c.SocketTimeout = getEnvAsDuration("MONGODB_SOCKET_TIMEOUT", c.SocketTimeout)
}
