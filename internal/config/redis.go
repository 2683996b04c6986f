package config

import (
	"time"
)

type RedisConfig struct {
	Enabled      bool          `toml:"enabled"`
	Host         string        `toml:"host"`
	Port         int           `toml:"port"`
	Password     string        `toml:"password"`
	DB           int           `toml:"db"`
	PoolSize     int           `toml:"pool_size"`
	MinIdleConns int           `toml:"min_idle_conns"`
	DialTimeout  time.Duration `toml:"dial_timeout"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	CacheTTL     time.Duration `toml:"cache_ttl"`
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Enabled:      true,
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		CacheTTL:     5 * time.Minute,
	}
}

func loadRedisConfig(c *RedisConfig) {
	c.Enabled = getEnvAsBool("REDIS_ENABLED", c.Enabled)
	c.Host = getEnv("REDIS_HOST", c.Host)
	c.Port = getEnvAsInt("REDIS_PORT", c.Port)
	c.Password = getEnv("REDIS_PASSWORD", c.Password)
	c.DB = getEnvAsInt("REDIS_DB", c.DB)
	c.PoolSize = getEnvAsInt("REDIS_POOL_SIZE", c.PoolSize)
	c.MinIdleConns = getEnvAsInt("REDIS_MIN_IDLE_CONNS", c.MinIdleConns)
	c.DialTimeout = getEnvAsDuration("REDIS_DIAL_TIMEOUT", c.DialTimeout)
	c.ReadTimeout = getEnvAsDuration("REDIS_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsDuration("REDIS_WRITE_TIMEOUT", c.WriteTimeout)
	c.CacheTTL = getEnvAsDuration("REDIS_CACHE_TTL", c.CacheTTL)
}
