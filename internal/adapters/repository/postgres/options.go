package postgres

import "time"

// Option applies a configuration option to the connection pool opened by
// Open.
type Option func(*poolConfig)

type poolConfig struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// WithMaxOpenConns caps the number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(c *poolConfig) {
		if n > 0 {
			c.maxOpen = n
		}
	}
}

// WithMaxIdleConns caps the number of idle connections kept in the pool.
func WithMaxIdleConns(n int) Option {
	return func(c *poolConfig) {
		if n > 0 {
			c.maxIdle = n
		}
	}
}

// WithConnMaxLifetime recycles connections older than d.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *poolConfig) {
		if d > 0 {
			c.maxLifetime = d
		}
	}
}
