package iconcache

import (
	"net/http"
	"time"

	"github.com/okian/trophycase/pkg/logger"
)

// Default settings.
const (
	DefaultConcurrency = 4
	DefaultTimeout     = 5 * time.Second
)

// Option configures a Cache.
type Option func(*Cache)

// WithDir sets the directory icons are written to. An empty directory
// disables downloads.
func WithDir(dir string) Option {
	return func(c *Cache) {
		c.dir = dir
	}
}

// WithConcurrency limits the number of parallel downloads.
func WithConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout bounds a single download.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}
