package cip

import "time"

const (
	// DefaultTimeout bounds every CIP call
	DefaultTimeout = 60 * time.Second

	// DefaultLayoutCacheSize is the number of table layouts kept per client
	DefaultLayoutCacheSize = 64
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	transport       Transport
	timeout         time.Duration
	layoutCacheSize int
}

// WithTransport replaces the default net/http transport
func WithTransport(t Transport) Option {
	return func(o *clientOptions) {
		o.transport = t
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithLayoutCacheSize sets how many table layouts the client remembers
func WithLayoutCacheSize(size int) Option {
	return func(o *clientOptions) {
		if size > 0 {
			o.layoutCacheSize = size
		}
	}
}
