package client

import (
	"github.com/rs/zerolog"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithProgress reports statement progress of drop and truncate calls.
func WithProgress(fn func(done, total int)) ClientOption {
	return func(c *Client) { c.progress = fn }
}

// Option configures a single call.
type Option func(*callOptions)

type callOptions struct {
	schemas   []string
	ignore    []string
	ignoreSet bool
	qualified bool
}

// WithSchemas scopes the call to the named schemas. Without it the
// connection's configured schemas are used, then the dialect default.
func WithSchemas(schemas ...string) Option {
	return func(o *callOptions) { o.schemas = append(o.schemas, schemas...) }
}

// WithIgnore replaces the configured ignore-list for this call. Passing no
// names clears it.
func WithIgnore(names ...string) Option {
	return func(o *callOptions) {
		o.ignore = append(o.ignore, names...)
		o.ignoreSet = true
	}
}

// WithQualifiedNames makes listings return schema.name instead of bare names.
func WithQualifiedNames() Option {
	return func(o *callOptions) { o.qualified = true }
}

func (c *Client) resolve(opts []Option, defaultIgnore []string) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.schemas) == 0 {
		o.schemas = c.schemas
	}
	if !o.ignoreSet {
		o.ignore = defaultIgnore
	}
	return o
}
