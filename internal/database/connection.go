// Package database owns the lifecycle of a named database handle and
// resolves the dialect that applies to it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"db-wipe/internal/dialect"
	"db-wipe/internal/errs"
	"db-wipe/internal/events"
)

// State is a Connection's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateDisconnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Opener opens a handle; sql.Open by default.
type Opener func(driver, dsn string) (*sql.DB, error)

type Option func(*Connection)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Connection) { c.log = log }
}

func WithSink(sink events.Sink) Option {
	return func(c *Connection) { c.sink = sink }
}

// WithOpener replaces sql.Open, mainly for tests.
func WithOpener(open Opener) Option {
	return func(c *Connection) { c.open = open }
}

// Connection owns exactly one *sql.DB. Callers borrow it through DB(); they
// must not close it.
type Connection struct {
	name string
	cfg  Config
	log  zerolog.Logger
	sink events.Sink
	open Opener

	mu      sync.RWMutex
	state   State
	db      *sql.DB
	dialect dialect.Dialect
}

// New creates an idle connection. No I/O happens until Connect.
func New(name string, cfg Config, opts ...Option) *Connection {
	if name == "" {
		name = cfg.Name
	}
	if name == "" {
		name = "primary"
	}
	c := &Connection{
		name: name,
		cfg:  cfg,
		log:  zerolog.Nop(),
		sink: events.Nop,
		open: sql.Open,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("connection", name).Logger()
	c.sink = events.Guard(c.sink, c.log)
	return c
}

func (c *Connection) Name() string { return c.name }

func (c *Connection) Config() Config { return c.cfg }

func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connect opens the handle, checks it answers and resolves the dialect.
// It is a no-op when already connected and fails while another Connect is
// in flight. The lock is not held while dialing, so State reports
// StateConnecting meanwhile. On failure the connection returns to the state
// it was in and nothing is kept open.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting:
		c.mu.Unlock()
		return errs.New(errs.KindConnection, fmt.Sprintf("connection %q is already connecting", c.name))
	case StateClosed:
		c.mu.Unlock()
		return c.closedError()
	}
	prev := c.state
	c.state = StateConnecting
	c.mu.Unlock()

	db, d, err := c.dial(ctx)

	c.mu.Lock()
	if c.state == StateClosed {
		// Close ran while dialing.
		c.mu.Unlock()
		if db != nil {
			db.Close()
		}
		return c.closedError()
	}
	if err != nil {
		c.state = prev
		c.mu.Unlock()
		c.log.Error().Err(err).Msg("connect failed")
		return err
	}
	c.db = db
	c.dialect = d
	c.state = StateConnected
	c.mu.Unlock()

	c.log.Info().Str("vendor", d.Vendor().String()).Msg("connected")
	c.sink.Emit(events.EventConnect, events.Lifecycle{
		Connection: c.name,
		Driver:     c.cfg.Driver,
		Vendor:     d.Vendor().String(),
	})
	return nil
}

func (c *Connection) closedError() error {
	return errs.New(errs.KindConnection, fmt.Sprintf("connection %q is closed", c.name))
}

func (c *Connection) dial(ctx context.Context) (*sql.DB, dialect.Dialect, error) {
	dsn, err := c.cfg.DataSource()
	if err != nil {
		return nil, nil, err
	}

	db, err := c.open(c.cfg.Driver, dsn)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindConnection, "failed to open db", err)
	}
	c.tune(db)

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, errs.Wrap(errs.KindConnection, "failed to connect to db", err)
	}

	// An explicit vendor wins, then the registered driver's identity.
	vendor := driverVendor(db.Driver())
	if c.cfg.Vendor != "" || vendor == "" {
		vendor = c.cfg.VendorName()
	}
	d, err := dialect.GetDialect(vendor)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, d, nil
}

func (c *Connection) tune(db *sql.DB) {
	maxOpen := c.cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
		if c.cfg.File == ":memory:" {
			// every connection would get its own empty database
			maxOpen = 1
		}
	}
	maxIdle := c.cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = defaultMaxIdleConns
	}
	lifetime := c.cfg.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = defaultConnMaxLifetime
	}
	idle := c.cfg.ConnMaxIdleTime
	if idle == 0 {
		idle = defaultConnMaxIdleTime
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(idle)
}

// Disconnect closes the handle. Calling it when not connected does nothing.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil
	}
	err := c.release()
	c.state = StateDisconnected
	c.mu.Unlock()

	c.log.Info().Msg("disconnected")
	c.sink.Emit(events.EventDisconnect, events.Lifecycle{Connection: c.name, Driver: c.cfg.Driver})
	return err
}

// release closes the handle. Callers hold mu.
func (c *Connection) release() error {
	c.state = StateDisconnecting
	err := c.db.Close()
	c.db = nil
	c.dialect = nil
	if err != nil {
		return errs.Wrap(errs.KindConnection, "failed to close db", err)
	}
	return nil
}

// Reconnect drops the current handle, if any, and connects again.
func (c *Connection) Reconnect(ctx context.Context) error {
	if err := c.Disconnect(); err != nil {
		c.log.Warn().Err(err).Msg("error while disconnecting before reconnect")
	}
	return c.Connect(ctx)
}

// Close disconnects and makes the connection unusable.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	wasConnected := c.state == StateConnected
	var err error
	if wasConnected {
		err = c.release()
	}
	c.state = StateClosed
	c.mu.Unlock()

	if wasConnected {
		c.log.Info().Msg("closed")
		c.sink.Emit(events.EventDisconnect, events.Lifecycle{Connection: c.name, Driver: c.cfg.Driver})
	}
	return err
}

// Dialect returns the dialect resolved by Connect.
func (c *Connection) Dialect() (dialect.Dialect, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected {
		return nil, c.notConnected()
	}
	return c.dialect, nil
}

// DB returns the pooled handle. It stays owned by the connection.
func (c *Connection) DB() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected {
		return nil, c.notConnected()
	}
	return c.db, nil
}

func (c *Connection) Ping(ctx context.Context) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return errs.Wrap(errs.KindConnection, "ping failed", err)
	}
	return nil
}

func (c *Connection) notConnected() error {
	return errs.New(errs.KindNotConnected, fmt.Sprintf("connection %q is %s", c.name, c.state))
}
