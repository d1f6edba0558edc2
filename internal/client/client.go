// Package client is the entry point for destructive schema operations on a
// connected database.
//
// Each call pins one session from the pool, introspects, plans and executes
// on it, then releases it. Nothing is cached between calls.
package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"db-wipe/internal/database"
	"db-wipe/internal/dialect"
	"db-wipe/internal/errs"
	"db-wipe/internal/events"
	"db-wipe/internal/schema"
)

// Operation names reported in results and events.
const (
	OpDropAllTables = "dropAllTables"
	OpDropAllViews  = "dropAllViews"
	OpDropAllTypes  = "dropAllTypes"
	OpTruncate      = "truncate"
)

// Result describes a successful destructive call.
type Result struct {
	ID         string
	Operation  string
	Schemas    []string
	Objects    []string // affected objects, schema-qualified
	Ignored    []string
	Statements []string
	Duration   time.Duration
}

// Count is the number of objects affected.
func (r *Result) Count() int { return len(r.Objects) }

// Client binds one connection and one event sink. The ignore-lists and
// schemas configured on the connection become per-call defaults.
type Client struct {
	conn     *database.Connection
	sink     events.Sink
	policy   database.WipeConfig
	schemas  []string
	debug    bool
	log      zerolog.Logger
	progress func(done, total int)
}

func New(conn *database.Connection, sink events.Sink, opts ...ClientOption) *Client {
	cfg := conn.Config()
	c := &Client{
		conn:    conn,
		policy:  cfg.Wipe,
		schemas: cfg.Schemas,
		debug:   cfg.Debug,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sink = events.Guard(sink, c.log)
	return c
}

// DropAllTables drops every table in the selected schemas except ignored
// ones. Nothing to drop is not an error.
func (c *Client) DropAllTables(ctx context.Context, opts ...Option) (*Result, error) {
	o := c.resolve(opts, c.policy.IgnoreTables)
	return c.wipe(ctx, OpDropAllTables, func(p *schema.Planner, q schema.Querier) (*schema.Plan, error) {
		return p.PlanTables(ctx, q, o.schemas, o.ignore)
	})
}

// DropAllViews drops every view in the selected schemas except ignored ones.
func (c *Client) DropAllViews(ctx context.Context, opts ...Option) (*Result, error) {
	o := c.resolve(opts, c.policy.IgnoreViews)
	return c.wipe(ctx, OpDropAllViews, func(p *schema.Planner, q schema.Querier) (*schema.Plan, error) {
		return p.PlanViews(ctx, q, o.schemas, o.ignore)
	})
}

// DropAllTypes drops user-defined types. Only postgres has them.
func (c *Client) DropAllTypes(ctx context.Context, opts ...Option) (*Result, error) {
	o := c.resolve(opts, nil)
	return c.wipe(ctx, OpDropAllTypes, func(p *schema.Planner, q schema.Querier) (*schema.Plan, error) {
		return p.PlanTypes(ctx, q, o.schemas, o.ignore)
	})
}

// Plan returns what a drop of kind would do, without running it.
func (c *Client) Plan(ctx context.Context, kind schema.ObjectKind, opts ...Option) (*schema.Plan, error) {
	var plan *schema.Plan
	err := c.session(ctx, func(d dialect.Dialect, q schema.Querier) error {
		p := schema.NewPlanner(d, c.log)
		var err error
		switch kind {
		case schema.Tables:
			o := c.resolve(opts, c.policy.IgnoreTables)
			plan, err = p.PlanTables(ctx, q, o.schemas, o.ignore)
		case schema.Views:
			o := c.resolve(opts, c.policy.IgnoreViews)
			plan, err = p.PlanViews(ctx, q, o.schemas, o.ignore)
		case schema.Types:
			o := c.resolve(opts, nil)
			plan, err = p.PlanTypes(ctx, q, o.schemas, o.ignore)
		default:
			err = errs.New(errs.KindInvalidInput, fmt.Sprintf("unknown object kind %q", kind))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Truncate empties table. A "schema.table" name selects the schema.
// Cascading fails with errs.KindUnsupportedOperation where the dialect
// cannot do it.
func (c *Client) Truncate(ctx context.Context, table string, cascade bool) (*Result, error) {
	var (
		res    *Result
		target dialect.Object
	)
	err := c.session(ctx, func(d dialect.Dialect, q schema.Querier) error {
		target = dialect.ParseObject(d, table)
		p := schema.NewPlanner(d, c.log)
		plan, err := p.PlanTruncate(target, cascade)
		if err != nil {
			return err
		}
		res, err = c.execute(ctx, OpTruncate, p, q, plan)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("table", target.String()).Bool("cascade", cascade).Msg("table truncated")
	c.sink.Emit(events.EventTableTruncated, events.TableTruncated{
		ID:         res.ID,
		Connection: c.conn.Name(),
		Table:      target.String(),
		Cascade:    cascade,
		Duration:   res.Duration,
	})
	return res, nil
}

// ListTables returns the tables of the selected schemas, bare names unless
// WithQualifiedNames is given.
func (c *Client) ListTables(ctx context.Context, opts ...Option) ([]string, error) {
	o := c.resolve(opts, nil)
	return c.list(ctx, o, func(in *schema.Introspector) ([]dialect.Object, error) {
		return in.ListTables(ctx, o.schemas)
	})
}

func (c *Client) ListViews(ctx context.Context, opts ...Option) ([]string, error) {
	o := c.resolve(opts, nil)
	return c.list(ctx, o, func(in *schema.Introspector) ([]dialect.Object, error) {
		return in.ListViews(ctx, o.schemas)
	})
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version string
	err := c.session(ctx, func(d dialect.Dialect, q schema.Querier) error {
		rows, err := q.QueryContext(ctx, d.VersionQuery())
		if err != nil {
			return versionError(err)
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return versionError(err)
			}
			return versionError(sql.ErrNoRows)
		}
		if err := rows.Scan(&version); err != nil {
			return versionError(err)
		}
		return rows.Err()
	})
	return version, err
}

func versionError(err error) error {
	e := errs.SchemaOperation("version", dialect.DriverCode(err), err)
	e.Message = "version query failed"
	return e
}

func (c *Client) list(ctx context.Context, o callOptions, fetch func(*schema.Introspector) ([]dialect.Object, error)) ([]string, error) {
	var objs []dialect.Object
	err := c.session(ctx, func(d dialect.Dialect, q schema.Querier) error {
		var err error
		objs, err = fetch(schema.NewIntrospector(d, q))
		return err
	})
	if err != nil {
		return nil, err
	}

	if o.qualified {
		return schema.Names(objs, true), nil
	}
	// Bare names from several schemas may collide.
	seen := make(map[string]bool, len(objs))
	var out []string
	for _, name := range schema.Names(objs, false) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

func (c *Client) wipe(ctx context.Context, op string, build func(*schema.Planner, schema.Querier) (*schema.Plan, error)) (*Result, error) {
	var res *Result
	err := c.session(ctx, func(d dialect.Dialect, q schema.Querier) error {
		p := schema.NewPlanner(d, c.log)
		plan, err := build(p, q)
		if err != nil {
			return err
		}
		res, err = c.execute(ctx, op, p, q, plan)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("operation", op).Int("count", res.Count()).Dur("duration", res.Duration).Msg("schema wiped")
	c.sink.Emit(events.EventSchemaWiped, events.SchemaWiped{
		ID:         res.ID,
		Connection: c.conn.Name(),
		Operation:  op,
		Schemas:    res.Schemas,
		Objects:    res.Objects,
		Count:      res.Count(),
		Duration:   res.Duration,
	})
	return res, nil
}

// execute runs plan and, only if every statement succeeded, emits the
// buffered db:query events.
func (c *Client) execute(ctx context.Context, op string, p *schema.Planner, q schema.Querier, plan *schema.Plan) (*Result, error) {
	start := time.Now()
	var queries []events.Query

	err := p.Execute(ctx, q, plan, func(stmt dialect.Statement, done, total int) {
		queries = append(queries, events.Query{
			Connection: c.conn.Name(),
			SQL:        stmt.SQL,
			Objects:    schema.Names(stmt.Objects, true),
		})
		if c.progress != nil {
			c.progress(done, total)
		}
	})
	if err != nil {
		c.log.Error().Err(err).Str("operation", op).Msg("operation failed")
		return nil, err
	}

	res := &Result{
		ID:        uuid.NewString(),
		Operation: op,
		Schemas:   plan.Schemas,
		Objects:   plan.TargetNames(true),
		Ignored:   schema.Names(plan.Ignored, true),
		Duration:  time.Since(start),
	}
	for _, qe := range queries {
		res.Statements = append(res.Statements, qe.SQL)
	}

	if c.debug {
		for _, qe := range queries {
			c.sink.Emit(events.EventQuery, qe)
		}
	}
	return res, nil
}

// session pins one pooled connection for the duration of fn so that session
// settings made by the plan apply to all of its statements.
func (c *Client) session(ctx context.Context, fn func(dialect.Dialect, schema.Querier) error) error {
	d, err := c.conn.Dialect()
	if err != nil {
		return err
	}
	db, err := c.conn.DB()
	if err != nil {
		return err
	}

	sess, err := db.Conn(ctx)
	if err != nil {
		return errs.Wrap(errs.KindConnection, "failed to acquire session", err)
	}
	defer sess.Close()

	return fn(d, sess)
}
