package schema

import (
	"context"
	"database/sql"

	"db-wipe/internal/dialect"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx used by the
// introspector and the planner. Pass a *sql.Conn when session settings
// (FK checks) must carry over between statements.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Table is a table and its foreign key edges.
type Table struct {
	dialect.Object
	Dependencies []dialect.Object // tables this one references
	Dependents   []dialect.Object // tables referencing this one, in or out of scope
}

// ForeignKey is a reference from Child to Parent.
type ForeignKey struct {
	Child  dialect.Object
	Parent dialect.Object
}

// ObjectKind is the kind of object a plan acts on.
type ObjectKind string

const (
	Tables ObjectKind = "tables"
	Views  ObjectKind = "views"
	Types  ObjectKind = "types"
)

// Plan is the statement sequence for one destructive call. It is built fresh
// for every call and discarded after execution.
type Plan struct {
	Kind     ObjectKind
	Schemas  []string
	Resolved []dialect.Object // everything introspection found
	Ignored  []dialect.Object // resolved objects kept by the ignore-list
	Targets  []dialect.Object // Resolved minus Ignored

	Setup      []string
	Statements []dialect.Statement
	Teardown   []string
}

// Empty reports whether executing the plan would run nothing.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Statements) == 0
}

// TargetNames renders the targets, schema-qualified or bare.
func (p *Plan) TargetNames(qualified bool) []string {
	return Names(p.Targets, qualified)
}

// Names renders objs as strings.
func Names(objs []dialect.Object, qualified bool) []string {
	names := make([]string, 0, len(objs))
	for _, o := range objs {
		if qualified {
			names = append(names, o.String())
		} else {
			names = append(names, o.Name)
		}
	}
	return names
}
