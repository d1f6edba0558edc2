package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"db-wipe/internal/dialect"
	"db-wipe/internal/errs"
)

// Observer is called after each statement of a plan succeeds.
type Observer func(stmt dialect.Statement, done, total int)

// Planner turns introspected objects and an ignore-list into the statement
// sequence for one destructive call, then runs it.
type Planner struct {
	dialect dialect.Dialect
	log     zerolog.Logger
}

func NewPlanner(d dialect.Dialect, log zerolog.Logger) *Planner {
	return &Planner{dialect: d, log: log}
}

// PlanTables plans dropping every table of schemas except those in ignore.
//
// Cascade dialects get batched drops. Disable-checks dialects get the same
// plus FK toggles in Setup and Teardown. Dependency-order dialects get one
// drop per table, leaves first, which fails with errs.KindCyclicDependency
// when some target stays referenced.
func (p *Planner) PlanTables(ctx context.Context, q Querier, schemas, ignore []string) (*Plan, error) {
	in := NewIntrospector(p.dialect, q)
	schemas = in.Schemas(schemas)

	resolved, err := in.ListTables(ctx, schemas)
	if err != nil {
		return nil, err
	}

	plan := newPlan(Tables, schemas, resolved, ignore)
	if len(plan.Targets) == 0 {
		return plan, nil
	}

	switch p.dialect.DropStrategy() {
	case dialect.StrategyDependencyOrder:
		tables, err := in.Analyze(ctx, schemas, plan.Targets)
		if err != nil {
			return nil, err
		}
		ordered, err := DropOrder(tables)
		if err != nil {
			return nil, err
		}
		plan.Statements = p.dialect.DropTables(Objects(ordered))
	case dialect.StrategyDisableChecks:
		plan.Setup = p.dialect.DisableForeignKeys()
		plan.Statements = bySchema(schemas, plan.Targets, p.dialect.DropTables)
		plan.Teardown = p.dialect.EnableForeignKeys()
	default:
		plan.Statements = bySchema(schemas, plan.Targets, p.dialect.DropTables)
	}

	return plan, nil
}

// PlanViews plans dropping every view of schemas except those in ignore.
func (p *Planner) PlanViews(ctx context.Context, q Querier, schemas, ignore []string) (*Plan, error) {
	in := NewIntrospector(p.dialect, q)
	schemas = in.Schemas(schemas)

	resolved, err := in.ListViews(ctx, schemas)
	if err != nil {
		return nil, err
	}

	plan := newPlan(Views, schemas, resolved, ignore)
	plan.Statements = bySchema(schemas, plan.Targets, p.dialect.DropViews)
	return plan, nil
}

// PlanTypes plans dropping user-defined types. Only dialects implementing
// dialect.TypeDropper support it.
func (p *Planner) PlanTypes(ctx context.Context, q Querier, schemas, ignore []string) (*Plan, error) {
	td, ok := p.dialect.(dialect.TypeDropper)
	if !ok {
		return nil, errs.New(errs.KindUnsupportedOperation,
			fmt.Sprintf("%s does not support dropping types", p.dialect.Vendor()))
	}

	in := NewIntrospector(p.dialect, q)
	schemas = in.Schemas(schemas)

	resolved, err := in.ListTypes(ctx, schemas)
	if err != nil {
		return nil, err
	}

	plan := newPlan(Types, schemas, resolved, ignore)
	plan.Statements = bySchema(schemas, plan.Targets, td.DropTypes)
	return plan, nil
}

// PlanTruncate plans emptying one table. The table is not looked up first;
// a missing table surfaces as a failed statement.
func (p *Planner) PlanTruncate(table dialect.Object, cascade bool) (*Plan, error) {
	if table.Name == "" {
		return nil, errs.New(errs.KindInvalidInput, "table name is required")
	}
	stmts, err := p.dialect.TruncateTable(table, cascade)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Kind:       Tables,
		Schemas:    []string{table.Schema},
		Resolved:   []dialect.Object{table},
		Targets:    []dialect.Object{table},
		Statements: stmts,
	}, nil
}

// Execute runs plan on q in order. The first failing statement stops the
// run; statements already applied stay applied. Teardown always runs once
// Setup has started, even when ctx is cancelled.
func (p *Planner) Execute(ctx context.Context, q Querier, plan *Plan, observe Observer) (err error) {
	if plan.Empty() {
		return nil
	}

	label := strings.Join(plan.Schemas, ", ")

	if len(plan.Teardown) > 0 {
		defer func() {
			for _, stmt := range plan.Teardown {
				p.log.Debug().Str("sql", stmt).Msg("teardown")
				if _, terr := q.ExecContext(context.WithoutCancel(ctx), stmt); terr != nil {
					if err == nil {
						err = errs.SchemaOperation(label, dialect.DriverCode(terr), terr)
						continue
					}
					p.log.Error().Err(terr).Str("sql", stmt).Msg("teardown failed after earlier error")
				}
			}
		}()
	}

	for _, stmt := range plan.Setup {
		p.log.Debug().Str("sql", stmt).Msg("setup")
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return errs.SchemaOperation(label, dialect.DriverCode(err), err)
		}
	}

	total := len(plan.Statements)
	for i, stmt := range plan.Statements {
		p.log.Debug().Str("sql", stmt.SQL).Int("step", i+1).Int("total", total).Msg("executing")
		if _, err := q.ExecContext(ctx, stmt.SQL); err != nil {
			return errs.SchemaOperation(statementObject(stmt), dialect.DriverCode(err), err)
		}
		if observe != nil {
			observe(stmt, i+1, total)
		}
	}

	return nil
}

func newPlan(kind ObjectKind, schemas []string, resolved []dialect.Object, ignore []string) *Plan {
	plan := &Plan{Kind: kind, Schemas: schemas, Resolved: resolved}

	skip := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		skip[name] = true
	}

	for _, o := range resolved {
		if skip[o.Name] || skip[o.String()] {
			plan.Ignored = append(plan.Ignored, o)
			continue
		}
		plan.Targets = append(plan.Targets, o)
	}
	return plan
}

// bySchema builds statements one schema at a time, in schema order.
func bySchema(schemas []string, objs []dialect.Object, build func([]dialect.Object) []dialect.Statement) []dialect.Statement {
	groups := make(map[string][]dialect.Object, len(schemas))
	for _, o := range objs {
		groups[o.Schema] = append(groups[o.Schema], o)
	}

	var stmts []dialect.Statement
	done := make(map[string]bool, len(groups))
	for _, s := range schemas {
		if g, ok := groups[s]; ok {
			stmts = append(stmts, build(g)...)
			done[s] = true
		}
	}
	// Current-schema queries ("" for MySQL and Oracle) report the real name.
	for _, o := range objs {
		if !done[o.Schema] {
			stmts = append(stmts, build(groups[o.Schema])...)
			done[o.Schema] = true
		}
	}
	return stmts
}

// statementObject names what a failed statement was acting on: the object
// itself, or the schemas of a batched drop.
func statementObject(stmt dialect.Statement) string {
	if len(stmt.Objects) == 1 {
		return stmt.Objects[0].String()
	}
	var parts []string
	seen := make(map[string]bool)
	for _, o := range stmt.Objects {
		key := o.Schema
		if key == "" {
			key = o.Name
		}
		if !seen[key] {
			seen[key] = true
			parts = append(parts, key)
		}
	}
	return strings.Join(parts, ", ")
}
