package schema

import (
	"context"
	"database/sql"
	"fmt"

	"db-wipe/internal/dialect"
	"db-wipe/internal/errs"
)

// Introspector runs a dialect's catalog queries.
type Introspector struct {
	dialect dialect.Dialect
	q       Querier
}

func NewIntrospector(d dialect.Dialect, q Querier) *Introspector {
	return &Introspector{dialect: d, q: q}
}

// Schemas normalises the caller's schema list: defaults when empty,
// duplicates removed, and a single "" for dialects without schemas.
func (in *Introspector) Schemas(schemas []string) []string {
	if !in.dialect.SupportsSchemas() {
		return []string{""}
	}
	if len(schemas) == 0 {
		return in.dialect.DefaultSchemas()
	}
	seen := make(map[string]bool, len(schemas))
	out := make([]string, 0, len(schemas))
	for _, s := range schemas {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ListTables returns the user tables of every schema, in schema order.
// An empty database yields a nil slice and no error.
func (in *Introspector) ListTables(ctx context.Context, schemas []string) ([]dialect.Object, error) {
	return in.collect(ctx, schemas, in.dialect.TablesQuery)
}

func (in *Introspector) ListViews(ctx context.Context, schemas []string) ([]dialect.Object, error) {
	return in.collect(ctx, schemas, in.dialect.ViewsQuery)
}

// ListTypes lists user-defined types for dialects implementing
// dialect.TypeDropper.
func (in *Introspector) ListTypes(ctx context.Context, schemas []string) ([]dialect.Object, error) {
	td, ok := in.dialect.(dialect.TypeDropper)
	if !ok {
		return nil, errs.New(errs.KindUnsupportedOperation,
			fmt.Sprintf("%s has no user-defined types to list", in.dialect.Vendor()))
	}
	return in.collect(ctx, schemas, td.TypesQuery)
}

// ListForeignKeys returns every foreign key whose referenced table lives in
// one of schemas. Self references are kept; callers decide what they mean.
func (in *Introspector) ListForeignKeys(ctx context.Context, schemas []string) ([]ForeignKey, error) {
	var fks []ForeignKey
	seen := make(map[ForeignKey]bool)

	for _, s := range in.Schemas(schemas) {
		q := in.dialect.ForeignKeysQuery(s)
		rows, err := in.q.QueryContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return nil, catalogError(s, fmt.Errorf("failed to query foreign keys: %w", err))
		}

		for rows.Next() {
			var cSchema, cName, pSchema, pName sql.NullString
			if err := rows.Scan(&cSchema, &cName, &pSchema, &pName); err != nil {
				rows.Close()
				return nil, catalogError(s, fmt.Errorf("failed to scan foreign key: %w", err))
			}
			if !cName.Valid || !pName.Valid {
				continue
			}
			fk := ForeignKey{
				Child:  in.object(cSchema.String, cName.String),
				Parent: in.object(pSchema.String, pName.String),
			}
			if !seen[fk] {
				seen[fk] = true
				fks = append(fks, fk)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, catalogError(s, fmt.Errorf("error iterating foreign keys: %w", err))
		}
	}
	return fks, nil
}

// Analyze links tables with the foreign keys found in schemas. Edges from
// tables outside the given set are kept as Dependents so that a dependency
// ordered drop can see what would block it.
func (in *Introspector) Analyze(ctx context.Context, schemas []string, tables []dialect.Object) ([]*Table, error) {
	fks, err := in.ListForeignKeys(ctx, schemas)
	if err != nil {
		return nil, err
	}
	return link(tables, fks), nil
}

func link(objs []dialect.Object, fks []ForeignKey) []*Table {
	tableMap := make(map[dialect.Object]*Table, len(objs))
	tables := make([]*Table, 0, len(objs))
	for _, o := range objs {
		if _, dup := tableMap[o]; dup {
			continue
		}
		t := &Table{Object: o}
		tableMap[o] = t
		tables = append(tables, t)
	}

	for _, fk := range fks {
		if fk.Child == fk.Parent {
			continue
		}
		if parent, ok := tableMap[fk.Parent]; ok {
			parent.Dependents = append(parent.Dependents, fk.Child)
			if child, ok := tableMap[fk.Child]; ok {
				child.Dependencies = append(child.Dependencies, fk.Parent)
			}
		}
	}
	return tables
}

func (in *Introspector) collect(ctx context.Context, schemas []string, build func(string) dialect.Query) ([]dialect.Object, error) {
	var objs []dialect.Object
	seen := make(map[dialect.Object]bool)

	for _, s := range in.Schemas(schemas) {
		q := build(s)
		rows, err := in.q.QueryContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return nil, catalogError(s, fmt.Errorf("failed to query catalog: %w", err))
		}

		for rows.Next() {
			var schemaName, name sql.NullString
			if err := rows.Scan(&schemaName, &name); err != nil {
				rows.Close()
				return nil, catalogError(s, fmt.Errorf("failed to scan object name: %w", err))
			}
			if !name.Valid || name.String == "" {
				continue
			}
			o := in.object(schemaName.String, name.String)
			if !seen[o] {
				seen[o] = true
				objs = append(objs, o)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, catalogError(s, fmt.Errorf("error iterating catalog rows: %w", err))
		}
	}
	return objs, nil
}

// object drops the schema for schemaless dialects so that names compare
// equal however the catalog reports them.
func (in *Introspector) object(schema, name string) dialect.Object {
	if !in.dialect.SupportsSchemas() {
		return dialect.Object{Name: name}
	}
	return dialect.Object{Schema: schema, Name: name}
}

func catalogError(schema string, cause error) error {
	e := errs.SchemaOperation(schema, dialect.DriverCode(cause), cause)
	e.Message = "catalog query failed"
	return e
}
