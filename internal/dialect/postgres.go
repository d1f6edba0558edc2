package dialect

import (
	"fmt"
	"strings"
)

// PostgresDialect drops with CASCADE, batching every object into a single
// statement. Generated DDL is always schema-qualified.
type PostgresDialect struct{}

func (d *PostgresDialect) Vendor() Vendor { return VendorPostgres }

func (d *PostgresDialect) SupportsSchemas() bool { return true }

func (d *PostgresDialect) DefaultSchemas() []string { return []string{"public"} }

func (d *PostgresDialect) TablesQuery(schema string) Query {
	return Query{
		SQL:  `SELECT schemaname, tablename FROM pg_catalog.pg_tables WHERE schemaname = $1 ORDER BY tablename`,
		Args: []any{d.getSchema(schema)},
	}
}

func (d *PostgresDialect) ViewsQuery(schema string) Query {
	return Query{
		SQL:  `SELECT schemaname, viewname FROM pg_catalog.pg_views WHERE schemaname = $1 ORDER BY viewname`,
		Args: []any{d.getSchema(schema)},
	}
}

// TypesQuery lists enum types; composite row types belong to their tables
// and go away with them.
func (d *PostgresDialect) TypesQuery(schema string) Query {
	return Query{
		SQL: `SELECT DISTINCT n.nspname, t.typname
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
WHERE n.nspname = $1
ORDER BY t.typname`,
		Args: []any{d.getSchema(schema)},
	}
}

func (d *PostgresDialect) ForeignKeysQuery(schema string) Query {
	return Query{
		SQL: `SELECT DISTINCT cn.nspname, c.relname, pn.nspname, p.relname
FROM pg_catalog.pg_constraint k
JOIN pg_catalog.pg_class c ON c.oid = k.conrelid
JOIN pg_catalog.pg_namespace cn ON cn.oid = c.relnamespace
JOIN pg_catalog.pg_class p ON p.oid = k.confrelid
JOIN pg_catalog.pg_namespace pn ON pn.oid = p.relnamespace
WHERE k.contype = 'f' AND pn.nspname = $1`,
		Args: []any{d.getSchema(schema)},
	}
}

func (d *PostgresDialect) VersionQuery() string {
	return `SHOW server_version`
}

func (d *PostgresDialect) DropStrategy() DropStrategy { return StrategyCascade }

func (d *PostgresDialect) SupportsCascade() bool { return true }

func (d *PostgresDialect) DisableForeignKeys() []string { return nil }

func (d *PostgresDialect) EnableForeignKeys() []string { return nil }

func (d *PostgresDialect) DropTables(objs []Object) []Statement {
	return batched(objs, func(list string) string {
		return fmt.Sprintf("DROP TABLE %s CASCADE", list)
	}, d.QuoteIdent)
}

// DropViews cascades: views built on a dropped view go too, ignored or not.
func (d *PostgresDialect) DropViews(objs []Object) []Statement {
	return batched(objs, func(list string) string {
		return fmt.Sprintf("DROP VIEW IF EXISTS %s CASCADE", list)
	}, d.QuoteIdent)
}

func (d *PostgresDialect) DropTypes(objs []Object) []Statement {
	return batched(objs, func(list string) string {
		return fmt.Sprintf("DROP TYPE %s CASCADE", list)
	}, d.QuoteIdent)
}

func (d *PostgresDialect) TruncateTable(table Object, cascade bool) ([]Statement, error) {
	sql := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", d.QualifiedName(table))
	if cascade {
		sql += " CASCADE"
	}
	return []Statement{{SQL: sql, Objects: []Object{table}}}, nil
}

func (d *PostgresDialect) QuoteIdent(name string) string {
	return quoteWith(name, `"`, `"`)
}

func (d *PostgresDialect) QualifiedName(o Object) string {
	return qualify(o, d.QuoteIdent)
}

// NormalizeIdent folds unquoted names to lower case, as the server does.
func (d *PostgresDialect) NormalizeIdent(name string) string {
	if inner, ok := unquote(name, `"`, `"`); ok {
		return inner
	}
	return strings.ToLower(name)
}

// Helper to fix schema name if needed (usually public)
func (d *PostgresDialect) getSchema(schema string) string {
	if schema == "" {
		return "public"
	}
	return schema
}
