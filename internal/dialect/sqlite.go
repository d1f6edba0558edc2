package dialect

import (
	"fmt"

	"db-wipe/internal/errs"
)

// SqliteDialect is file based and has no schemas: schema arguments are
// ignored and object names are never qualified. FK enforcement is switched
// off with a PRAGMA, which only works outside a transaction.
type SqliteDialect struct{}

func (d *SqliteDialect) Vendor() Vendor { return VendorSQLite }

func (d *SqliteDialect) SupportsSchemas() bool { return false }

func (d *SqliteDialect) DefaultSchemas() []string { return []string{""} }

func (d *SqliteDialect) TablesQuery(schema string) Query {
	return Query{SQL: `SELECT '', name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY name`}
}

func (d *SqliteDialect) ViewsQuery(schema string) Query {
	return Query{SQL: `SELECT '', name FROM sqlite_master WHERE type = 'view' ORDER BY name`}
}

func (d *SqliteDialect) ForeignKeysQuery(schema string) Query {
	return Query{SQL: `SELECT DISTINCT '', m.name, '', p."table" FROM sqlite_master m JOIN pragma_foreign_key_list(m.name) p WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite\_%' ESCAPE '\'`}
}

func (d *SqliteDialect) VersionQuery() string {
	return `SELECT sqlite_version()`
}

func (d *SqliteDialect) DropStrategy() DropStrategy { return StrategyDisableChecks }

func (d *SqliteDialect) SupportsCascade() bool { return false }

func (d *SqliteDialect) DisableForeignKeys() []string {
	return []string{"PRAGMA foreign_keys = OFF"}
}

func (d *SqliteDialect) EnableForeignKeys() []string {
	return []string{"PRAGMA foreign_keys = ON"}
}

func (d *SqliteDialect) DropTables(objs []Object) []Statement {
	return perObject(objs, func(o Object) string {
		return fmt.Sprintf("DROP TABLE %s", d.QualifiedName(o))
	})
}

func (d *SqliteDialect) DropViews(objs []Object) []Statement {
	return perObject(objs, func(o Object) string {
		return fmt.Sprintf("DROP VIEW IF EXISTS %s", d.QualifiedName(o))
	})
}

// TruncateTable deletes every row; SQLite has no TRUNCATE.
func (d *SqliteDialect) TruncateTable(table Object, cascade bool) ([]Statement, error) {
	if cascade {
		return nil, errs.New(errs.KindUnsupportedOperation, "sqlite does not support cascading truncate")
	}
	return []Statement{{
		SQL:     fmt.Sprintf("DELETE FROM %s", d.QualifiedName(table)),
		Objects: []Object{table},
	}}, nil
}

func (d *SqliteDialect) QuoteIdent(name string) string {
	return quoteWith(name, `"`, `"`)
}

func (d *SqliteDialect) QualifiedName(o Object) string {
	return d.QuoteIdent(o.Name)
}

func (d *SqliteDialect) NormalizeIdent(name string) string {
	if inner, ok := unquote(name, `"`, `"`); ok {
		return inner
	}
	return name
}
