package dialect

import (
	"fmt"

	"db-wipe/internal/errs"
)

// MSSQLDialect has neither DROP ... CASCADE nor a way to drop a referenced
// table with its constraints disabled (NOCHECK still blocks DROP), so tables
// are dropped one by one in dependency order, leaves first.
type MSSQLDialect struct{}

func (d *MSSQLDialect) Vendor() Vendor { return VendorMSSQL }

func (d *MSSQLDialect) SupportsSchemas() bool { return true }

func (d *MSSQLDialect) DefaultSchemas() []string { return []string{"dbo"} }

func (d *MSSQLDialect) TablesQuery(schema string) Query {
	return Query{
		SQL:  `SELECT s.name, t.name FROM sys.tables t JOIN sys.schemas s ON s.schema_id = t.schema_id WHERE t.is_ms_shipped = 0 AND s.name = @p1 ORDER BY t.name`,
		Args: []any{d.getSchema(schema)},
	}
}

func (d *MSSQLDialect) ViewsQuery(schema string) Query {
	return Query{
		SQL:  `SELECT s.name, v.name FROM sys.views v JOIN sys.schemas s ON s.schema_id = v.schema_id WHERE v.is_ms_shipped = 0 AND s.name = @p1 ORDER BY v.name`,
		Args: []any{d.getSchema(schema)},
	}
}

// ForeignKeysQuery returns every reference into schema, including ones held
// by tables in other schemas, so the planner can see drops they would block.
func (d *MSSQLDialect) ForeignKeysQuery(schema string) Query {
	return Query{
		SQL: `SELECT DISTINCT cs.name, ct.name, ps.name, pt.name
FROM sys.foreign_keys fk
JOIN sys.tables ct ON ct.object_id = fk.parent_object_id
JOIN sys.schemas cs ON cs.schema_id = ct.schema_id
JOIN sys.tables pt ON pt.object_id = fk.referenced_object_id
JOIN sys.schemas ps ON ps.schema_id = pt.schema_id
WHERE ps.name = @p1`,
		Args: []any{d.getSchema(schema)},
	}
}

func (d *MSSQLDialect) VersionQuery() string {
	return `SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))`
}

func (d *MSSQLDialect) DropStrategy() DropStrategy { return StrategyDependencyOrder }

func (d *MSSQLDialect) SupportsCascade() bool { return false }

func (d *MSSQLDialect) DisableForeignKeys() []string { return nil }

func (d *MSSQLDialect) EnableForeignKeys() []string { return nil }

// DropTables emits one statement per table in the order given; callers pass
// objects already sorted leaves first.
func (d *MSSQLDialect) DropTables(objs []Object) []Statement {
	return perObject(objs, func(o Object) string {
		return fmt.Sprintf("DROP TABLE %s", d.QualifiedName(o))
	})
}

func (d *MSSQLDialect) DropViews(objs []Object) []Statement {
	return perObject(objs, func(o Object) string {
		return fmt.Sprintf("DROP VIEW IF EXISTS %s", d.QualifiedName(o))
	})
}

func (d *MSSQLDialect) TruncateTable(table Object, cascade bool) ([]Statement, error) {
	if cascade {
		return nil, errs.New(errs.KindUnsupportedOperation, "mssql does not support cascading truncate")
	}
	return []Statement{{
		SQL:     fmt.Sprintf("TRUNCATE TABLE %s", d.QualifiedName(table)),
		Objects: []Object{table},
	}}, nil
}

func (d *MSSQLDialect) QuoteIdent(name string) string {
	return quoteWith(name, "[", "]")
}

func (d *MSSQLDialect) QualifiedName(o Object) string {
	return qualify(o, d.QuoteIdent)
}

func (d *MSSQLDialect) NormalizeIdent(name string) string {
	if inner, ok := unquote(name, "[", "]"); ok {
		return inner
	}
	return name
}

func (d *MSSQLDialect) getSchema(schema string) string {
	if schema == "" {
		return "dbo"
	}
	return schema
}
