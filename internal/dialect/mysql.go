package dialect

import (
	"fmt"

	"db-wipe/internal/errs"
)

// MysqlDialect has no DROP ... CASCADE, so FK checks are switched off for the
// session while a single batched DROP TABLE runs. A schema is a database; the
// empty schema means DATABASE().
type MysqlDialect struct{}

func (d *MysqlDialect) Vendor() Vendor { return VendorMySQL }

func (d *MysqlDialect) SupportsSchemas() bool { return true }

func (d *MysqlDialect) DefaultSchemas() []string { return []string{""} }

func (d *MysqlDialect) TablesQuery(schema string) Query {
	return d.tableTypeQuery(schema, "BASE TABLE")
}

func (d *MysqlDialect) ViewsQuery(schema string) Query {
	return d.tableTypeQuery(schema, "VIEW")
}

func (d *MysqlDialect) tableTypeQuery(schema, tableType string) Query {
	if schema == "" {
		return Query{
			SQL:  `SELECT TABLE_SCHEMA, TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = ? ORDER BY TABLE_NAME`,
			Args: []any{tableType},
		}
	}
	return Query{
		SQL:  `SELECT TABLE_SCHEMA, TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = ? ORDER BY TABLE_NAME`,
		Args: []any{schema, tableType},
	}
}

func (d *MysqlDialect) ForeignKeysQuery(schema string) Query {
	if schema == "" {
		return Query{
			SQL: `SELECT DISTINCT TABLE_SCHEMA, TABLE_NAME, REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE REFERENCED_TABLE_SCHEMA = DATABASE() AND REFERENCED_TABLE_NAME IS NOT NULL`,
		}
	}
	return Query{
		SQL:  `SELECT DISTINCT TABLE_SCHEMA, TABLE_NAME, REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE REFERENCED_TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL`,
		Args: []any{schema},
	}
}

func (d *MysqlDialect) VersionQuery() string {
	return `SELECT VERSION()`
}

func (d *MysqlDialect) DropStrategy() DropStrategy { return StrategyDisableChecks }

func (d *MysqlDialect) SupportsCascade() bool { return false }

func (d *MysqlDialect) DisableForeignKeys() []string {
	return []string{"SET FOREIGN_KEY_CHECKS = 0"}
}

func (d *MysqlDialect) EnableForeignKeys() []string {
	return []string{"SET FOREIGN_KEY_CHECKS = 1"}
}

func (d *MysqlDialect) DropTables(objs []Object) []Statement {
	return batched(objs, func(list string) string {
		return fmt.Sprintf("DROP TABLE %s", list)
	}, d.QuoteIdent)
}

func (d *MysqlDialect) DropViews(objs []Object) []Statement {
	return batched(objs, func(list string) string {
		return fmt.Sprintf("DROP VIEW IF EXISTS %s", list)
	}, d.QuoteIdent)
}

func (d *MysqlDialect) TruncateTable(table Object, cascade bool) ([]Statement, error) {
	if cascade {
		return nil, errs.New(errs.KindUnsupportedOperation, "mysql does not support cascading truncate")
	}
	return []Statement{{
		SQL:     fmt.Sprintf("TRUNCATE TABLE %s", d.QualifiedName(table)),
		Objects: []Object{table},
	}}, nil
}

func (d *MysqlDialect) QuoteIdent(name string) string {
	return quoteWith(name, "`", "`")
}

func (d *MysqlDialect) QualifiedName(o Object) string {
	return qualify(o, d.QuoteIdent)
}

func (d *MysqlDialect) NormalizeIdent(name string) string {
	if inner, ok := unquote(name, "`", "`"); ok {
		return inner
	}
	return name
}
