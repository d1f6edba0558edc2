package dialect

import (
	"fmt"
	"strings"
)

// OracleDialect treats a schema as an owner; the empty schema is the
// current USER. DROP TABLE ... CASCADE CONSTRAINTS removes inbound foreign
// keys, and PURGE keeps dropped tables out of the recycle bin so they do not
// show up in later listings.
type OracleDialect struct{}

func (d *OracleDialect) Vendor() Vendor { return VendorOracle }

func (d *OracleDialect) SupportsSchemas() bool { return true }

func (d *OracleDialect) DefaultSchemas() []string { return []string{""} }

func (d *OracleDialect) TablesQuery(schema string) Query {
	if schema == "" {
		return Query{SQL: `SELECT USER, TABLE_NAME FROM USER_TABLES WHERE DROPPED = 'NO' AND NESTED = 'NO' AND SECONDARY = 'N' ORDER BY TABLE_NAME`}
	}
	return Query{
		SQL:  `SELECT OWNER, TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1 AND DROPPED = 'NO' AND NESTED = 'NO' AND SECONDARY = 'N' ORDER BY TABLE_NAME`,
		Args: []any{schema},
	}
}

func (d *OracleDialect) ViewsQuery(schema string) Query {
	if schema == "" {
		return Query{SQL: `SELECT USER, VIEW_NAME FROM USER_VIEWS ORDER BY VIEW_NAME`}
	}
	return Query{
		SQL:  `SELECT OWNER, VIEW_NAME FROM ALL_VIEWS WHERE OWNER = :1 ORDER BY VIEW_NAME`,
		Args: []any{schema},
	}
}

func (d *OracleDialect) ForeignKeysQuery(schema string) Query {
	const base = `SELECT DISTINCT c.OWNER, c.TABLE_NAME, r.OWNER, r.TABLE_NAME
FROM ALL_CONSTRAINTS c
JOIN ALL_CONSTRAINTS r
    ON r.OWNER = c.R_OWNER
    AND r.CONSTRAINT_NAME = c.R_CONSTRAINT_NAME
WHERE c.CONSTRAINT_TYPE = 'R'`
	if schema == "" {
		return Query{SQL: base + `
AND r.OWNER = USER`}
	}
	return Query{SQL: base + `
AND r.OWNER = :1`, Args: []any{schema}}
}

func (d *OracleDialect) VersionQuery() string {
	return `SELECT VERSION FROM PRODUCT_COMPONENT_VERSION WHERE PRODUCT LIKE 'Oracle%' AND ROWNUM = 1`
}

func (d *OracleDialect) DropStrategy() DropStrategy { return StrategyCascade }

func (d *OracleDialect) SupportsCascade() bool { return true }

func (d *OracleDialect) DisableForeignKeys() []string { return nil }

func (d *OracleDialect) EnableForeignKeys() []string { return nil }

// DropTables emits one statement per table: Oracle cannot drop several
// tables in one DROP TABLE.
func (d *OracleDialect) DropTables(objs []Object) []Statement {
	return perObject(objs, func(o Object) string {
		return fmt.Sprintf("DROP TABLE %s CASCADE CONSTRAINTS PURGE", d.QualifiedName(o))
	})
}

func (d *OracleDialect) DropViews(objs []Object) []Statement {
	return perObject(objs, func(o Object) string {
		return fmt.Sprintf("DROP VIEW %s CASCADE CONSTRAINTS", d.QualifiedName(o))
	})
}

func (d *OracleDialect) TruncateTable(table Object, cascade bool) ([]Statement, error) {
	sql := fmt.Sprintf("TRUNCATE TABLE %s", d.QualifiedName(table))
	if cascade {
		sql += " CASCADE"
	}
	return []Statement{{SQL: sql, Objects: []Object{table}}}, nil
}

// QuoteIdent quotes name as stored in the catalog. Unquoted Oracle
// identifiers are upper-cased, so names read back from USER_TABLES are
// already in their stored case.
func (d *OracleDialect) QuoteIdent(name string) string {
	return quoteWith(name, `"`, `"`)
}

func (d *OracleDialect) QualifiedName(o Object) string {
	return qualify(o, d.QuoteIdent)
}

// NormalizeIdent upper-cases unquoted names: `users` is stored as USERS.
func (d *OracleDialect) NormalizeIdent(name string) string {
	if inner, ok := unquote(name, `"`, `"`); ok {
		return inner
	}
	return strings.ToUpper(name)
}
