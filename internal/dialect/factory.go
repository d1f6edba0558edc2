package dialect

import (
	"fmt"
	"strings"

	"db-wipe/internal/errs"
)

// GetDialect maps a vendor identifier, usually the database/sql driver name,
// to its Dialect. Unknown identifiers fail with errs.KindUnsupportedDialect.
func GetDialect(vendor string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(vendor)) {
	case "postgres", "postgresql", "pg", "pgx", "redshift":
		return &PostgresDialect{}, nil
	case "mysql", "mysql2", "mariadb":
		return &MysqlDialect{}, nil
	case "sqlite", "sqlite3", "better-sqlite3":
		return &SqliteDialect{}, nil
	case "sqlserver", "mssql":
		return &MSSQLDialect{}, nil
	case "oracle", "oracledb", "godror":
		return &OracleDialect{}, nil
	default:
		return nil, errs.New(errs.KindUnsupportedDialect, fmt.Sprintf("unsupported dialect %q", vendor))
	}
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*SqliteDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)

var _ TypeDropper = (*PostgresDialect)(nil)
