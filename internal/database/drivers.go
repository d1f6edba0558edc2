package database

import (
	"database/sql/driver"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	go_ora "github.com/sijms/go-ora/v2"
	"modernc.org/sqlite"
)

// driverVendor reports the vendor behind a registered driver, or "" for
// drivers it does not know (wrappers, mocks).
func driverVendor(drv driver.Driver) string {
	switch drv.(type) {
	case *pq.Driver, *stdlib.Driver:
		return "postgres"
	case *mysql.MySQLDriver:
		return "mysql"
	case *sqlite.Driver:
		return "sqlite"
	case *mssql.Driver:
		return "sqlserver"
	case *go_ora.OracleDriver:
		return "oracle"
	default:
		return ""
	}
}
