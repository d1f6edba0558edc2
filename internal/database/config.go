package database

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	go_ora "github.com/sijms/go-ora/v2"

	"db-wipe/internal/errs"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
)

// Config holds everything needed to open and pool one connection. It is
// decoded by viper from a `connections:` entry.
type Config struct {
	Name   string `mapstructure:"name"`
	Active bool   `mapstructure:"active"`

	// Driver is the database/sql driver name: postgres, pgx, mysql, sqlite,
	// sqlserver or oracle.
	Driver string `mapstructure:"driver"`
	// Vendor overrides dialect detection, e.g. "redshift" over the postgres driver.
	Vendor string `mapstructure:"vendor"`

	// DSN wins over the discrete fields below when set.
	DSN      string            `mapstructure:"dsn"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Database string            `mapstructure:"database"`
	File     string            `mapstructure:"file"` // sqlite only
	Options  map[string]string `mapstructure:"options"`

	// Keyring loads Password from the OS keyring when true.
	Keyring bool `mapstructure:"keyring"`

	Schemas []string `mapstructure:"schemas"`
	// Debug emits a db:query event per executed statement.
	Debug bool `mapstructure:"debug"`

	// Pool tuning
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`

	Wipe WipeConfig `mapstructure:"wipe"`
}

// WipeConfig is the default ignore policy for destructive operations.
type WipeConfig struct {
	IgnoreTables []string `mapstructure:"ignore_tables"`
	IgnoreViews  []string `mapstructure:"ignore_views"`
}

// VendorName is the identifier used to pick the dialect when the driver
// itself is not recognised.
func (c Config) VendorName() string {
	if c.Vendor != "" {
		return c.Vendor
	}
	return c.Driver
}

// Validate checks the fields DataSource needs.
func (c Config) Validate() error {
	if c.Driver == "" {
		return errs.New(errs.KindInvalidInput, "driver is required")
	}
	if c.DSN != "" {
		return nil
	}
	switch c.Driver {
	case "sqlite", "sqlite3":
		if c.File == "" {
			return errs.New(errs.KindInvalidInput, "sqlite connection needs file or dsn")
		}
	case "postgres", "pgx", "mysql", "sqlserver", "mssql", "oracle":
		if c.Host == "" {
			return errs.New(errs.KindInvalidInput, fmt.Sprintf("%s connection needs host or dsn", c.Driver))
		}
	default:
		return errs.New(errs.KindInvalidInput, fmt.Sprintf("cannot build a dsn for driver %q, set dsn", c.Driver))
	}
	return nil
}

// DataSource returns DSN, or builds one in the driver's own format.
func (c Config) DataSource() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	if c.DSN != "" {
		return c.DSN, nil
	}

	switch c.Driver {
	case "postgres", "pgx":
		return c.postgresDSN(), nil
	case "mysql":
		return c.mysqlDSN(), nil
	case "sqlserver", "mssql":
		return c.sqlserverDSN(), nil
	case "oracle":
		return go_ora.BuildUrl(c.Host, c.portOr(1521), c.Database, c.User, c.Password, c.Options), nil
	default:
		return c.sqliteDSN(), nil
	}
}

func (c Config) portOr(def int) int {
	if c.Port == 0 {
		return def
	}
	return c.Port
}

func (c Config) timeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return defaultConnectTimeout
	}
	return c.ConnectTimeout
}

// postgresDSN builds a key=value string understood by both lib/pq and pgx.
func (c Config) postgresDSN() string {
	params := map[string]string{
		"host":            c.Host,
		"port":            strconv.Itoa(c.portOr(5432)),
		"user":            c.User,
		"password":        c.Password,
		"dbname":          c.Database,
		"sslmode":         "disable",
		"connect_timeout": strconv.Itoa(int(c.timeout().Seconds())),
	}
	for k, v := range c.Options {
		params[k] = v
	}

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+pgQuote(params[k]))
	}
	return strings.Join(parts, " ")
}

func pgQuote(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (c Config) mysqlDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.portOr(3306)))
	mc.DBName = c.Database
	mc.Timeout = c.timeout()
	mc.ParseTime = true
	if len(c.Options) > 0 {
		mc.Params = make(map[string]string, len(c.Options))
		for k, v := range c.Options {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}

func (c Config) sqlserverDSN() string {
	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	q.Set("connection timeout", strconv.Itoa(int(c.timeout().Seconds())))
	for k, v := range c.Options {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.portOr(1433))),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// sqliteDSN always turns foreign key enforcement on, which SQLite leaves off
// by default.
func (c Config) sqliteDSN() string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	for k, v := range c.Options {
		q.Add(k, v)
	}
	return "file:" + c.File + "?" + q.Encode()
}
