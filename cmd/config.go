package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"

	"db-wipe/internal/database"
)

const keyringService = "db-wipe"

// GetActiveDBConfig returns the connection selected by --dsn, --connection or
// the single `active: true` entry under connections, in that order.
func GetActiveDBConfig() (*database.Config, error) {
	if dsn != "" {
		return dsnConfig(dsn, driverName), nil
	}

	var configs []database.Config
	if err := viper.UnmarshalKey("connections", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse connections config: %w", err)
	}

	var active *database.Config
	if connectionName != "" {
		for i := range configs {
			if configs[i].Name == connectionName {
				active = &configs[i]
				break
			}
		}
		if active == nil {
			return nil, fmt.Errorf("no connection named %q in config", connectionName)
		}
	} else {
		count := 0
		for i := range configs {
			if configs[i].Active {
				active = &configs[i]
				count++
			}
		}
		if count == 0 {
			return nil, fmt.Errorf("no active connection found in config (set active: true or pass --connection)")
		}
		if count > 1 {
			return nil, fmt.Errorf("multiple active connections found (only one can be active)")
		}
	}

	if active.Keyring {
		secret, err := keyring.Get(keyringService, active.Name)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, fmt.Errorf("no password stored in keyring for connection %q", active.Name)
			}
			return nil, fmt.Errorf("failed to read keyring: %w", err)
		}
		active.Password = secret
	}

	return active, nil
}

// dsnConfig builds an ad-hoc connection from a DSN, guessing the driver when
// none is given.
func dsnConfig(dsn, driver string) *database.Config {
	if driver == "" {
		driver = guessDriver(dsn)
	}
	cfg := &database.Config{Name: "cli", Driver: driver, DSN: dsn}
	if driver == "sqlite" && !strings.HasPrefix(dsn, "file:") {
		cfg.DSN = ""
		cfg.File = dsn
	}
	return cfg
}

func guessDriver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "sslmode"):
		return "postgres"
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(dsn, "oracle://"):
		return "oracle"
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"), dsn == ":memory:":
		return "sqlite"
	default:
		return "mysql"
	}
}
