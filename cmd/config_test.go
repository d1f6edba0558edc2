package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConnections(t *testing.T, conns []map[string]any) {
	t.Helper()
	viper.Reset()
	viper.Set("connections", conns)
	t.Cleanup(func() {
		viper.Reset()
		connectionName, dsn, driverName = "", "", ""
	})
}

func TestGetActiveDBConfig_Active(t *testing.T) {
	withConnections(t, []map[string]any{
		{"name": "local", "driver": "sqlite", "file": "local.db"},
		{"name": "ci", "driver": "postgres", "host": "db", "active": true,
			"schemas": []string{"app"}, "wipe": map[string]any{"ignore_tables": []string{"schema_migrations"}}},
	})

	cfg, err := GetActiveDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "ci", cfg.Name)
	assert.Equal(t, []string{"app"}, cfg.Schemas)
	assert.Equal(t, []string{"schema_migrations"}, cfg.Wipe.IgnoreTables)
}

func TestGetActiveDBConfig_ByName(t *testing.T) {
	withConnections(t, []map[string]any{
		{"name": "local", "driver": "sqlite", "file": "local.db"},
		{"name": "ci", "driver": "postgres", "host": "db", "active": true},
	})
	connectionName = "local"

	cfg, err := GetActiveDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "local.db", cfg.File)

	connectionName = "missing"
	_, err = GetActiveDBConfig()
	assert.Error(t, err)
}

func TestGetActiveDBConfig_NoneOrMany(t *testing.T) {
	withConnections(t, []map[string]any{{"name": "a", "driver": "sqlite"}})
	_, err := GetActiveDBConfig()
	assert.ErrorContains(t, err, "no active connection")

	withConnections(t, []map[string]any{
		{"name": "a", "driver": "sqlite", "active": true},
		{"name": "b", "driver": "sqlite", "active": true},
	})
	_, err = GetActiveDBConfig()
	assert.ErrorContains(t, err, "multiple active")
}

func TestGetActiveDBConfig_DSNFlag(t *testing.T) {
	withConnections(t, nil)
	dsn = "postgres://u:p@localhost/app?sslmode=disable"

	cfg, err := GetActiveDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, dsn, cfg.DSN)
}

func TestDSNConfig_SQLitePath(t *testing.T) {
	cfg := dsnConfig("/tmp/app.db", "")
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "/tmp/app.db", cfg.File)
	assert.Empty(t, cfg.DSN)
}

func TestGuessDriver(t *testing.T) {
	tests := map[string]string{
		"postgresql://localhost/app":           "postgres",
		"host=localhost sslmode=disable":       "postgres",
		"sqlserver://sa:pw@localhost:1433":     "sqlserver",
		"oracle://hr:hr@localhost:1521/XEPDB1": "oracle",
		"file:app.db":                          "sqlite",
		"root:root@tcp(127.0.0.1:3306)/sakila": "mysql",
	}
	for in, want := range tests {
		assert.Equal(t, want, guessDriver(in), in)
	}
}
