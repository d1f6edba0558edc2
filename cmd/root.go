package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-wipe/internal/client"
	"db-wipe/internal/database"
	"db-wipe/internal/events"
	"db-wipe/internal/logger"
)

var (
	cfgFile        string
	connectionName string
	dsn            string
	driverName     string

	log zerolog.Logger
)

var RootCmd = &cobra.Command{
	Use:   "db-wipe",
	Short: "Drop tables, views and types from a database",
	Long: `
  ____  ____   __        _____ ____  _____
 |  _ \| __ )  \ \      / /_ _|  _ \| ____|
 | | | |  _ \   \ \ /\ / / | || |_) |  _|
 | |_| | |_) |   \ V  V /  | ||  __/| |___
 |____/|____/     \_/\_/  |___|_|   |_____|

DB WIPE - Schema teardown for test and dev databases
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New(&logger.Config{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
			Output: os.Stderr,
		})
	},
}

// Execute runs the root command. An interrupt cancels the running operation;
// session settings changed by a wipe are still restored.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./db-wipe.yaml)")
	flags.StringVarP(&connectionName, "connection", "c", "", "name of the connection to use (default is the active one)")
	flags.StringVar(&dsn, "dsn", "", "connect with this DSN instead of a configured connection")
	flags.StringVar(&driverName, "driver", "", "driver for --dsn: postgres, pgx, mysql, sqlite, sqlserver or oracle")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")

	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Executable directory first, then the working directory.
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")

		viper.SetConfigName("db-wipe")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DBWIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// session is one connected client plus the asynchronous event sink behind it.
type session struct {
	conn   *database.Connection
	client *client.Client
	sink   *events.Async
}

// openSession connects the selected connection. The caller must close it.
func openSession(ctx context.Context, opts ...client.ClientOption) (*session, error) {
	cfg, err := GetActiveDBConfig()
	if err != nil {
		return nil, err
	}

	sink := events.NewAsync(events.Logger(log), events.DefaultBuffer, log)
	conn := database.New(cfg.Name, *cfg, database.WithLogger(log), database.WithSink(sink))
	if err := conn.Connect(ctx); err != nil {
		sink.Close()
		return nil, err
	}

	d, _ := conn.Dialect()
	log.Info().Str("connection", conn.Name()).Str("vendor", d.Vendor().String()).Msg("connected")

	opts = append([]client.ClientOption{client.WithLogger(log)}, opts...)
	return &session{
		conn:   conn,
		client: client.New(conn, sink, opts...),
		sink:   sink,
	}, nil
}

func (s *session) Close() {
	if err := s.conn.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close connection")
	}
	s.sink.Close()
	if n := s.sink.Dropped(); n > 0 {
		log.Warn().Uint64("dropped", n).Msg("events dropped")
	}
}
