package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cognicore/deid/pkg/deid"
	"github.com/cognicore/deid/pkg/deid/config"
	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/store"
	"github.com/cognicore/deid/pkg/deid/store/sqlite"
)

var (
	// Version is injected via ldflags at build time
	Version = "dev"

	// Global flags
	cfgFile   string
	dbPath    string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deid",
	Short: "Annotate and redact sensitive spans in text",
	Long: `deid finds sensitive spans in free text (names, locations, dates, ...)
with configurable lookup lists, regular expressions and token patterns, and
replaces them with stable per-document labels such as [NAME-1].

The pipeline is described in a YAML file (--config). With --db, lookup lists
can be kept in SQLite and every redaction leaves an audit record.`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

func setupLogging() {
	level, err := zerolog.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Logs go to stderr so stdout carries only redacted text.
	if viper.GetString("log_format") == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().
			Timestamp().
			Logger()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "deid.yaml", "pipeline configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database for lookup lists and redaction records")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	// DEID_CONFIG, DEID_DB, DEID_LOG_LEVEL, DEID_LOG_FORMAT
	viper.SetEnvPrefix("DEID")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore opens the --db store. It returns a nil Store when no database is
// configured.
func openStore(ctx context.Context) (store.Store, error) {
	path := viper.GetString("db")
	if path == "" {
		return nil, nil
	}
	return sqlite.OpenSQLite(ctx, path)
}

func requireStore(ctx context.Context) (store.Store, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("this command needs --db: %w", internalerr.ErrStoreUnavailable)
	}
	return st, nil
}

// loadEngine reads the pipeline configuration and wires the engine.
func loadEngine(ctx context.Context) (*deid.Deid, error) {
	path := viper.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	loader := config.Loader{Store: st, Logger: log.Logger}
	d, err := loader.Build(ctx, cfg)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, fmt.Errorf("build pipeline from %s: %w", path, err)
	}

	return deid.New(deid.Options{Deidentifier: d, Store: st, Logger: log.Logger}), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
