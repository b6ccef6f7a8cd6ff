package sifter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	sifterclient "github.com/soundprediction/sifter"
	"github.com/soundprediction/sifter/pkg/config"
	sifterLogger "github.com/soundprediction/sifter/pkg/logger"
	"github.com/soundprediction/sifter/pkg/telemetry"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "sifter",
		Short: "Sifter: schema-driven record search",
		Long: `Sifter searches typed records through dynamic criteria lists.

Entities, their fields and the paths that can be searched are declared in a
YAML schema. Records live in memory, badger, sqlite or neo4j.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sifter.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, plain, json)")
	rootCmd.PersistentFlags().String("schema", "", "schema file")
	rootCmd.PersistentFlags().String("db-driver", "memory", "Database driver (memory, badger, sqlite, neo4j)")
	rootCmd.PersistentFlags().String("db-uri", "", "Database URI/path")

	// Bind flags to viper
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("schema.path", rootCmd.PersistentFlags().Lookup("schema"))
	viper.BindPFlag("database.driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	viper.BindPFlag("database.uri", rootCmd.PersistentFlags().Lookup("db-uri"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sifter")
	}

	viper.SetEnvPrefix("sifter")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// app is what every command needs: the loaded configuration, a logger
// and, once opened, the client.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	client    *sifterclient.Client
	telemetry *telemetry.ParquetHandler
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}
	handler := sifterLogger.NewHandler(cfg.Log, cmd.ErrOrStderr())
	if cfg.Telemetry.Enabled {
		ph, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath, cfg.Telemetry.BatchSize)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to initialize error tracking: %v\n", err)
		} else {
			a.telemetry = ph
			handler = ph
		}
	}
	a.logger = slog.New(handler)
	return a, nil
}

// open connects the client. Callers must Close the app.
func (a *app) open(ctx context.Context) error {
	client, err := sifterclient.Open(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sifter: %w", err)
	}
	a.client = client
	return nil
}

func (a *app) Close() error {
	var err error
	if a.client != nil {
		err = a.client.Close()
	}
	if a.telemetry != nil {
		if cerr := a.telemetry.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openApp loads configuration and opens the client, importing seed when
// it is not empty.
func openApp(cmd *cobra.Command, seed string) (*app, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, err
	}
	if err := a.open(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	if seed != "" {
		if _, err := a.client.ImportFile(cmd.Context(), seed); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to import %s: %w", seed, err)
		}
	}
	return a, nil
}
