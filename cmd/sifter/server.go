package sifter

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/sifter/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Sifter HTTP server",
	Long: `Start the Sifter HTTP server to provide REST access to the search engine.

The server provides endpoints for:
- Listing entities and their searchable fields
- Running searches with criteria lists
- Reading and importing records
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost  string
	serverPort  int
	serverMode  string
	serverSeed  string
	serverGrace time.Duration
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")
	serverCmd.Flags().StringVar(&serverSeed, "import", "", "Import document loaded before serving")
	serverCmd.Flags().DurationVar(&serverGrace, "shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")

	// Database flags
	serverCmd.Flags().String("db-username", "", "Database username (neo4j only)")
	serverCmd.Flags().String("db-password", "", "Database password (neo4j only)")
	serverCmd.Flags().String("db-database", "", "Database name (neo4j only)")

	// Telemetry flags
	serverCmd.Flags().Bool("telemetry", false, "Record errors to parquet files")
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for error telemetry")
	viper.BindPFlag("telemetry.enabled", serverCmd.Flags().Lookup("telemetry"))
	viper.BindPFlag("telemetry.parquet_path", serverCmd.Flags().Lookup("telemetry-parquet-path"))
}

func runServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	overrideConfigWithFlags(cmd, a)

	if a.cfg.Server.Port <= 0 || a.cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", a.cfg.Server.Port)
	}

	if err := a.open(cmd.Context()); err != nil {
		return err
	}

	if serverSeed != "" {
		report, err := a.client.ImportFile(cmd.Context(), serverSeed)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", serverSeed, err)
		}
		a.logger.Info("Seed data imported", "records", report.Records, "duration", report.Duration)
	}

	srv := server.New(a.cfg, a.client, a.logger)
	srv.Setup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, serverGrace); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

func overrideConfigWithFlags(cmd *cobra.Command, a *app) {
	cfg := a.cfg

	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	// Database flags
	if cmd.Flags().Changed("db-username") {
		cfg.Database.Username, _ = cmd.Flags().GetString("db-username")
	}
	if cmd.Flags().Changed("db-password") {
		cfg.Database.Password, _ = cmd.Flags().GetString("db-password")
	}
	if cmd.Flags().Changed("db-database") {
		cfg.Database.Database, _ = cmd.Flags().GetString("db-database")
	}
}

