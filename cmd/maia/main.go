package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maiahq/maia/internal/profile"
	"github.com/maiahq/maia/server"
	"github.com/maiahq/maia/server/harness"
	"github.com/maiahq/maia/store"
	"github.com/maiahq/maia/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "maia",
	Short: "Cost-governed LLM assistant server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		srv, err := setup(ctx)
		if err != nil {
			return err
		}
		defer srv.Shutdown(context.Background())

		return srv.Start(ctx)
	},
}

var harnessCmd = &cobra.Command{
	Use:   "harness",
	Short: "Run the prompt performance suites and print the report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		srv, err := setup(ctx)
		if err != nil {
			return err
		}
		defer srv.Shutdown(context.Background())

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		runner := harness.NewRunner(srv.Pipeline, srv.Ledger, harness.DefaultThresholds(), concurrency, slog.Default())
		report, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	},
}

// setup loads the profile, opens the store, and assembles the service graph.
func setup(ctx context.Context) (*server.Server, error) {
	p, err := profile.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if mode := viper.GetString("mode"); mode != "" {
		p.Mode = mode
	}
	if addr := viper.GetString("addr"); addr != "" {
		p.Addr = addr
	}
	if port := viper.GetInt("port"); port != 0 {
		p.Port = port
	}
	if data := viper.GetString("data"); data != "" {
		p.Data = data
	}
	if driver := viper.GetString("driver"); driver != "" {
		p.Driver = driver
	}
	if dsn := viper.GetString("dsn"); dsn != "" {
		p.DSN = dsn
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	return server.NewServer(ctx, p, store.New(dbDriver, p), logger)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to the YAML config file")
	rootCmd.PersistentFlags().String("mode", "", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 0, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "", `database driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database connection string")
	_ = viper.BindPFlags(rootCmd.PersistentFlags())
	viper.SetEnvPrefix("maia")
	viper.AutomaticEnv()

	harnessCmd.Flags().Int("concurrency", 4, "number of suite cases run in parallel")
	rootCmd.AddCommand(harnessCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
