// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danielhkuo/party-survey/cliparse"
	"github.com/danielhkuo/party-survey/partyservice"
)

var (
	cfg    cliparse.ClientConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "survey",
	Short: "Party survey client",
	Long: `survey is a terminal client for the party survey.

Run without arguments to open the interactive survey: pick a party, cast
your single vote and follow the live results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cliparse.LoadDotEnv()
		if err := cliparse.ApplyClientEnv(&cfg); err != nil {
			return err
		}

		// The terminal belongs to the UI; logs go to a file
		config := zap.NewProductionConfig()
		config.OutputPaths = []string{cfg.LogFile}
		config.ErrorOutputPaths = []string{cfg.LogFile}
		if cfg.Verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runSurvey,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.APIURL, "api", "", "survey API base URL (env SURVEY_API_URL)")
	flags.StringVar(&cfg.AdminSecret, "admin-secret", "", "admin access key (env ADMIN_SECRET)")
	flags.StringVar(&cfg.StateFile, "state", "", "local state file (env SURVEY_STATE_FILE)")
	flags.StringVar(&cfg.LogFile, "log-file", "", "log file (env SURVEY_LOG_FILE)")
	flags.DurationVar(&cfg.PollInterval, "poll", 0, "refresh interval (env SURVEY_POLL_INTERVAL)")
	flags.DurationVar(&cfg.Timeout, "timeout", 0, "API request timeout")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(partiesCmd, adminCmd)
}

func newClient() (*partyservice.Client, error) {
	return partyservice.New(cfg.APIURL,
		partyservice.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		partyservice.WithAdminSecret(cfg.AdminSecret),
		partyservice.WithLogger(logger),
		partyservice.WithReconnectDelay(partyservice.DefaultReconnectDelay),
	)
}

// requestTimeout bounds one-shot commands
func requestTimeout() time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return partyservice.DefaultTimeout
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
