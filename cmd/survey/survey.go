// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielhkuo/party-survey/app"
	"github.com/danielhkuo/party-survey/localstore"
	"github.com/danielhkuo/party-survey/models"
	"github.com/danielhkuo/party-survey/partyservice"
	"github.com/danielhkuo/party-survey/tui"
)

// runSurvey starts the interactive survey
func runSurvey(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	client, err := newClient()
	if err != nil {
		return err
	}

	store, err := localstore.OpenSQLite(cfg.StateFile, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl, err := newController(client, store)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	logger.Info("survey client starting",
		zap.String("api", cfg.APIURL),
		zap.Duration("poll_interval", cfg.PollInterval),
	)

	program := tea.NewProgram(tui.New(ctx, ctrl, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("survey UI failed: %w", err)
	}
	return nil
}

func newController(client *partyservice.Client, store localstore.Store) (*app.Controller, error) {
	return app.New(app.Options{
		Backend: client,
		Subscribe: func(ctx context.Context, onChange func(models.ChangeEvent)) (func(), error) {
			sub, err := client.Subscribe(ctx, onChange)
			if err != nil {
				return nil, err
			}
			return sub.Close, nil
		},
		Store:        store,
		Secret:       app.StaticSecret(cfg.AdminSecret),
		Logger:       logger,
		PollInterval: cfg.PollInterval,
	})
}
