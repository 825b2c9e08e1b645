// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/party-survey/models"
	"github.com/danielhkuo/party-survey/partyservice"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage parties (requires the admin secret)",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.AdminSecret == "" {
			return errors.New("admin secret is required (--admin-secret or ADMIN_SECRET)")
		}
		return nil
	},
}

var partyFlags struct {
	name   string
	symbol string
	image  string
	color  string
	code   string
}

var adminAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a party",
	Args:  cobra.NoArgs,
	RunE:  runAdminAdd,
}

var adminUpdateCmd = &cobra.Command{
	Use:   "update <id|code>",
	Short: "Update a party; unset flags keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminUpdate,
}

var adminRemoveCmd = &cobra.Command{
	Use:     "remove <id|code>",
	Aliases: []string{"rm"},
	Short:   "Remove a party",
	Args:    cobra.ExactArgs(1),
	RunE:    runAdminRemove,
}

var adminResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all votes and zero every count",
	Args:  cobra.NoArgs,
	RunE:  runAdminReset,
}

func init() {
	for _, c := range []*cobra.Command{adminAddCmd, adminUpdateCmd} {
		c.Flags().StringVar(&partyFlags.name, "name", "", "party name")
		c.Flags().StringVar(&partyFlags.symbol, "symbol", "", "symbol name")
		c.Flags().StringVar(&partyFlags.image, "image", "", "symbol image URL")
		c.Flags().StringVar(&partyFlags.color, "color", "", "brand color as #rrggbb")
		c.Flags().StringVar(&partyFlags.code, "code", "", "short code")
	}
	adminAddCmd.MarkFlagRequired("name")
	adminAddCmd.MarkFlagRequired("code")

	adminCmd.AddCommand(adminAddCmd, adminUpdateCmd, adminRemoveCmd, adminResetCmd)
}

func runAdminAdd(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	req := models.PartyRequest{
		Name:       partyFlags.name,
		SymbolName: partyFlags.symbol,
		Color:      partyFlags.color,
		ShortCode:  partyFlags.code,
	}
	if partyFlags.image != "" {
		req.ImageURL = &partyFlags.image
	}

	party, err := client.CreateParty(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as %s\n", party.Name, party.ShortCode, party.ID)
	return nil
}

func runAdminUpdate(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	current, err := findParty(ctx, client, args[0])
	if err != nil {
		return err
	}

	req := models.PartyRequest{
		Name:       current.Name,
		SymbolName: current.SymbolName,
		ImageURL:   current.ImageURL,
		Color:      current.Color,
		ShortCode:  current.ShortCode,
	}
	flags := cmd.Flags()
	if flags.Changed("name") {
		req.Name = partyFlags.name
	}
	if flags.Changed("symbol") {
		req.SymbolName = partyFlags.symbol
	}
	if flags.Changed("image") {
		req.ImageURL = &partyFlags.image
	}
	if flags.Changed("color") {
		req.Color = partyFlags.color
	}
	if flags.Changed("code") {
		req.ShortCode = partyFlags.code
	}

	party, err := client.UpdateParty(ctx, current.ID, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", party.Name, party.ShortCode)
	return nil
}

func runAdminRemove(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	party, err := findParty(ctx, client, args[0])
	if err != nil {
		return err
	}
	if err := client.DeleteParty(ctx, party.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", party.Name, party.ShortCode)
	return nil
}

func runAdminReset(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	res, err := client.Reset(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d votes across %d parties\n", res.VotesCleared, res.PartiesReset)
	return nil
}

// findParty resolves a party by ID or short code
func findParty(ctx context.Context, client *partyservice.Client, ref string) (*models.Party, error) {
	parties, err := client.FetchParties(ctx)
	if err != nil {
		return nil, err
	}
	for i := range parties {
		if parties[i].ID == ref || parties[i].ShortCode == ref {
			return &parties[i], nil
		}
	}
	return nil, fmt.Errorf("party %q not found", ref)
}
