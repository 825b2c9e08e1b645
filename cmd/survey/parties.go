// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/party-survey/app"
	"github.com/danielhkuo/party-survey/models"
)

var partiesCmd = &cobra.Command{
	Use:   "parties",
	Short: "Print the current standings",
	RunE:  runParties,
}

func runParties(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	parties, err := client.FetchParties(ctx)
	if err != nil {
		return err
	}
	printStandings(cmd.OutOrStdout(), parties)
	return nil
}

func printStandings(w io.Writer, parties []models.Party) {
	res := app.Standings(parties)
	if len(res.Standings) == 0 {
		fmt.Fprintln(w, "No parties configured.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCODE\tPARTY\tVOTES\tSHARE\tID")
	for _, s := range res.Standings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\t%s\n",
			humanize.Ordinal(s.Rank),
			s.Party.ShortCode,
			s.Party.Name,
			humanize.Comma(int64(s.Party.VoteCount)),
			s.Share*100,
			s.Party.ID,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%s votes cast\n", humanize.Comma(int64(res.Total)))
}
