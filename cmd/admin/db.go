package main

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"thegrind.cafe/internal/persistence/indexdb"
	persistlog "thegrind.cafe/internal/persistence/log"
	"thegrind.cafe/internal/sim/world"
)

func openIndex() (*indexdb.SQLiteIndex, error) {
	idx, err := indexdb.OpenSQLite(indexPath())
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return idx, nil
}

func daysCmd() *cobra.Command {
	var limit int
	var fromLog bool
	cmd := &cobra.Command{
		Use:   "days",
		Short: "Show the day ledger of a save, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromLog {
				days, err := persistlog.ReadDays(saveDir())
				if err != nil {
					return err
				}
				renderDays(cmd.OutOrStdout(), days)
				return nil
			}
			idx, err := openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			rows, err := idx.ListDays(context.Background(), saveID, limit)
			if err != nil {
				return err
			}
			days := make([]world.DaySummary, 0, len(rows))
			for _, r := range rows {
				days = append(days, r.DaySummary)
			}
			renderDays(cmd.OutOrStdout(), days)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 30, "rows to show")
	cmd.Flags().BoolVar(&fromLog, "from-log", false, "read the compressed day log instead of the index")
	return cmd
}

func savesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saves",
		Short: "List stored saves",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			rows, err := idx.ListSaves(context.Background())
			if err != nil {
				return err
			}
			table := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithHeader([]string{"Save", "Version", "Tick", "Cash", "Updated"}),
			)
			for _, r := range rows {
				table.Append([]string{r.SaveID, fmt.Sprintf("%d", r.Version), fmt.Sprintf("%d", r.Tick), fmt.Sprintf("%.0f", r.Cash), r.UpdatedAt})
			}
			table.Render()
			return nil
		},
	}
}

func snapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List indexed snapshots of a save",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			rows, err := idx.ListSnapshots(context.Background(), saveID)
			if err != nil {
				return err
			}
			table := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithHeader([]string{"Tick", "Day", "Day end", "Cash", "Popularity", "Staff", "Path"}),
			)
			for _, r := range rows {
				table.Append([]string{
					fmt.Sprintf("%d", r.Tick),
					fmt.Sprintf("%d", r.Day),
					fmt.Sprintf("%v", r.DayEnd),
					fmt.Sprintf("%.0f", r.Cash),
					fmt.Sprintf("%.1f", r.Popularity),
					fmt.Sprintf("%d", r.Staff),
					r.Path,
				})
			}
			table.Render()
			return nil
		},
	}
}
