package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	persistlog "thegrind.cafe/internal/persistence/log"
	"thegrind.cafe/internal/persistence/snapshot"
	"thegrind.cafe/internal/sim/world"
)

var (
	dataDir string
	dbPath  string
	saveID  string
	logger  = log.NewWithOptions(os.Stderr, log.Options{Prefix: "admin"})
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "Inspect cafe saves, the day ledger and snapshots",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "./data", "runtime data directory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite index path (default: <data>/index/cafe.sqlite)")
	rootCmd.PersistentFlags().StringVar(&saveID, "save", "default", "save id")

	rootCmd.AddCommand(
		daysCmd(),
		savesCmd(),
		snapshotsCmd(),
		headerCmd(),
		signalsCmd(),
		stateCmd(),
		checkpointCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func indexPath() string {
	if strings.TrimSpace(dbPath) != "" {
		return dbPath
	}
	return filepath.Join(dataDir, "index", "cafe.sqlite")
}

func saveDir() string {
	return filepath.Join(dataDir, "saves", saveID)
}

func headerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "header <snapshot>",
		Short: "Print a snapshot header without decoding the state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := snapshot.ReadHeader(args[0])
			if err != nil {
				return err
			}
			printHeader(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func printHeader(out io.Writer, h snapshot.Header) {
	label := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(out, "%s %d\n", label("version:"), h.Version)
	fmt.Fprintf(out, "%s %s\n", label("save:"), h.SaveID)
	fmt.Fprintf(out, "%s %d\n", label("tick:"), h.Tick)
	fmt.Fprintf(out, "%s %d (day end: %v)\n", label("day:"), h.Day, h.DayEnd)
	fmt.Fprintf(out, "%s %s\n", label("created:"), h.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
}

func signalsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Dump the signal log of a save",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := persistlog.Files(filepath.Join(saveDir(), "signals"), "signals")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range files {
				err := persistlog.EachLine(f, func(line []byte) error {
					if kind != "" && !strings.Contains(string(line), `"kind":"`+kind+`"`) {
						return nil
					}
					_, err := fmt.Fprintln(out, string(line))
					return err
				})
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(f), err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only this signal kind (e.g. DAY_ENDED)")
	return cmd
}

func renderDays(out io.Writer, days []world.DaySummary) {
	table := tablewriter.NewTable(out,
		tablewriter.WithHeader([]string{"Day", "Tick", "Orders", "Revenue", "Expenses", "Profit", "Popularity", "Cash"}),
	)
	for _, d := range days {
		table.Append([]string{
			fmt.Sprintf("%d", d.Day),
			fmt.Sprintf("%d", d.Tick),
			fmt.Sprintf("%d", d.Orders),
			fmt.Sprintf("%.2f", d.Revenue),
			fmt.Sprintf("%.2f", d.Expenses),
			fmt.Sprintf("%+.2f", d.Profit),
			fmt.Sprintf("%.1f", d.Popularity),
			fmt.Sprintf("%.0f", d.Cash),
		})
	}
	table.Render()
}
