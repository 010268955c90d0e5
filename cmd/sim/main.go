package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"thegrind.cafe/internal/persistence/snapshot"
	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
	"thegrind.cafe/internal/sim/world"
)

var (
	days       int
	seed       uint64
	tuningPath string
	catalogDir string
	fromSnap   string
	asJSON     bool
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the cafe headless for a number of days",
		Long: `Runs the simulation without a clock, dismissing every end-of-day
summary, and prints one row per settled day.`,
		RunE:         runSim,
		SilenceUsage: true,
	}
	rootCmd.Flags().IntVarP(&days, "days", "n", 7, "days to simulate")
	rootCmd.Flags().Uint64VarP(&seed, "seed", "s", 1, "random seed")
	rootCmd.Flags().StringVar(&tuningPath, "tuning", "", "path to tuning.yaml (default: built-in)")
	rootCmd.Flags().StringVar(&catalogDir, "catalogs", "", "catalog directory (default: embedded)")
	rootCmd.Flags().StringVar(&fromSnap, "from", "", "start from this snapshot instead of a fresh cafe")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print day summaries as JSON lines")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "debug|info|warn|error")

	if err := rootCmd.Execute(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

func runSim(cmd *cobra.Command, args []string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "sim"})
	if lvl, err := log.ParseLevel(logLevel); err == nil {
		logger.SetLevel(lvl)
	}

	tune := tuning.Defaults()
	if tuningPath != "" {
		t, err := tuning.Load(tuningPath)
		if err != nil {
			return fmt.Errorf("load tuning: %w", err)
		}
		tune = t
	}
	cats := catalogs.Default()
	if catalogDir != "" {
		c, err := catalogs.Load(catalogDir)
		if err != nil {
			return fmt.Errorf("load catalogs: %w", err)
		}
		cats = c
	}

	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("order-%06d", n)
	}
	e := world.NewEngine(cats, tune, rng.New(seed, seed^0x9e3779b97f4a7c15), world.WithOrderIDs(ids))

	initial := e.NewState()
	if fromSnap != "" {
		snap, err := snapshot.ReadSnapshot(fromSnap)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		st, err := e.Migrate(snap.State)
		if err != nil {
			return fmt.Errorf("migrate snapshot: %w", err)
		}
		initial = st
		logger.Info("starting from snapshot", "tick", st.Tick, "day", st.Day(tune.DayTicks))
	}

	w := world.New(world.Config{SaveID: "sim", TickInterval: time.Millisecond}, e, initial, logger)
	start := time.Now()
	summaries := simulate(w, days, tune.DayTicks)
	logger.Info("done", "days", len(summaries), "elapsed", time.Since(start))

	if asJSON {
		return printJSON(os.Stdout, summaries)
	}
	printTable(os.Stdout, summaries)
	final := w.Snapshot()
	color.New(color.FgCyan, color.Bold).Printf("\n%s: cash $%.0f, popularity %.1f, staff %d\n",
		orDefault(final.PlayerName, "cafe"), final.Cash, final.Popularity, len(final.Staff))
	return nil
}

// simulate steps w until n days have settled, dismissing each summary. It
// gives up after twice the expected number of ticks.
func simulate(w *world.World, n, dayTicks int) []world.DaySummary {
	var out []world.DaySummary
	limit := 2 * (n + 1) * dayTicks
	for i := 0; i < limit && len(out) < n; i++ {
		for _, sig := range w.StepOnce() {
			if sig.Kind == world.SignalDayEnded && sig.Day != nil {
				out = append(out, *sig.Day)
			}
		}
		if w.Snapshot().ShowEndOfDay {
			w.ApplyNow(func(e *world.Engine, st *world.State) bool { return e.DismissEndOfDay(st) })
		}
	}
	return out
}

func printTable(out io.Writer, summaries []world.DaySummary) {
	profitUp := color.New(color.FgGreen).SprintfFunc()
	profitDown := color.New(color.FgRed).SprintfFunc()

	table := tablewriter.NewTable(out,
		tablewriter.WithHeader([]string{"Day", "Orders", "Revenue", "Wages", "Costs", "Profit", "Popularity", "Cash"}),
	)
	for _, d := range summaries {
		profit := profitUp("%+.2f", d.Profit)
		if d.Profit < 0 {
			profit = profitDown("%+.2f", d.Profit)
		}
		table.Append([]string{
			fmt.Sprintf("%d", d.Day),
			fmt.Sprintf("%d (%+d)", d.Orders, d.OrdersChange),
			fmt.Sprintf("%.2f", d.Revenue),
			fmt.Sprintf("%.2f", d.Wages),
			fmt.Sprintf("%.2f", d.CafeCosts),
			profit,
			fmt.Sprintf("%.1f (%+.1f)", d.Popularity, d.PopularityChange),
			fmt.Sprintf("%.0f", d.Cash),
		})
	}
	table.Render()
}

func printJSON(out io.Writer, summaries []world.DaySummary) error {
	enc := json.NewEncoder(out)
	for _, d := range summaries {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
