package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenda-lojas/agenda/internal/visits"
)

var flagTrackerURL string

func newVisitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Read the page-view counters",
	}

	get := &cobra.Command{
		Use:   "get [page...]",
		Short: "Show registrar counters (default: index, k and acc)",
		RunE:  runVisitsGet,
	}
	get.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show every track counter",
		Args:  cobra.NoArgs,
		RunE:  runVisitsStats,
	}
	stats.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	ping := &cobra.Command{
		Use:   "ping [page]",
		Short: "Register one view of page with a deployed agenda",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runVisitsPing,
	}
	ping.Flags().StringVar(&flagTrackerURL, "url", "", "Base URL of the agenda (default from config)")

	cmd.AddCommand(get, stats, ping)
	return cmd
}

func openVisits(cmd *cobra.Command) (visits.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := visits.Open(cmd.Context(), cfg.Visits)
	if err != nil {
		return nil, fmt.Errorf("opening visits store: %w", err)
	}
	return store, nil
}

func runVisitsGet(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(strings.ToLower(flagFormat), false)
	if err != nil {
		return err
	}
	store, err := openVisits(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	pages := args
	if len(pages) == 0 {
		pages = visits.SummaryPages
	}

	counts := make(map[string]int64, len(pages))
	for _, p := range pages {
		n, err := store.Get(cmd.Context(), visits.RegistrarPrefix+p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		counts[p] = n
	}
	return writeCounters(cmd, counts, pages, format)
}

func runVisitsStats(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(strings.ToLower(flagFormat), false)
	if err != nil {
		return err
	}
	store, err := openVisits(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	counters, err := store.List(cmd.Context(), visits.TrackPrefix)
	if err != nil {
		return fmt.Errorf("listing counters: %w", err)
	}
	counts := visits.Pages(counters, visits.TrackPrefix)
	return writeCounters(cmd, counts, visits.SortedPages(counts), format)
}

func runVisitsPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	base := cfg.Tracker.BaseURL
	if flagTrackerURL != "" {
		base = flagTrackerURL
	}
	tracker := visits.NewTracker(base, nil)
	if tracker == nil {
		return fmt.Errorf("no tracker URL: set --url or AGENDA_TRACKER_URL")
	}

	page := cfg.Tracker.Page
	if len(args) == 1 {
		page = args[0]
	}
	if err := tracker.Send(cmd.Context(), page); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered view of %s\n", page)
	return nil
}

func writeCounters(cmd *cobra.Command, counts map[string]int64, order []string, format OutputFormat) error {
	w := cmd.OutOrStdout()
	if format == FormatJSON {
		return writeJSON(w, counts)
	}
	if len(order) == 0 {
		fmt.Fprintln(w, "No counters.")
		return nil
	}
	for _, p := range order {
		fmt.Fprintf(w, "%-20s %d\n", p, counts[p])
	}
	return nil
}
