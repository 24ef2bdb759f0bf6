package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenda-lojas/agenda/internal/event"
	"github.com/agenda-lojas/agenda/internal/filter"
	"github.com/agenda-lojas/agenda/internal/geo"
	"github.com/agenda-lojas/agenda/internal/render"
)

var (
	flagFormat string
	flagSort   string
	flagStores string
	flagStates string
	flagCities string
	flagLegacy string
	flagLat    string
	flagLng    string
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trainings",
		Long: `List trainings, upcoming first. Filter groups intersect; values within a group
are alternatives. With --lat and --lng, upcoming trainings are ordered by distance.`,
		Example: `  agenda list --estado SP --cidade "Campinas, São Paulo"
  agenda list --lat -23.55 --lng -46.63 --format json
  agenda list --loja "Atacadão" --format ics > atacadao.ics`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text, json or ics")
	cmd.Flags().StringVar(&flagSort, "sort", "agenda", "Sort order: agenda, date, name or city")
	addFilterFlags(cmd)
	addPositionFlags(cmd)
	return cmd
}

func newFiltersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Show the store, state and city filter options",
		Args:  cobra.NoArgs,
		RunE:  runFilters,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagStores, "loja", "", "Stores, comma separated")
	cmd.Flags().StringVar(&flagStates, "estado", "", "States, comma separated")
	cmd.Flags().StringVar(&flagCities, "cidade", "", "Cities, comma separated")
	cmd.Flags().StringVar(&flagLegacy, "filtro-loja", filter.LegacyAll, "Single store; ignored when --loja is set")
}

func addPositionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagLat, "lat", "", "Latitude of your position")
	cmd.Flags().StringVar(&flagLng, "lng", "", "Longitude of your position")
}

// selectionFromFlags builds the filter selection from the filter flags
func selectionFromFlags() *filter.Selection {
	sel := filter.NewSelection()
	sel.Stores = filter.ParseList(flagStores)
	sel.States = filter.ParseList(flagStates)
	sel.Cities = filter.ParseList(flagCities)
	if v := strings.TrimSpace(flagLegacy); v != "" {
		sel.Legacy = v
	}
	return sel
}

// parsePosition reads a --lat/--lng pair. Both or neither must be set; a decimal comma is
// accepted.
func parsePosition(rawLat, rawLng string) (*geo.Point, error) {
	rawLat, rawLng = strings.TrimSpace(rawLat), strings.TrimSpace(rawLng)
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, errors.New("--lat and --lng must be given together")
	}

	lat, err := strconv.ParseFloat(strings.Replace(rawLat, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --lat %q", rawLat)
	}
	lng, err := strconv.ParseFloat(strings.Replace(rawLng, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --lng %q", rawLng)
	}

	p, err := geo.NewPoint(lat, lng)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(strings.ToLower(flagFormat), true)
	if err != nil {
		return err
	}
	order, err := ParseSortOrder(strings.ToLower(flagSort))
	if err != nil {
		return err
	}
	user, err := parsePosition(flagLat, flagLng)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.load(cmd.Context()); err != nil {
		return err
	}

	today := event.Today(now())
	records := a.session.Records()
	sortRecords(records, order, today)

	sel := selectionFromFlags()
	res := render.Render(records, sel, user, today)
	_, fromCache := a.session.Loaded()
	result := newOutputResult(res, sel, sel.Apply(records), len(records), a.session.Feedback(), fromCache)

	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if res.NoResults {
		return errNoResults
	}
	return nil
}

func runFilters(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(strings.ToLower(flagFormat), false)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.load(cmd.Context()); err != nil {
		return err
	}
	if fb := a.session.Feedback(); fb != "" && format == FormatText {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  %s\n\n", fb)
	}

	if err := writePanel(cmd.OutOrStdout(), a.session.Panel(), format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
