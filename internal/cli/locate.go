package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenda-lojas/agenda/internal/locate"
)

var (
	flagPermission string
	flagIP         string
	flagNoIP       bool
)

func newLocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find the nearest upcoming training",
		Long: `Resolve your position and list trainings by distance.
--lat/--lng stand in for the device position. Without them, or when they are rejected,
the position is looked up by IP address. A resolved position clears every filter.`,
		Args: cobra.NoArgs,
		RunE: runLocate,
	}

	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagPermission, "permission", "", "Simulated permission state: granted, prompt or denied")
	cmd.Flags().StringVar(&flagIP, "ip", "", "Look up this IP address instead of your own")
	cmd.Flags().BoolVar(&flagNoIP, "no-ip", false, "Disable the IP lookup fallback")
	addPositionFlags(cmd)
	return cmd
}

func runLocate(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(strings.ToLower(flagFormat), false)
	if err != nil {
		return err
	}
	device, err := parsePosition(flagLat, flagLng)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	opts := []locate.Option{locate.WithLogger(a.log)}
	if format == FormatText {
		opts = append(opts, locate.WithProgress(func(s locate.State, msg string) {
			if msg != "" && !s.Terminal() {
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
		}))
	}
	if flagPermission != "" {
		p := locate.Permission(strings.ToLower(flagPermission))
		switch p {
		case locate.PermissionGranted, locate.PermissionPrompt, locate.PermissionDenied:
		default:
			return fmt.Errorf("invalid permission: %s (must be 'granted', 'prompt' or 'denied')", flagPermission)
		}
		opts = append(opts, locate.WithPermissionChecker(locate.StaticPermission(p)))
	}

	var ip locate.IPLocator
	if !flagNoIP {
		ip = locate.NewIPAPIClient(a.cfg.Locate.IPLookupURL).ForIP(flagIP)
	}

	if err := a.load(cmd.Context()); err != nil {
		return err
	}

	res, err := a.session.LocateWith(cmd.Context(), locate.New(locate.StaticProvider{Point: device}, ip, opts...))
	if err != nil {
		return err
	}

	records := a.session.Records()
	sel := a.session.Selection()
	_, fromCache := a.session.Loaded()
	result := newOutputResult(res.View, sel, sel.Apply(records), len(records), "", fromCache)
	result.Locate = &LocateSummary{
		State:   res.Outcome.State,
		Source:  res.Outcome.Source,
		Message: res.Message,
	}
	if res.Nearest != nil {
		km := res.NearestKm
		result.Locate.Nearest = res.Nearest.Name
		result.Locate.NearestKm = &km
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if !res.Outcome.Resolved() {
		return fmt.Errorf("location not resolved (%s)", res.Outcome.State)
	}
	return nil
}
