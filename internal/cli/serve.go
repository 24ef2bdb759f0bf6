package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenda-lojas/agenda/internal/config"
	"github.com/agenda-lojas/agenda/internal/logger"
	"github.com/agenda-lojas/agenda/internal/server"
	"github.com/agenda-lojas/agenda/internal/sheet"
	"github.com/agenda-lojas/agenda/internal/visits"
)

var flagListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and the page-view counters",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (default from config, :8080)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := visits.Open(ctx, a.cfg.Visits)
	if err != nil {
		return fmt.Errorf("opening visits store: %w", err)
	}
	defer store.Close()

	if err := a.session.Init(ctx, flagRefresh); err != nil {
		return err
	}

	if a.cfg.Source.Kind == config.SourceFile && a.cfg.Source.Watch {
		path := a.cfg.Source.Path
		err := sheet.Watch(ctx, path, sheet.DefaultDebounce,
			func() {
				a.log.Info("Source file changed, reloading", logger.Fields{"path": path})
				if err := a.session.Init(ctx, true); err != nil {
					a.log.Warn("Reload aborted", logger.Fields{"error": err.Error()})
				}
			},
			func(err error) {
				a.log.Warn("Watcher error", logger.Fields{"path": path, "error": err.Error()})
			},
		)
		if err != nil {
			return fmt.Errorf("watching source: %w", err)
		}
		a.log.Info("Watching source file", logger.Fields{"path": path})
	}

	listen := a.cfg.ListenAddr
	if flagListen != "" {
		listen = flagListen
	}

	srv := server.New(a.session,
		server.WithVisits(store),
		server.WithIPLookupURL(a.cfg.Locate.IPLookupURL),
		server.WithLogger(a.log),
		server.WithMetrics(logger.DefaultMetrics()),
	)
	return srv.Run(ctx, listen)
}
