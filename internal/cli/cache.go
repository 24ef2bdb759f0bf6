package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenda-lojas/agenda/internal/storage"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the cached spreadsheet",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the cached spreadsheet",
			Args:  cobra.NoArgs,
			RunE:  runCacheClear,
		},
		&cobra.Command{
			Use:   "info",
			Short: "Show what the cache holds",
			Args:  cobra.NoArgs,
			RunE:  runCacheInfo,
		},
	)
	return cmd
}

func openCache() (*storage.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cache, err := storage.New(cfg.Cache.Dir, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	return cache, nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	if err := cache.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", cache.Dir())
	return nil
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	records, savedAt, err := cache.Load()
	switch {
	case errors.Is(err, storage.ErrCacheMiss):
		fmt.Fprintf(w, "Cache empty or expired: %s\n", cache.Dir())
		return nil
	case errors.Is(err, storage.ErrCacheCorrupt):
		fmt.Fprintf(w, "Cache unreadable, it will be replaced on the next load: %s\n", cache.Dir())
		return nil
	case err != nil:
		return fmt.Errorf("reading cache: %w", err)
	}

	age := time.Since(savedAt).Truncate(time.Second)
	fmt.Fprintf(w, "Cache: %s\n", cache.Dir())
	fmt.Fprintf(w, "Records: %d\n", len(records))
	fmt.Fprintf(w, "Saved: %s (%s ago, expires in %s)\n",
		savedAt.Local().Format(time.RFC3339), age, (cache.TTL() - age).Truncate(time.Second))
	return nil
}
